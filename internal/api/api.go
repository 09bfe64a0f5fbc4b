// Package api provides HTTP handlers and the main API server logic for AshaSetu.
//
// It exposes the Twilio-facing IVR and webhook endpoints next to a small REST
// surface for patient admin, manual dispatch triggers and alert triage. The
// API wires together the store, dispatch, scheduler, genai, voice and
// whatsapp modules.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ashasetu/ashasetu/internal/dispatch"
	"github.com/ashasetu/ashasetu/internal/escalation"
	"github.com/ashasetu/ashasetu/internal/genai"
	"github.com/ashasetu/ashasetu/internal/ivr"
	"github.com/ashasetu/ashasetu/internal/scheduler"
	"github.com/ashasetu/ashasetu/internal/store"
	"github.com/ashasetu/ashasetu/internal/voice"
	"github.com/ashasetu/ashasetu/internal/whatsapp"
)

// Default server configuration.
const (
	DefaultAddr        = ":8080"
	DefaultCallCron    = "0 10 * * 1,3,5"
	DefaultMessageCron = "0 9 * * *"
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr        string // server listen address
	BaseURL     string // public base URL Twilio fetches scripts from
	Timezone    string // cron timezone
	CallCron    string // IVR call batch schedule
	MessageCron string // WhatsApp reminder batch schedule
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithBaseURL sets the public base URL used in continuation and callback URLs.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithTimezone sets the scheduler timezone.
func WithTimezone(tz string) Option {
	return func(o *Opts) { o.Timezone = tz }
}

// WithCallCron overrides the IVR call batch schedule.
func WithCallCron(expr string) Option {
	return func(o *Opts) { o.CallCron = expr }
}

// WithMessageCron overrides the WhatsApp reminder batch schedule.
func WithMessageCron(expr string) Option {
	return func(o *Opts) { o.MessageCron = expr }
}

// Server holds the API server dependencies.
type Server struct {
	store      store.Store
	dispatcher *dispatch.Dispatcher
	session    *ivr.Session
	content    ivr.ContentGenerator
	escalator  *escalation.Escalator
}

// NewServer creates a Server with its collaborators.
func NewServer(st store.Store, dispatcher *dispatch.Dispatcher, session *ivr.Session, content ivr.ContentGenerator, escalator *escalation.Escalator) *Server {
	return &Server{
		store:      st,
		dispatcher: dispatcher,
		session:    session,
		content:    content,
		escalator:  escalator,
	}
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ivr/turn", s.ivrTurnHandler)
	mux.HandleFunc("/ivr/answer", s.ivrAnswerHandler)
	mux.HandleFunc("/hooks/call-status", s.callStatusHandler)
	mux.HandleFunc("/hooks/whatsapp", s.whatsappInboundHandler)
	mux.HandleFunc("/patients", s.patientsHandler)
	mux.HandleFunc("/calls/trigger", s.triggerCallHandler)
	mux.HandleFunc("/dispatch/calls", s.dispatchCallsHandler)
	mux.HandleFunc("/dispatch/messages", s.dispatchMessagesHandler)
	mux.HandleFunc("/alerts", s.alertsHandler)
	mux.HandleFunc("/alerts/ack", s.alertAckHandler)
	return mux
}

// openStore selects a store backend from the configured DSN. An empty DSN
// yields the in-memory store, which is only suitable for development.
func openStore(storeOpts ...store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Warn("No database DSN configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	switch store.DetectDSNType(cfg.DSN) {
	case "postgres":
		slog.Info("Opening PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(cfg.DSN))
	default:
		slog.Info("Opening SQLite store", "path", cfg.DSN)
		return store.NewSQLiteStore(store.WithSQLiteDSN(cfg.DSN))
	}
}

// Run wires all components and serves HTTP until the listener fails. It is
// the composition root used by cmd/ashasetu.
func Run(storeOpts []store.Option, voiceOpts []voice.Option, waOpts []whatsapp.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	cfg := Opts{
		Addr:        DefaultAddr,
		BaseURL:     os.Getenv("ASHASETU_BASE_URL"),
		Timezone:    scheduler.DefaultTimezone,
		CallCron:    DefaultCallCron,
		MessageCron: DefaultMessageCron,
	}
	for _, opt := range apiOpts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		return fmt.Errorf("public base URL is required for IVR continuation URLs")
	}

	st, err := openStore(storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	caller, err := voice.NewClient(voiceOpts...)
	if err != nil {
		return fmt.Errorf("failed to create voice client: %w", err)
	}
	messenger, err := whatsapp.NewClient(waOpts...)
	if err != nil {
		return fmt.Errorf("failed to create whatsapp client: %w", err)
	}
	content, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to create genai client: %w", err)
	}

	escalator := escalation.NewEscalator(st)
	gate := dispatch.NewGate(st)
	dispatcher := dispatch.NewDispatcher(st, gate, caller, messenger, content, cfg.BaseURL)
	session := ivr.NewSession(content, escalator)

	sched := scheduler.NewScheduler(cfg.Timezone)
	defer sched.Stop()
	if err := sched.AddJob("ivr-call-batch", cfg.CallCron, func(now time.Time) {
		result, err := dispatcher.RunCallBatch(context.Background(), now)
		if err != nil {
			slog.Error("Scheduled call batch failed", "error", err)
			return
		}
		slog.Info("Scheduled call batch complete", "considered", result.Considered, "dispatched", result.Dispatched, "failed", result.Failed, "skipped", result.Skipped)
	}); err != nil {
		return fmt.Errorf("failed to schedule call batch: %w", err)
	}
	if err := sched.AddJob("whatsapp-reminder-batch", cfg.MessageCron, func(now time.Time) {
		result, err := dispatcher.RunMessageBatch(context.Background(), now)
		if err != nil {
			slog.Error("Scheduled message batch failed", "error", err)
			return
		}
		slog.Info("Scheduled message batch complete", "considered", result.Considered, "dispatched", result.Dispatched, "failed", result.Failed, "skipped", result.Skipped)
	}); err != nil {
		return fmt.Errorf("failed to schedule message batch: %w", err)
	}

	srv := NewServer(st, dispatcher, session, content, escalator)
	slog.Info("AshaSetu API listening", "addr", cfg.Addr, "baseURL", cfg.BaseURL)
	return http.ListenAndServe(cfg.Addr, srv.Handler())
}
