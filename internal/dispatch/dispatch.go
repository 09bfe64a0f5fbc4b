package dispatch

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashasetu/ashasetu/internal/gestation"
	"github.com/ashasetu/ashasetu/internal/models"
	"github.com/ashasetu/ashasetu/internal/store"
)

// Caller places outbound IVR calls. The returned id is the transport call SID.
type Caller interface {
	PlaceCall(ctx context.Context, to, scriptURL, statusURL string) (string, error)
}

// Messenger sends WhatsApp messages. The returned id is the transport message SID.
type Messenger interface {
	SendMessage(ctx context.Context, to, body string) (string, error)
}

// ReminderGenerator produces the WhatsApp reminder body for a patient.
type ReminderGenerator interface {
	ReminderMessage(ctx context.Context, name string, week int, lang models.Language) (string, error)
	FallbackReminder(lang models.Language) string
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	Considered int `json:"considered"`
	Dispatched int `json:"dispatched"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// Dispatcher runs the scheduled call and message batches. Per-patient work
// fans out concurrently; one patient's failure never aborts the rest, and
// every attempt is logged.
type Dispatcher struct {
	store     store.Store
	gate      *Gate
	caller    Caller
	messenger Messenger
	reminders ReminderGenerator
	baseURL   string
}

// NewDispatcher wires a Dispatcher. baseURL is the public address the
// telephony transport uses to fetch IVR scripts and post status callbacks.
func NewDispatcher(st store.Store, gate *Gate, caller Caller, messenger Messenger, reminders ReminderGenerator, baseURL string) *Dispatcher {
	return &Dispatcher{
		store:     st,
		gate:      gate,
		caller:    caller,
		messenger: messenger,
		reminders: reminders,
		baseURL:   baseURL,
	}
}

// RunCallBatch dispatches IVR calls to every active patient whose call
// interval has elapsed. The store listing failing is the only error returned;
// everything downstream is logged and absorbed.
func (d *Dispatcher) RunCallBatch(ctx context.Context, now time.Time) (BatchResult, error) {
	patients, err := d.store.ListActivePatients()
	if err != nil {
		slog.Error("Call batch aborted, could not list patients", "error", err)
		return BatchResult{}, err
	}
	slog.Info("Running call batch", "patients", len(patients))

	var (
		mu     sync.Mutex
		result = BatchResult{Considered: len(patients)}
		wg     sync.WaitGroup
	)
	for _, p := range patients {
		wg.Add(1)
		go func(p models.Patient) {
			defer wg.Done()
			outcome := d.dispatchCall(ctx, p, now)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case dispatched:
				result.Dispatched++
			case failed:
				result.Failed++
			case skipped:
				result.Skipped++
			}
		}(p)
	}
	wg.Wait()

	slog.Info("Call batch complete", "dispatched", result.Dispatched, "failed", result.Failed, "skipped", result.Skipped)
	return result, nil
}

// RunMessageBatch sends the WhatsApp reminder to every active patient on
// message days. Off-day runs skip the whole batch.
func (d *Dispatcher) RunMessageBatch(ctx context.Context, now time.Time) (BatchResult, error) {
	due, err := d.gate.IsDue("", models.ActionMessage, now)
	if err != nil {
		return BatchResult{}, err
	}
	if !due {
		slog.Info("Not a message day, skipping batch", "weekday", now.Weekday().String())
		return BatchResult{}, nil
	}

	patients, err := d.store.ListActivePatients()
	if err != nil {
		slog.Error("Message batch aborted, could not list patients", "error", err)
		return BatchResult{}, err
	}
	slog.Info("Running message batch", "patients", len(patients))

	var (
		mu     sync.Mutex
		result = BatchResult{Considered: len(patients)}
		wg     sync.WaitGroup
	)
	for _, p := range patients {
		wg.Add(1)
		go func(p models.Patient) {
			defer wg.Done()
			outcome := d.dispatchMessage(ctx, p, now)
			mu.Lock()
			defer mu.Unlock()
			if outcome == dispatched {
				result.Dispatched++
			} else {
				result.Failed++
			}
		}(p)
	}
	wg.Wait()

	slog.Info("Message batch complete", "dispatched", result.Dispatched, "failed", result.Failed)
	return result, nil
}

// DispatchCallTo places a call to a single patient, bypassing the dedup gate.
// Used by the manual trigger endpoint.
func (d *Dispatcher) DispatchCallTo(ctx context.Context, p models.Patient, now time.Time) (string, error) {
	week := gestation.Week(p.LMPDate, now)
	return d.placeAndLog(ctx, p, week, now)
}

type dispatchOutcome int

const (
	skipped dispatchOutcome = iota
	dispatched
	failed
)

func (d *Dispatcher) dispatchCall(ctx context.Context, p models.Patient, now time.Time) dispatchOutcome {
	due, err := d.gate.IsDue(p.ID, models.ActionCall, now)
	if err != nil {
		slog.Error("Dedup gate check failed, skipping patient", "error", err, "patientID", p.ID)
		return failed
	}
	if !due {
		slog.Debug("Call not due, skipping patient", "patientID", p.ID)
		return skipped
	}
	if _, err := d.placeAndLog(ctx, p, gestation.Week(p.LMPDate, now), now); err != nil {
		return failed
	}
	return dispatched
}

func (d *Dispatcher) placeAndLog(ctx context.Context, p models.Patient, week int, now time.Time) (string, error) {
	slog.Info("Dispatching IVR call", "patientID", p.ID, "week", week, "language", p.Language)

	sid, callErr := d.caller.PlaceCall(ctx, p.Phone, d.scriptURL(p, week), d.statusURL(p))

	entry := models.ActionLogEntry{
		PatientID:  p.ID,
		Kind:       models.ActionCall,
		ExternalID: sid,
		Week:       week,
		Status:     models.ActionStatusInitiated,
		Timestamp:  now,
	}
	if callErr != nil {
		slog.Error("Call dispatch failed", "error", callErr, "patientID", p.ID)
		entry.Status = models.ActionStatusFailed
		// A minted id keeps the failed attempt reconcilable.
		entry.ExternalID = uuid.NewString()
	}
	if err := d.store.AddActionLog(entry); err != nil {
		slog.Error("Failed to log call dispatch", "error", err, "patientID", p.ID)
	}
	return entry.ExternalID, callErr
}

func (d *Dispatcher) dispatchMessage(ctx context.Context, p models.Patient, now time.Time) dispatchOutcome {
	week := gestation.Week(p.LMPDate, now)

	body, err := d.reminders.ReminderMessage(ctx, p.Name, week, p.Language)
	if err != nil {
		slog.Warn("Reminder generation failed, using fallback", "error", err, "patientID", p.ID)
		body = d.reminders.FallbackReminder(p.Language)
	}

	sid, sendErr := d.messenger.SendMessage(ctx, p.Phone, body)

	entry := models.ActionLogEntry{
		PatientID:  p.ID,
		Kind:       models.ActionMessage,
		ExternalID: sid,
		Week:       week,
		Status:     models.ActionStatusInitiated,
		Timestamp:  now,
	}
	if sendErr != nil {
		slog.Error("Message dispatch failed", "error", sendErr, "patientID", p.ID)
		entry.Status = models.ActionStatusFailed
		entry.ExternalID = uuid.NewString()
	}
	if err := d.store.AddActionLog(entry); err != nil {
		slog.Error("Failed to log message dispatch", "error", err, "patientID", p.ID)
	}
	if sendErr != nil {
		return failed
	}
	return dispatched
}

// scriptURL is the continuation entry point for the call: the transport
// fetches it for the first turn and re-invokes it with speech or digit
// parameters for each later turn.
func (d *Dispatcher) scriptURL(p models.Patient, week int) string {
	q := url.Values{}
	q.Set("pid", p.ID)
	q.Set("week", strconv.Itoa(week))
	q.Set("lang", string(p.Language))
	q.Set("name", p.Name)
	return d.baseURL + "/ivr/turn?" + q.Encode()
}

func (d *Dispatcher) statusURL(p models.Patient) string {
	q := url.Values{}
	q.Set("pid", p.ID)
	return d.baseURL + "/hooks/call-status?" + q.Encode()
}
