// Package voice wraps the Twilio API for outbound IVR call placement.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Call placement settings. Machine detection stops the IVR from leaving the
// whole dialogue on a voicemail box.
const (
	defaultCallTimeoutSecs  = 60
	defaultMachineDetection = "DetectMessageEnd"
)

// Caller places outbound IVR calls.
type Caller interface {
	PlaceCall(ctx context.Context, to, scriptURL, statusURL string) (string, error)
}

// Opts holds configuration options for the Twilio voice client.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Option defines a configuration option for the Twilio voice client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID, overriding $TWILIO_ACCOUNT_SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token, overriding $TWILIO_AUTH_TOKEN.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromNumber sets the caller number, overriding $TWILIO_VOICE_NUMBER.
func WithFromNumber(from string) Option {
	return func(o *Opts) { o.FromNumber = from }
}

// Client wraps the Twilio REST API for voice calls.
type Client struct {
	client *twilio.RestClient
	from   string
}

// Compile-time check that Client implements Caller.
var _ Caller = (*Client)(nil)

func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	// Fallback to environment variables if not provided via options
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_VOICE_NUMBER")
	}
	slog.Debug("Twilio voice client config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromNumber_set", cfg.FromNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		},
	)

	return &Client{client: client, from: cfg.FromNumber}, nil
}

// PlaceCall starts an outbound call whose dialogue is driven by scriptURL.
// The transport re-invokes scriptURL with the caller's input for each turn,
// and posts the final call status to statusURL.
func (c *Client) PlaceCall(ctx context.Context, to, scriptURL, statusURL string) (string, error) {
	params := &twilioApi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetUrl(scriptURL)
	params.SetStatusCallback(statusURL)
	params.SetStatusCallbackEvent([]string{"completed"})
	params.SetRecord(true)
	params.SetTimeout(defaultCallTimeoutSecs)
	params.SetMachineDetection(defaultMachineDetection)

	resp, err := c.client.Api.CreateCall(params)
	if err != nil {
		slog.Error("Twilio PlaceCall failed", "to", to, "error", err)
		return "", fmt.Errorf("failed to place call to %s: %w", to, err)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	slog.Debug("Twilio call placed", "to", to, "sid", sid)
	return sid, nil
}

// MockClient records placed calls for tests. The dispatcher invokes Caller
// from concurrent goroutines, so the recorded state is mutex-guarded.
type MockClient struct {
	mu          sync.Mutex
	PlacedCalls []MockCall
	Err         error
}

type MockCall struct {
	To        string
	ScriptURL string
	StatusURL string
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) PlaceCall(ctx context.Context, to, scriptURL, statusURL string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.PlacedCalls = append(m.PlacedCalls, MockCall{To: to, ScriptURL: scriptURL, StatusURL: statusURL})
	return fmt.Sprintf("CA%08d", len(m.PlacedCalls)), nil
}
