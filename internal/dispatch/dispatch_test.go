package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashasetu/ashasetu/internal/models"
	"github.com/ashasetu/ashasetu/internal/store"
)

type placedCall struct {
	To        string
	ScriptURL string
	StatusURL string
}

type mockCaller struct {
	mu     sync.Mutex
	calls  []placedCall
	failTo map[string]bool
	next   int
}

func (m *mockCaller) PlaceCall(ctx context.Context, to, scriptURL, statusURL string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[to] {
		return "", errors.New("transport rejected call")
	}
	m.next++
	m.calls = append(m.calls, placedCall{To: to, ScriptURL: scriptURL, StatusURL: statusURL})
	return fmt.Sprintf("CA%03d", m.next), nil
}

type sentMessage struct {
	To   string
	Body string
}

type mockMessenger struct {
	mu     sync.Mutex
	sent   []sentMessage
	failTo map[string]bool
}

func (m *mockMessenger) SendMessage(ctx context.Context, to, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[to] {
		return "", errors.New("transport rejected message")
	}
	m.sent = append(m.sent, sentMessage{To: to, Body: body})
	return "SM-test", nil
}

type mockReminders struct {
	fail bool
}

func (m *mockReminders) ReminderMessage(ctx context.Context, name string, week int, lang models.Language) (string, error) {
	if m.fail {
		return "", errors.New("generator unavailable")
	}
	return fmt.Sprintf("Namaste %s, week %d reminder", name, week), nil
}

func (m *mockReminders) FallbackReminder(lang models.Language) string {
	return "static fallback reminder"
}

func activePatient(id, phone string, lmp time.Time) models.Patient {
	return models.Patient{
		ID: id, Name: "Patient " + id, Phone: phone,
		Language: models.LanguageHindi, LMPDate: lmp,
		Status: models.PatientStatusActive, CreatedAt: lmp,
	}
}

func newTestDispatcher(st store.Store, caller *mockCaller, messenger *mockMessenger, rem *mockReminders) *Dispatcher {
	return NewDispatcher(st, NewGate(st), caller, messenger, rem, "https://ivr.example.org")
}

func TestRunCallBatchDispatchesOnlyDuePatients(t *testing.T) {
	st := store.NewInMemoryStore()
	now := time.Date(2025, 8, 11, 10, 0, 0, 0, time.UTC) // Monday
	lmp := now.AddDate(0, 0, -70)

	_ = st.AddPatient(activePatient("p1", "+911111111111", lmp))
	_ = st.AddPatient(activePatient("p2", "+912222222222", lmp))
	_ = st.AddPatient(activePatient("p3", "+913333333333", lmp))
	// p2 was called yesterday: not due.
	_ = st.AddActionLog(models.ActionLogEntry{
		PatientID: "p2", Kind: models.ActionCall, ExternalID: "CA-old",
		Status: models.ActionStatusInitiated, Timestamp: now.AddDate(0, 0, -1),
	})

	caller := &mockCaller{}
	d := newTestDispatcher(st, caller, &mockMessenger{}, &mockReminders{})

	result, err := d.RunCallBatch(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Considered != 3 || result.Dispatched != 2 || result.Skipped != 1 || result.Failed != 0 {
		t.Errorf("unexpected batch result: %+v", result)
	}
	if len(caller.calls) != 2 {
		t.Fatalf("expected 2 placed calls, got %d", len(caller.calls))
	}
	for _, c := range caller.calls {
		if c.To == "+912222222222" {
			t.Error("p2 should not have been called")
		}
		if !strings.Contains(c.ScriptURL, "week=10") {
			t.Errorf("expected week=10 in script URL, got %s", c.ScriptURL)
		}
		if !strings.Contains(c.ScriptURL, "lang=hindi") {
			t.Errorf("expected lang=hindi in script URL, got %s", c.ScriptURL)
		}
	}

	// Every dispatched call is logged as initiated.
	initiated := 0
	for _, e := range st.ActionLogs() {
		if e.Kind == models.ActionCall && e.Status == models.ActionStatusInitiated && e.Timestamp.Equal(now) {
			initiated++
		}
	}
	if initiated != 2 {
		t.Errorf("expected 2 initiated call logs, got %d", initiated)
	}
}

func TestRunCallBatchOneFailureDoesNotAbortOthers(t *testing.T) {
	st := store.NewInMemoryStore()
	now := time.Date(2025, 8, 11, 10, 0, 0, 0, time.UTC)
	lmp := now.AddDate(0, 0, -100)

	_ = st.AddPatient(activePatient("p1", "+911111111111", lmp))
	_ = st.AddPatient(activePatient("p2", "+912222222222", lmp))
	_ = st.AddPatient(activePatient("p3", "+913333333333", lmp))

	caller := &mockCaller{failTo: map[string]bool{"+912222222222": true}}
	d := newTestDispatcher(st, caller, &mockMessenger{}, &mockReminders{})

	result, err := d.RunCallBatch(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Dispatched != 2 || result.Failed != 1 {
		t.Errorf("unexpected batch result: %+v", result)
	}

	// The failed attempt is still logged, with a minted correlation id.
	var failedLogs int
	for _, e := range st.ActionLogs() {
		if e.Status == models.ActionStatusFailed {
			failedLogs++
			if e.ExternalID == "" {
				t.Error("failed log entry missing correlation id")
			}
			if e.PatientID != "p2" {
				t.Errorf("unexpected failed patient %s", e.PatientID)
			}
		}
	}
	if failedLogs != 1 {
		t.Errorf("expected 1 failed log entry, got %d", failedLogs)
	}
}

func TestRunMessageBatchSkipsOffDays(t *testing.T) {
	st := store.NewInMemoryStore()
	_ = st.AddPatient(activePatient("p1", "+911111111111", time.Now().AddDate(0, 0, -50)))

	messenger := &mockMessenger{}
	d := newTestDispatcher(st, &mockCaller{}, messenger, &mockReminders{})

	tuesday := time.Date(2025, 8, 12, 9, 0, 0, 0, time.UTC)
	result, err := d.RunMessageBatch(context.Background(), tuesday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Dispatched != 0 || len(messenger.sent) != 0 {
		t.Errorf("expected no messages on Tuesday, got %+v", result)
	}
}

func TestRunMessageBatchSendsToAllActivePatients(t *testing.T) {
	st := store.NewInMemoryStore()
	wednesday := time.Date(2025, 8, 13, 9, 0, 0, 0, time.UTC)
	lmp := wednesday.AddDate(0, 0, -120)

	_ = st.AddPatient(activePatient("p1", "+911111111111", lmp))
	_ = st.AddPatient(activePatient("p2", "+912222222222", lmp))
	inactive := activePatient("p3", "+913333333333", lmp)
	inactive.Status = models.PatientStatusInactive
	_ = st.AddPatient(inactive)
	// A message sent earlier the same week does not gate the send.
	_ = st.AddActionLog(models.ActionLogEntry{
		PatientID: "p1", Kind: models.ActionMessage, ExternalID: "SM-old",
		Status: models.ActionStatusInitiated, Timestamp: wednesday.AddDate(0, 0, -2),
	})

	messenger := &mockMessenger{}
	d := newTestDispatcher(st, &mockCaller{}, messenger, &mockReminders{})

	result, err := d.RunMessageBatch(context.Background(), wednesday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Dispatched != 2 {
		t.Errorf("expected 2 messages dispatched, got %+v", result)
	}
	if len(messenger.sent) != 2 {
		t.Errorf("expected 2 sent messages, got %d", len(messenger.sent))
	}
}

func TestRunMessageBatchFallsBackOnGeneratorFailure(t *testing.T) {
	st := store.NewInMemoryStore()
	friday := time.Date(2025, 8, 15, 9, 0, 0, 0, time.UTC)
	_ = st.AddPatient(activePatient("p1", "+911111111111", friday.AddDate(0, 0, -60)))

	messenger := &mockMessenger{}
	d := newTestDispatcher(st, &mockCaller{}, messenger, &mockReminders{fail: true})

	result, err := d.RunMessageBatch(context.Background(), friday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Dispatched != 1 {
		t.Errorf("expected fallback message to be dispatched, got %+v", result)
	}
	if len(messenger.sent) != 1 || messenger.sent[0].Body != "static fallback reminder" {
		t.Errorf("expected static fallback body, got %v", messenger.sent)
	}
}

func TestDispatchCallToBypassesGate(t *testing.T) {
	st := store.NewInMemoryStore()
	now := time.Date(2025, 8, 11, 10, 0, 0, 0, time.UTC)
	p := activePatient("p1", "+911111111111", now.AddDate(0, 0, -70))
	_ = st.AddPatient(p)
	// Called an hour ago: the scheduled batch would skip, the manual path must not.
	_ = st.AddActionLog(models.ActionLogEntry{
		PatientID: "p1", Kind: models.ActionCall, ExternalID: "CA-recent",
		Status: models.ActionStatusInitiated, Timestamp: now.Add(-time.Hour),
	})

	caller := &mockCaller{}
	d := newTestDispatcher(st, caller, &mockMessenger{}, &mockReminders{})

	sid, err := d.DispatchCallTo(context.Background(), p, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sid == "" {
		t.Error("expected a call SID")
	}
	if len(caller.calls) != 1 {
		t.Errorf("expected 1 placed call, got %d", len(caller.calls))
	}
}
