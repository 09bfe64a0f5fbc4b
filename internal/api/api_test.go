package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ashasetu/ashasetu/internal/dispatch"
	"github.com/ashasetu/ashasetu/internal/escalation"
	"github.com/ashasetu/ashasetu/internal/ivr"
	"github.com/ashasetu/ashasetu/internal/models"
	"github.com/ashasetu/ashasetu/internal/store"
	"github.com/ashasetu/ashasetu/internal/voice"
	"github.com/ashasetu/ashasetu/internal/whatsapp"
)

// stubContent satisfies both the IVR content interface and the dispatch
// reminder interface.
type stubContent struct{}

func (stubContent) HealthTip(ctx context.Context, week int, lang models.Language) (string, error) {
	return "stub tip", nil
}

func (stubContent) AnswerQuestion(ctx context.Context, question string, week int, lang models.Language) (string, error) {
	return "stub answer", nil
}

func (stubContent) ReminderMessage(ctx context.Context, name string, week int, lang models.Language) (string, error) {
	return "stub reminder", nil
}

func (stubContent) FallbackTip(lang models.Language) string      { return "fallback tip" }
func (stubContent) FallbackAnswer(lang models.Language) string   { return "fallback answer" }
func (stubContent) FallbackReminder(lang models.Language) string { return "fallback reminder" }

type testEnv struct {
	server *Server
	store  *store.InMemoryStore
	caller *voice.MockClient
	sender *whatsapp.MockClient
}

func newTestEnv() *testEnv {
	st := store.NewInMemoryStore()
	caller := voice.NewMockClient()
	sender := whatsapp.NewMockClient()
	content := stubContent{}
	escalator := escalation.NewEscalator(st)
	gate := dispatch.NewGate(st)
	dispatcher := dispatch.NewDispatcher(st, gate, caller, sender, content, "https://asha.example.org")
	session := ivr.NewSession(content, escalator)
	return &testEnv{
		server: NewServer(st, dispatcher, session, content, escalator),
		store:  st,
		caller: caller,
		sender: sender,
	}
}

func (e *testEnv) seedPatient(t *testing.T, id, phone string) models.Patient {
	t.Helper()
	p := models.Patient{
		ID:        id,
		Name:      "Sunita",
		Phone:     phone,
		Language:  models.LanguageHindi,
		LMPDate:   time.Now().AddDate(0, 0, -70),
		Status:    models.PatientStatusActive,
		CreatedAt: time.Now(),
	}
	if err := e.store.AddPatient(p); err != nil {
		t.Fatalf("failed to seed patient: %v", err)
	}
	return p
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func postForm(t *testing.T, handler http.HandlerFunc, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestAddAndListPatients(t *testing.T) {
	env := newTestEnv()

	rr := postJSON(t, env.server.patientsHandler, "/patients",
		`{"name":"Sunita","phone":"9876543210","language":"hindi","lmp_date":"2026-06-15"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created struct {
		Result models.Patient `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.Result.Phone != "+919876543210" {
		t.Errorf("expected normalized phone, got %q", created.Result.Phone)
	}
	if created.Result.ID == "" {
		t.Error("expected a generated patient id")
	}
	if created.Result.Status != models.PatientStatusActive {
		t.Errorf("expected active status, got %q", created.Result.Status)
	}

	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	list := httptest.NewRecorder()
	env.server.patientsHandler(list, req)
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", list.Code)
	}
	var listed struct {
		Result []models.Patient `json:"result"`
	}
	if err := json.Unmarshal(list.Body.Bytes(), &listed); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(listed.Result) != 1 {
		t.Errorf("expected 1 patient, got %d", len(listed.Result))
	}
}

func TestAddPatientRejectsBadInput(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"bad date", `{"name":"A","phone":"9876543210","lmp_date":"15-06-2026"}`},
		{"missing name", `{"phone":"9876543210","lmp_date":"2026-06-15"}`},
		{"missing phone", `{"name":"A","lmp_date":"2026-06-15"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(t, env.server.patientsHandler, "/patients", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestTriggerCallPlacesCallAndLogs(t *testing.T) {
	env := newTestEnv()
	env.seedPatient(t, "p1", "+919876543210")

	rr := postJSON(t, env.server.triggerCallHandler, "/calls/trigger", `{"patient_id":"p1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(env.caller.PlacedCalls) != 1 {
		t.Fatalf("expected 1 placed call, got %d", len(env.caller.PlacedCalls))
	}
	if env.caller.PlacedCalls[0].To != "+919876543210" {
		t.Errorf("call went to %q", env.caller.PlacedCalls[0].To)
	}
	logs := env.store.ActionLogs()
	if len(logs) != 1 || logs[0].Status != models.ActionStatusInitiated {
		t.Errorf("expected one initiated log entry, got %+v", logs)
	}
}

func TestTriggerCallUnknownPatient(t *testing.T) {
	env := newTestEnv()
	rr := postJSON(t, env.server.triggerCallHandler, "/calls/trigger", `{"patient_id":"missing"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestDispatchCallsEndpoint(t *testing.T) {
	env := newTestEnv()
	env.seedPatient(t, "p1", "+919876543210")
	env.seedPatient(t, "p2", "+919876543211")

	rr := postJSON(t, env.server.dispatchCallsHandler, "/dispatch/calls", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Result dispatch.BatchResult `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Result.Considered != 2 || resp.Result.Dispatched != 2 {
		t.Errorf("expected both patients dispatched, got %+v", resp.Result)
	}
}

// A batch fans out one goroutine per patient, all placing calls through the
// same transport client.
func TestDispatchCallsFanOut(t *testing.T) {
	env := newTestEnv()
	const patients = 20
	for i := 0; i < patients; i++ {
		env.seedPatient(t, fmt.Sprintf("p%02d", i), fmt.Sprintf("+9198765432%02d", i))
	}

	rr := postJSON(t, env.server.dispatchCallsHandler, "/dispatch/calls", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Result dispatch.BatchResult `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Result.Dispatched != patients {
		t.Errorf("expected %d dispatched, got %+v", patients, resp.Result)
	}
	if len(env.caller.PlacedCalls) != patients {
		t.Errorf("expected %d recorded calls, got %d", patients, len(env.caller.PlacedCalls))
	}
	if len(env.store.ActionLogs()) != patients {
		t.Errorf("expected %d log entries, got %d", patients, len(env.store.ActionLogs()))
	}
}

func TestAlertLifecycle(t *testing.T) {
	env := newTestEnv()
	alert := models.EmergencyAlert{
		ID:          "a1",
		PatientID:   "p1",
		PatientName: "Sunita",
		Week:        10,
		Status:      models.AlertStatusPending,
		Timestamp:   time.Now(),
	}
	if err := env.store.AddAlert(alert); err != nil {
		t.Fatalf("failed to seed alert: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/alerts", nil)
	rr := httptest.NewRecorder()
	env.server.alertsHandler(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var listed struct {
		Result []models.EmergencyAlert `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &listed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(listed.Result) != 1 || listed.Result[0].ID != "a1" {
		t.Fatalf("expected pending alert a1, got %+v", listed.Result)
	}

	ack := postJSON(t, env.server.alertAckHandler, "/alerts/ack", `{"id":"a1"}`)
	if ack.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", ack.Code, ack.Body.String())
	}

	rr2 := httptest.NewRecorder()
	env.server.alertsHandler(rr2, httptest.NewRequest(http.MethodGet, "/alerts", nil))
	var after struct {
		Result []models.EmergencyAlert `json:"result"`
	}
	if err := json.Unmarshal(rr2.Body.Bytes(), &after); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(after.Result) != 0 {
		t.Errorf("expected no pending alerts after ack, got %+v", after.Result)
	}
}

func TestAlertAckUnknownID(t *testing.T) {
	env := newTestEnv()
	rr := postJSON(t, env.server.alertAckHandler, "/alerts/ack", `{"id":"missing"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv()
	handlers := map[string]http.HandlerFunc{
		"/calls/trigger":     env.server.triggerCallHandler,
		"/dispatch/calls":    env.server.dispatchCallsHandler,
		"/dispatch/messages": env.server.dispatchMessagesHandler,
		"/alerts/ack":        env.server.alertAckHandler,
		"/hooks/call-status": env.server.callStatusHandler,
	}
	for path, h := range handlers {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		h(rr, req)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected 405 for GET, got %d", path, rr.Code)
		}
	}
}
