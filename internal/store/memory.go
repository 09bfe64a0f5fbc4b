package store

import (
	"sync"

	"github.com/ashasetu/ashasetu/internal/models"
)

// InMemoryStore is a mutex-guarded in-memory Store used by tests and
// development runs without a database.
type InMemoryStore struct {
	mu       sync.RWMutex
	patients []models.Patient
	logs     []models.ActionLogEntry
	alerts   []models.EmergencyAlert
}

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) AddPatient(p models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients = append(s.patients, p)
	return nil
}

func (s *InMemoryStore) GetPatient(id string) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.patients {
		if s.patients[i].ID == id {
			p := s.patients[i]
			return &p, nil
		}
	}
	return nil, models.ErrPatientNotFound
}

func (s *InMemoryStore) ListPatients() ([]models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Patient, len(s.patients))
	copy(out, s.patients)
	return out, nil
}

func (s *InMemoryStore) ListActivePatients() ([]models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Patient
	for _, p := range s.patients {
		if p.Status == models.PatientStatusActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *InMemoryStore) AddActionLog(e models.ActionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, e)
	return nil
}

func (s *InMemoryStore) LatestActionLog(patientID string, kind models.ActionKind) (*models.ActionLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.ActionLogEntry
	for i := range s.logs {
		e := s.logs[i]
		if e.PatientID != patientID || e.Kind != kind {
			continue
		}
		if latest == nil || e.Timestamp.After(latest.Timestamp) {
			latest = &e
		}
	}
	return latest, nil
}

func (s *InMemoryStore) UpdateCallOutcome(externalID string, status string, duration int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.logs {
		if s.logs[i].ExternalID == externalID {
			s.logs[i].Status = models.ActionStatus(status)
			s.logs[i].Duration = duration
			return nil
		}
	}
	return nil
}

func (s *InMemoryStore) AddAlert(a models.EmergencyAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *InMemoryStore) ListPendingAlerts() ([]models.EmergencyAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.EmergencyAlert
	for _, a := range s.alerts {
		if a.Status == models.AlertStatusPending {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *InMemoryStore) AcknowledgeAlert(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].Status = models.AlertStatusAcknowledged
			return nil
		}
	}
	return models.ErrAlertNotFound
}

func (s *InMemoryStore) Close() error {
	return nil
}

// ActionLogs returns a copy of all log entries (for tests).
func (s *InMemoryStore) ActionLogs() []models.ActionLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ActionLogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// Alerts returns a copy of all alerts (for tests).
func (s *InMemoryStore) Alerts() []models.EmergencyAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.EmergencyAlert, len(s.alerts))
	copy(out, s.alerts)
	return out
}
