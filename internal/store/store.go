// Package store provides storage backends for AshaSetu.
//
// It includes an in-memory store for tests and development, plus SQLite and
// PostgreSQL backed stores selected by DSN.
package store

import (
	"strings"

	"github.com/ashasetu/ashasetu/internal/models"
)

// Store defines the persistence operations the outreach core depends on.
// Implementations must return (nil, nil) from LatestActionLog when no entry
// exists for the given patient and kind.
type Store interface {
	// AddPatient inserts a patient record.
	AddPatient(p models.Patient) error

	// GetPatient returns a patient by id, or models.ErrPatientNotFound.
	GetPatient(id string) (*models.Patient, error)

	// ListPatients returns all patient records.
	ListPatients() ([]models.Patient, error)

	// ListActivePatients returns patients with active status.
	ListActivePatients() ([]models.Patient, error)

	// AddActionLog appends a dispatch log entry.
	AddActionLog(e models.ActionLogEntry) error

	// LatestActionLog returns the most recent entry for (patientID, kind).
	LatestActionLog(patientID string, kind models.ActionKind) (*models.ActionLogEntry, error)

	// UpdateCallOutcome updates status and duration for the log entry with the
	// given external id. Unknown ids are ignored (the callback may race a log
	// write and transport retries the callback).
	UpdateCallOutcome(externalID string, status string, duration int) error

	// AddAlert appends an emergency alert.
	AddAlert(a models.EmergencyAlert) error

	// ListPendingAlerts returns alerts still awaiting triage.
	ListPendingAlerts() ([]models.EmergencyAlert, error)

	// AcknowledgeAlert marks an alert acknowledged, or models.ErrAlertNotFound.
	AcknowledgeAlert(id string) error

	// Close releases the underlying resources.
	Close() error
}

// Opts holds configuration for persistent store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN configures a SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN configures a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for PostgreSQL-style DSNs and "sqlite"
// otherwise (file paths).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
