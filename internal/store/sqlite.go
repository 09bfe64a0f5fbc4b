// Package store provides storage backends for AshaSetu.
//
// This file implements a SQLite-backed store for patients, dispatch logs, and
// emergency alerts.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/ashasetu/ashasetu/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddPatient(p models.Patient) error {
	_, err := s.db.Exec(
		`INSERT INTO patients (id, name, phone, language, lmp_date, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Phone, p.Language, p.LMPDate, p.Status, p.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore AddPatient failed", "error", err, "id", p.ID)
		return fmt.Errorf("failed to insert patient %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetPatient(id string) (*models.Patient, error) {
	row := s.db.QueryRow(
		`SELECT id, name, phone, language, lmp_date, status, created_at FROM patients WHERE id = ?`, id,
	)
	p, err := scanPatientRow(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrPatientNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetPatient failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query patient %s: %w", id, err)
	}
	return p, nil
}

func (s *SQLiteStore) ListPatients() ([]models.Patient, error) {
	return s.queryPatients(`SELECT id, name, phone, language, lmp_date, status, created_at FROM patients`)
}

func (s *SQLiteStore) ListActivePatients() ([]models.Patient, error) {
	return s.queryPatients(
		`SELECT id, name, phone, language, lmp_date, status, created_at FROM patients WHERE status = 'active'`,
	)
}

func (s *SQLiteStore) queryPatients(query string, args ...interface{}) ([]models.Patient, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore patient query failed", "error", err)
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()
	return scanPatients(rows)
}

func (s *SQLiteStore) AddActionLog(e models.ActionLogEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO action_logs (patient_id, kind, external_id, week, status, duration, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.PatientID, e.Kind, e.ExternalID, e.Week, e.Status, e.Duration, e.Timestamp,
	)
	if err != nil {
		slog.Error("SQLiteStore AddActionLog failed", "error", err, "patientID", e.PatientID, "kind", e.Kind)
		return fmt.Errorf("failed to insert action log for %s: %w", e.PatientID, err)
	}
	return nil
}

func (s *SQLiteStore) LatestActionLog(patientID string, kind models.ActionKind) (*models.ActionLogEntry, error) {
	row := s.db.QueryRow(
		`SELECT patient_id, kind, external_id, week, status, duration, timestamp
		 FROM action_logs WHERE patient_id = ? AND kind = ?
		 ORDER BY timestamp DESC LIMIT 1`,
		patientID, kind,
	)
	e, err := scanActionLogRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore LatestActionLog failed", "error", err, "patientID", patientID, "kind", kind)
		return nil, fmt.Errorf("failed to query latest action log for %s: %w", patientID, err)
	}
	return e, nil
}

func (s *SQLiteStore) UpdateCallOutcome(externalID string, status string, duration int) error {
	_, err := s.db.Exec(
		`UPDATE action_logs SET status = ?, duration = ? WHERE external_id = ?`,
		status, duration, externalID,
	)
	if err != nil {
		slog.Error("SQLiteStore UpdateCallOutcome failed", "error", err, "externalID", externalID)
		return fmt.Errorf("failed to update call outcome for %s: %w", externalID, err)
	}
	return nil
}

func (s *SQLiteStore) AddAlert(a models.EmergencyAlert) error {
	_, err := s.db.Exec(
		`INSERT INTO emergency_alerts (id, patient_id, patient_name, week, status, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, nilIfEmpty(a.PatientID), a.PatientName, a.Week, a.Status, a.Timestamp,
	)
	if err != nil {
		slog.Error("SQLiteStore AddAlert failed", "error", err, "patientName", a.PatientName)
		return fmt.Errorf("failed to insert emergency alert for %s: %w", a.PatientName, err)
	}
	return nil
}

func (s *SQLiteStore) ListPendingAlerts() ([]models.EmergencyAlert, error) {
	rows, err := s.db.Query(
		`SELECT id, patient_id, patient_name, week, status, timestamp
		 FROM emergency_alerts WHERE status = 'pending' ORDER BY timestamp DESC`,
	)
	if err != nil {
		slog.Error("SQLiteStore ListPendingAlerts query failed", "error", err)
		return nil, fmt.Errorf("failed to query pending alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (s *SQLiteStore) AcknowledgeAlert(id string) error {
	res, err := s.db.Exec(`UPDATE emergency_alerts SET status = 'acknowledged' WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore AcknowledgeAlert failed", "error", err, "id", id)
		return fmt.Errorf("failed to acknowledge alert %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrAlertNotFound
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
