// Package store provides storage backends for AshaSetu.
//
// This file implements a PostgreSQL-backed store for patients, dispatch logs,
// and emergency alerts.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/ashasetu/ashasetu/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddPatient(p models.Patient) error {
	_, err := s.db.Exec(
		`INSERT INTO patients (id, name, phone, language, lmp_date, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.Phone, p.Language, p.LMPDate, p.Status, p.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore AddPatient failed", "error", err, "id", p.ID)
		return fmt.Errorf("failed to insert patient %s: %w", p.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetPatient(id string) (*models.Patient, error) {
	row := s.db.QueryRow(
		`SELECT id, name, phone, language, lmp_date, status, created_at FROM patients WHERE id = $1`, id,
	)
	p, err := scanPatientRow(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrPatientNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetPatient failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query patient %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) ListPatients() ([]models.Patient, error) {
	return s.queryPatients(`SELECT id, name, phone, language, lmp_date, status, created_at FROM patients`)
}

func (s *PostgresStore) ListActivePatients() ([]models.Patient, error) {
	return s.queryPatients(
		`SELECT id, name, phone, language, lmp_date, status, created_at FROM patients WHERE status = 'active'`,
	)
}

func (s *PostgresStore) queryPatients(query string, args ...interface{}) ([]models.Patient, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore patient query failed", "error", err)
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()
	return scanPatients(rows)
}

func (s *PostgresStore) AddActionLog(e models.ActionLogEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO action_logs (patient_id, kind, external_id, week, status, duration, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.PatientID, e.Kind, e.ExternalID, e.Week, e.Status, e.Duration, e.Timestamp,
	)
	if err != nil {
		slog.Error("PostgresStore AddActionLog failed", "error", err, "patientID", e.PatientID, "kind", e.Kind)
		return fmt.Errorf("failed to insert action log for %s: %w", e.PatientID, err)
	}
	return nil
}

func (s *PostgresStore) LatestActionLog(patientID string, kind models.ActionKind) (*models.ActionLogEntry, error) {
	row := s.db.QueryRow(
		`SELECT patient_id, kind, external_id, week, status, duration, timestamp
		 FROM action_logs WHERE patient_id = $1 AND kind = $2
		 ORDER BY timestamp DESC LIMIT 1`,
		patientID, kind,
	)
	e, err := scanActionLogRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore LatestActionLog failed", "error", err, "patientID", patientID, "kind", kind)
		return nil, fmt.Errorf("failed to query latest action log for %s: %w", patientID, err)
	}
	return e, nil
}

func (s *PostgresStore) UpdateCallOutcome(externalID string, status string, duration int) error {
	_, err := s.db.Exec(
		`UPDATE action_logs SET status = $1, duration = $2 WHERE external_id = $3`,
		status, duration, externalID,
	)
	if err != nil {
		slog.Error("PostgresStore UpdateCallOutcome failed", "error", err, "externalID", externalID)
		return fmt.Errorf("failed to update call outcome for %s: %w", externalID, err)
	}
	return nil
}

func (s *PostgresStore) AddAlert(a models.EmergencyAlert) error {
	_, err := s.db.Exec(
		`INSERT INTO emergency_alerts (id, patient_id, patient_name, week, status, timestamp) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, nilIfEmpty(a.PatientID), a.PatientName, a.Week, a.Status, a.Timestamp,
	)
	if err != nil {
		slog.Error("PostgresStore AddAlert failed", "error", err, "patientName", a.PatientName)
		return fmt.Errorf("failed to insert emergency alert for %s: %w", a.PatientName, err)
	}
	return nil
}

func (s *PostgresStore) ListPendingAlerts() ([]models.EmergencyAlert, error) {
	rows, err := s.db.Query(
		`SELECT id, patient_id, patient_name, week, status, timestamp
		 FROM emergency_alerts WHERE status = 'pending' ORDER BY timestamp DESC`,
	)
	if err != nil {
		slog.Error("PostgresStore ListPendingAlerts query failed", "error", err)
		return nil, fmt.Errorf("failed to query pending alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func (s *PostgresStore) AcknowledgeAlert(id string) error {
	res, err := s.db.Exec(`UPDATE emergency_alerts SET status = 'acknowledged' WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore AcknowledgeAlert failed", "error", err, "id", id)
		return fmt.Errorf("failed to acknowledge alert %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrAlertNotFound
	}
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
