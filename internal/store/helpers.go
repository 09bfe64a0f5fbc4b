package store

import (
	"database/sql"
	"fmt"

	"github.com/ashasetu/ashasetu/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanPatientRow scans a Patient from a single sql.Row.
func scanPatientRow(row *sql.Row) (*models.Patient, error) {
	var p models.Patient
	err := row.Scan(&p.ID, &p.Name, &p.Phone, &p.Language, &p.LMPDate, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// scanPatients scans all Patient rows.
func scanPatients(rows *sql.Rows) ([]models.Patient, error) {
	var patients []models.Patient
	for rows.Next() {
		var p models.Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.Language, &p.LMPDate, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan patient failed: %w", err)
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patient rows failed: %w", err)
	}
	return patients, nil
}

// scanActionLogRow scans an ActionLogEntry from a single sql.Row.
func scanActionLogRow(row *sql.Row) (*models.ActionLogEntry, error) {
	var e models.ActionLogEntry
	err := row.Scan(&e.PatientID, &e.Kind, &e.ExternalID, &e.Week, &e.Status, &e.Duration, &e.Timestamp)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// scanAlerts scans all EmergencyAlert rows.
func scanAlerts(rows *sql.Rows) ([]models.EmergencyAlert, error) {
	var alerts []models.EmergencyAlert
	for rows.Next() {
		var a models.EmergencyAlert
		var patientID sql.NullString
		if err := rows.Scan(&a.ID, &patientID, &a.PatientName, &a.Week, &a.Status, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan alert failed: %w", err)
		}
		a.PatientID = patientID.String
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert rows failed: %w", err)
	}
	return alerts, nil
}
