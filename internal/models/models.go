// Package models defines the core data structures for AshaSetu.
//
// It includes patient records, dispatch logs, and emergency alerts, which are
// shared across the scheduler, IVR, and store modules.
package models

import (
	"errors"
	"time"
)

// Language identifies the language used for calls and messages to a patient.
type Language string

const (
	// LanguageHindi is the primary outreach language.
	LanguageHindi Language = "hindi"
	// LanguageEnglish is the secondary outreach language.
	LanguageEnglish Language = "english"
)

// NormalizeLanguage maps arbitrary input to a supported language, defaulting
// to Hindi the way the outreach program enrolls patients.
func NormalizeLanguage(s string) Language {
	if Language(s) == LanguageEnglish {
		return LanguageEnglish
	}
	return LanguageHindi
}

// PatientStatus represents the enrollment status of a patient.
type PatientStatus string

const (
	// PatientStatusActive indicates the patient receives scheduled outreach.
	PatientStatusActive PatientStatus = "active"
	// PatientStatusInactive indicates outreach is suspended for the patient.
	PatientStatusInactive PatientStatus = "inactive"
)

// ActionKind distinguishes the two dispatch channels.
type ActionKind string

const (
	// ActionCall is an outbound voice call dispatch.
	ActionCall ActionKind = "call"
	// ActionMessage is an outbound WhatsApp message dispatch.
	ActionMessage ActionKind = "message"
)

// ActionStatus represents the outcome of a dispatch attempt.
type ActionStatus string

const (
	// ActionStatusInitiated indicates the transport accepted the dispatch.
	ActionStatusInitiated ActionStatus = "initiated"
	// ActionStatusFailed indicates the transport rejected the dispatch.
	ActionStatusFailed ActionStatus = "failed"
)

// AlertStatus represents the lifecycle state of an emergency alert.
type AlertStatus string

const (
	// AlertStatusPending indicates the alert awaits human triage.
	AlertStatusPending AlertStatus = "pending"
	// AlertStatusAcknowledged indicates a worker has picked up the alert.
	AlertStatusAcknowledged AlertStatus = "acknowledged"
)

// Error variables for better error handling and testability
var (
	ErrEmptyPatientName = errors.New("patient name cannot be empty")
	ErrEmptyPhone       = errors.New("patient phone cannot be empty")
	ErrMissingLMPDate   = errors.New("last menstrual period date is required")
	ErrInvalidKind      = errors.New("invalid action kind")
	ErrPatientNotFound  = errors.New("patient not found")
	ErrAlertNotFound    = errors.New("alert not found")
)

// IsValidActionKind checks if the given action kind is supported.
func IsValidActionKind(k ActionKind) bool {
	switch k {
	case ActionCall, ActionMessage:
		return true
	default:
		return false
	}
}

// Patient represents an enrolled pregnant patient. Records are created by the
// enrollment surface; the outreach core only reads them.
type Patient struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Phone     string        `json:"phone"`
	Language  Language      `json:"language"`
	LMPDate   time.Time     `json:"lmp_date"`
	Status    PatientStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// Validate checks the fields the outreach core depends on.
func (p *Patient) Validate() error {
	if p.Name == "" {
		return ErrEmptyPatientName
	}
	if p.Phone == "" {
		return ErrEmptyPhone
	}
	if p.LMPDate.IsZero() {
		return ErrMissingLMPDate
	}
	return nil
}

// ActionLogEntry records one dispatch attempt. Entries are append-only; the
// dedup gate consults only the most recent entry per (patient, kind).
type ActionLogEntry struct {
	PatientID  string       `json:"patient_id"`
	Kind       ActionKind   `json:"kind"`
	ExternalID string       `json:"external_id"` // transport SID, or a minted id on failure
	Week       int          `json:"week"`
	Status     ActionStatus `json:"status"`
	Duration   int          `json:"duration,omitempty"` // seconds, filled by the status callback
	Timestamp  time.Time    `json:"timestamp"`
}

// EmergencyAlert is created when a caller signals an emergency during an IVR
// session or an inbound message. Triage beyond "pending" is a human workflow.
type EmergencyAlert struct {
	ID          string      `json:"id"`
	PatientID   string      `json:"patient_id,omitempty"`
	PatientName string      `json:"patient_name"`
	Week        int         `json:"week"`
	Status      AlertStatus `json:"status"`
	Timestamp   time.Time   `json:"timestamp"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
