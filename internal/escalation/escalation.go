// Package escalation records emergency alerts for human follow-up.
package escalation

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ashasetu/ashasetu/internal/models"
)

// AlertWriter is the slice of the store the escalator needs.
type AlertWriter interface {
	AddAlert(a models.EmergencyAlert) error
}

// Escalator creates pending emergency alerts. Repeat escalations within one
// call each append a fresh alert; downstream triage de-duplicates.
type Escalator struct {
	alerts AlertWriter
}

// NewEscalator creates an Escalator writing alerts through the given store.
func NewEscalator(alerts AlertWriter) *Escalator {
	return &Escalator{alerts: alerts}
}

// Escalate records a pending alert for the patient. A store-write failure is
// logged and swallowed: the spoken emergency guidance has already been
// delivered to the caller and must not be undone by a failed write.
func (e *Escalator) Escalate(patientID, patientName string, week int, now time.Time) {
	alert := models.EmergencyAlert{
		ID:          uuid.NewString(),
		PatientID:   patientID,
		PatientName: patientName,
		Week:        week,
		Status:      models.AlertStatusPending,
		Timestamp:   now,
	}
	if err := e.alerts.AddAlert(alert); err != nil {
		slog.Error("Failed to record emergency alert", "error", err, "patientID", patientID, "patientName", patientName, "week", week)
		return
	}
	slog.Warn("Emergency alert created", "alertID", alert.ID, "patientID", patientID, "patientName", patientName, "week", week)
}
