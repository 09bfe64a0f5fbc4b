// Package dispatch decides which patients are contacted and fans out the
// per-patient call and message dispatches for a batch run.
package dispatch

import (
	"fmt"
	"time"

	"github.com/ashasetu/ashasetu/internal/models"
)

// DefaultCallIntervalDays is the minimum number of whole days between two
// calls to the same patient.
const DefaultCallIntervalDays = 2

// messageDays are the calendar days on which the message batch fires.
var messageDays = map[time.Weekday]bool{
	time.Monday:    true,
	time.Wednesday: true,
	time.Friday:    true,
}

// LogReader is the slice of the store the gate needs.
type LogReader interface {
	LatestActionLog(patientID string, kind models.ActionKind) (*models.ActionLogEntry, error)
}

// Gate decides whether a dispatch is due for a patient. Calls use interval
// mode: due when the most recent call log is at least the minimum interval
// old, or when no log exists. Messages use calendar mode: due on configured
// weekdays with no log lookback. The message path intentionally has no
// per-patient history check; the external trigger firing once per day is what
// bounds it.
type Gate struct {
	logs             LogReader
	callIntervalDays int
}

// NewGate creates a Gate reading dispatch history from logs.
func NewGate(logs LogReader) *Gate {
	return &Gate{logs: logs, callIntervalDays: DefaultCallIntervalDays}
}

// IsDue reports whether a dispatch of the given kind is due for the patient
// at the given time. For message kind the patient id is ignored.
func (g *Gate) IsDue(patientID string, kind models.ActionKind, now time.Time) (bool, error) {
	switch kind {
	case models.ActionCall:
		entry, err := g.logs.LatestActionLog(patientID, models.ActionCall)
		if err != nil {
			return false, fmt.Errorf("failed to read call history for %s: %w", patientID, err)
		}
		if entry == nil {
			return true, nil
		}
		daysSince := int(now.Sub(entry.Timestamp).Hours() / 24)
		return daysSince >= g.callIntervalDays, nil
	case models.ActionMessage:
		return messageDays[now.Weekday()], nil
	default:
		return false, models.ErrInvalidKind
	}
}
