// Package domain provides core business rules for the calls bounded context:
// the call event type, its status state machine, and requeue semantics.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CallType identifies why a call is being placed.
type CallType string

const (
	CallTypeWeeklyCheckin      CallType = "weekly_checkin"
	CallTypeMedicationReminder CallType = "medication_reminder"
	CallTypeAppointment        CallType = "appointment_reminder"
	CallTypeHighRiskMonitoring CallType = "high_risk_monitoring"
	CallTypeCallback           CallType = "callback"
)

// Valid reports whether t is a known call type.
func (t CallType) Valid() bool {
	switch t {
	case CallTypeWeeklyCheckin, CallTypeMedicationReminder, CallTypeAppointment,
		CallTypeHighRiskMonitoring, CallTypeCallback:
		return true
	}
	return false
}

// Status is a call event's lifecycle state.
type Status string

const (
	StatusScheduled         Status = "scheduled"
	StatusInProgress        Status = "in_progress"
	StatusCompleted         Status = "completed"
	StatusNoAnswer          Status = "no_answer"
	StatusFailed            Status = "failed"
	StatusCallbackRequested Status = "callback_requested"
)

var (
	// ErrInvalidTransition indicates a requested status change the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid call status transition")

	// ErrTransitionConflict indicates a compare-and-set transition lost
	// against a concurrent writer. The caller's intended change was not
	// applied; the event's current state reflects the winner.
	ErrTransitionConflict = errors.New("concurrent call status transition")
)

// transitions maps each status to the statuses reachable from it.
// Terminal statuses have no outgoing edges; a new event (via Requeue)
// is the only way onward from them.
var transitions = map[Status][]Status{
	StatusScheduled:         {StatusInProgress, StatusFailed},
	StatusInProgress:        {StatusCompleted, StatusNoAnswer, StatusFailed, StatusCallbackRequested},
	StatusCallbackRequested: {StatusCompleted, StatusNoAnswer, StatusFailed},
	StatusCompleted:         {},
	StatusNoAnswer:          {},
	StatusFailed:            {},
}

// CanTransition reports whether the state machine allows from → to.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(s Status) bool {
	allowed, known := transitions[s]
	return known && len(allowed) == 0
}

// CallEvent is the unit of scheduling: one planned (or completed) outbound
// call to a patient. Events are never deleted; terminal events are retained
// for history and analytics.
type CallEvent struct {
	ID              uuid.UUID
	PatientID       uuid.UUID
	CallType        CallType
	ScheduledTime   time.Time
	MessageText     string
	Status          Status
	ProviderCallRef *string
	CompletedAt     *time.Time
	FailureReason   *string
	AttemptCount    int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Requeue derives a fresh scheduled event from a terminal one. The original
// event is left untouched; the clone carries the incremented attempt count
// so retry history stays visible.
func (e CallEvent) Requeue(scheduledTime time.Time) (CallEvent, error) {
	if !IsTerminal(e.Status) {
		return CallEvent{}, ErrInvalidTransition
	}

	return CallEvent{
		PatientID:     e.PatientID,
		CallType:      e.CallType,
		ScheduledTime: scheduledTime,
		MessageText:   e.MessageText,
		Status:        StatusScheduled,
		AttemptCount:  e.AttemptCount + 1,
	}, nil
}
