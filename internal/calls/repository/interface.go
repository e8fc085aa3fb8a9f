package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sabcare_backend/internal/calls/domain"
)

// TransitionParams describes one compare-and-set status transition.
// From is the status the caller believes the event is in; the transition
// is applied only if that still holds.
type TransitionParams struct {
	ID            uuid.UUID
	From          domain.Status
	To            domain.Status
	CompletedAt   *time.Time
	FailureReason *string
}

// EventReader provides read operations for call events.
type EventReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.CallEvent, error)
	GetByProviderRef(ctx context.Context, ref string) (domain.CallEvent, error)
	// QueryDue returns scheduled events whose time has arrived, oldest first.
	QueryDue(ctx context.Context, now time.Time, limit int) ([]domain.CallEvent, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.CallEvent, error)
	// ListUpcoming returns scheduled events within the window, soonest first.
	ListUpcoming(ctx context.Context, from, until time.Time, limit int) ([]domain.CallEvent, error)
}

// UpdateScheduledParams carries an operator edit of a still-scheduled
// call. Nil fields keep their current value.
type UpdateScheduledParams struct {
	ID            uuid.UUID
	ScheduledTime *time.Time
	MessageText   *string
}

// EventWriter provides write operations for call events.
type EventWriter interface {
	Insert(ctx context.Context, event domain.CallEvent) (domain.CallEvent, error)
	InsertBatch(ctx context.Context, events []domain.CallEvent) ([]domain.CallEvent, error)
	// UpdateScheduled edits a call that has not been claimed yet. It
	// returns apperr.NotFound for a missing event and apperr.Conflict
	// once the call has left the scheduled state.
	UpdateScheduled(ctx context.Context, params UpdateScheduledParams) (domain.CallEvent, error)
	// Transition applies a status change through the state machine. It
	// returns domain.ErrInvalidTransition for a change the table forbids,
	// domain.ErrTransitionConflict when a concurrent writer got there
	// first, and apperr.NotFound when the event does not exist.
	Transition(ctx context.Context, params TransitionParams) error
	SetProviderRef(ctx context.Context, id uuid.UUID, ref string) error
	SetMessageText(ctx context.Context, id uuid.UUID, text string) error
}

// Repository combines all call event repository operations.
type Repository interface {
	EventReader
	EventWriter
}
