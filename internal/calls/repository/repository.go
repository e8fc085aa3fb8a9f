package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sabcare_backend/internal/calls/domain"
	"sabcare_backend/platform/apperr"
)

const callEventNotFoundMessage = "call event not found"

const eventColumns = `id, patient_id, call_type, scheduled_time, message_text, status, provider_call_ref, completed_at, failure_reason, attempt_count, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new call events repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a call event by ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.CallEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM call_events WHERE id = $1`

	e, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CallEvent{}, apperr.NotFound(callEventNotFoundMessage)
		}
		return domain.CallEvent{}, fmt.Errorf("get call event by id: %w", err)
	}

	return e, nil
}

// GetByProviderRef retrieves the call event holding a provider call reference.
// Used by the webhook reconciler to map provider callbacks onto events.
func (r *Repo) GetByProviderRef(ctx context.Context, ref string) (domain.CallEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM call_events WHERE provider_call_ref = $1`

	e, err := scanEvent(r.pool.QueryRow(ctx, query, ref))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CallEvent{}, apperr.NotFound(callEventNotFoundMessage)
		}
		return domain.CallEvent{}, fmt.Errorf("get call event by provider ref: %w", err)
	}

	return e, nil
}

// QueryDue returns scheduled events whose scheduled time is at or before now.
func (r *Repo) QueryDue(ctx context.Context, now time.Time, limit int) ([]domain.CallEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM call_events
		WHERE status = 'scheduled' AND scheduled_time <= $1
		ORDER BY scheduled_time ASC
		LIMIT $2`

	return r.queryEvents(ctx, "query due call events", query, now, limit)
}

// ListByPatient returns all call events for a patient, newest first.
func (r *Repo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.CallEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM call_events
		WHERE patient_id = $1
		ORDER BY scheduled_time DESC`

	return r.queryEvents(ctx, "list call events by patient", query, patientID)
}

// ListUpcoming returns scheduled events inside the window, soonest first.
func (r *Repo) ListUpcoming(ctx context.Context, from, until time.Time, limit int) ([]domain.CallEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM call_events
		WHERE status = 'scheduled' AND scheduled_time >= $1 AND scheduled_time <= $2
		ORDER BY scheduled_time ASC
		LIMIT $3`

	return r.queryEvents(ctx, "list upcoming call events", query, from, until, limit)
}

// Insert persists a new call event.
func (r *Repo) Insert(ctx context.Context, event domain.CallEvent) (domain.CallEvent, error) {
	query := `
		INSERT INTO call_events (patient_id, call_type, scheduled_time, message_text, status, attempt_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + eventColumns

	e, err := scanEvent(r.pool.QueryRow(ctx, query,
		event.PatientID, event.CallType, event.ScheduledTime, event.MessageText, event.Status, event.AttemptCount,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return domain.CallEvent{}, apperr.Conflict("call event already exists")
			case "23503":
				return domain.CallEvent{}, apperr.Validation("patient does not exist")
			}
		}
		return domain.CallEvent{}, fmt.Errorf("insert call event: %w", err)
	}

	return e, nil
}

// InsertBatch persists generated events in one transaction so a partial
// schedule is never left behind.
func (r *Repo) InsertBatch(ctx context.Context, events []domain.CallEvent) ([]domain.CallEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin insert batch: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO call_events (patient_id, call_type, scheduled_time, message_text, status, attempt_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + eventColumns

	inserted := make([]domain.CallEvent, 0, len(events))
	for _, event := range events {
		e, err := scanEvent(tx.QueryRow(ctx, query,
			event.PatientID, event.CallType, event.ScheduledTime, event.MessageText, event.Status, event.AttemptCount,
		))
		if err != nil {
			return nil, fmt.Errorf("insert call event batch: %w", err)
		}
		inserted = append(inserted, e)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit insert batch: %w", err)
	}

	return inserted, nil
}

// Transition applies a compare-and-set status change. The WHERE clause on
// the expected status is what makes concurrent dispatcher ticks safe: only
// one writer observes a row change, every other one gets a conflict.
func (r *Repo) Transition(ctx context.Context, params TransitionParams) error {
	if !domain.CanTransition(params.From, params.To) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, params.From, params.To)
	}

	query := `
		UPDATE call_events SET
			status = $3,
			completed_at = COALESCE($4, completed_at),
			failure_reason = COALESCE($5, failure_reason),
			updated_at = now()
		WHERE id = $1 AND status = $2`

	result, err := r.pool.Exec(ctx, query,
		params.ID, params.From, params.To, params.CompletedAt, params.FailureReason,
	)
	if err != nil {
		return fmt.Errorf("transition call event: %w", err)
	}

	if result.RowsAffected() == 0 {
		var current domain.Status
		err := r.pool.QueryRow(ctx, `SELECT status FROM call_events WHERE id = $1`, params.ID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(callEventNotFoundMessage)
		}
		if err != nil {
			return fmt.Errorf("transition call event recheck: %w", err)
		}
		return fmt.Errorf("%w: expected %s, found %s", domain.ErrTransitionConflict, params.From, current)
	}

	return nil
}

// UpdateScheduled applies an operator edit to a call that is still
// scheduled. The status guard keeps edits off claimed and terminal rows.
func (r *Repo) UpdateScheduled(ctx context.Context, params UpdateScheduledParams) (domain.CallEvent, error) {
	query := `
		UPDATE call_events SET
			scheduled_time = COALESCE($2, scheduled_time),
			message_text = COALESCE($3, message_text),
			updated_at = now()
		WHERE id = $1 AND status = 'scheduled'
		RETURNING ` + eventColumns

	e, err := scanEvent(r.pool.QueryRow(ctx, query, params.ID, params.ScheduledTime, params.MessageText))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var current domain.Status
			err := r.pool.QueryRow(ctx, `SELECT status FROM call_events WHERE id = $1`, params.ID).Scan(&current)
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.CallEvent{}, apperr.NotFound(callEventNotFoundMessage)
			}
			if err != nil {
				return domain.CallEvent{}, fmt.Errorf("update scheduled call recheck: %w", err)
			}
			return domain.CallEvent{}, apperr.Conflict(fmt.Sprintf("call event is already %s", current))
		}
		return domain.CallEvent{}, fmt.Errorf("update scheduled call: %w", err)
	}

	return e, nil
}

// SetProviderRef records the provider's call reference after placement.
func (r *Repo) SetProviderRef(ctx context.Context, id uuid.UUID, ref string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE call_events SET provider_call_ref = $2, updated_at = now() WHERE id = $1`, id, ref)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("provider call reference already recorded on another event")
		}
		return fmt.Errorf("set provider ref: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(callEventNotFoundMessage)
	}
	return nil
}

// SetMessageText stores a lazily rendered call script on the event.
func (r *Repo) SetMessageText(ctx context.Context, id uuid.UUID, text string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE call_events SET message_text = $2, updated_at = now() WHERE id = $1`, id, text)
	if err != nil {
		return fmt.Errorf("set message text: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(callEventNotFoundMessage)
	}
	return nil
}

func (r *Repo) queryEvents(ctx context.Context, op, query string, args ...interface{}) ([]domain.CallEvent, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var results []domain.CallEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}

	return results, nil
}

func scanEvent(row pgx.Row) (domain.CallEvent, error) {
	var e domain.CallEvent
	err := row.Scan(
		&e.ID, &e.PatientID, &e.CallType, &e.ScheduledTime, &e.MessageText, &e.Status,
		&e.ProviderCallRef, &e.CompletedAt, &e.FailureReason, &e.AttemptCount,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return domain.CallEvent{}, err
	}
	return e, nil
}
