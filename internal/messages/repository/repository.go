package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sabcare_backend/platform/apperr"
)

const messageNotFoundMessage = "message not found"

const messageColumns = `id, patient_id, call_event_id, recording_url, recording_object_key, transcript, summary, status, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new patient messages repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a message by ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Message, error) {
	query := `SELECT ` + messageColumns + ` FROM patient_messages WHERE id = $1`

	m, err := scanMessage(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, apperr.NotFound(messageNotFoundMessage)
		}
		return Message{}, fmt.Errorf("get message by id: %w", err)
	}

	return m, nil
}

// List retrieves messages newest first. An empty status returns all.
func (r *Repo) List(ctx context.Context, status Status, limit int) ([]Message, error) {
	query := `SELECT ` + messageColumns + ` FROM patient_messages`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var results []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return results, nil
}

// CountByStatus returns the number of messages in each pipeline stage.
func (r *Repo) CountByStatus(ctx context.Context) (map[Status]int, error) {
	query := `SELECT status, COUNT(*) FROM patient_messages GROUP BY status`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan message count: %w", err)
		}
		counts[Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message counts: %w", err)
	}

	return counts, nil
}

// Create stores a new recorded message in the pending state.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Message, error) {
	query := `
		INSERT INTO patient_messages (patient_id, call_event_id, recording_url, transcript)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + messageColumns

	m, err := scanMessage(r.pool.QueryRow(ctx, query,
		params.PatientID, params.CallEventID, params.RecordingURL, params.Transcript,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Message{}, apperr.Validation("referenced patient or call event does not exist")
		}
		return Message{}, fmt.Errorf("create message: %w", err)
	}

	return m, nil
}

// ClaimProcessing moves a pending or failed message into processing. The
// status guard makes concurrent workers race safely; losers get a conflict.
func (r *Repo) ClaimProcessing(ctx context.Context, id uuid.UUID) (Message, error) {
	query := `
		UPDATE patient_messages
		SET status = 'processing', updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'failed')
		RETURNING ` + messageColumns

	m, err := scanMessage(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.classifyClaimMiss(ctx, id)
		}
		return Message{}, fmt.Errorf("claim message: %w", err)
	}

	return m, nil
}

func (r *Repo) classifyClaimMiss(ctx context.Context, id uuid.UUID) (Message, error) {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM patient_messages WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, apperr.NotFound(messageNotFoundMessage)
	}
	if err != nil {
		return Message{}, fmt.Errorf("inspect message status: %w", err)
	}
	return Message{}, apperr.Conflict(fmt.Sprintf("message is already %s", status))
}

// MarkProcessed records the summary and the derived callback call event.
func (r *Repo) MarkProcessed(ctx context.Context, id uuid.UUID, summary string, callbackEventID *uuid.UUID) error {
	query := `
		UPDATE patient_messages
		SET status = 'processed',
		    summary = $2,
		    call_event_id = COALESCE($3, call_event_id),
		    updated_at = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, summary, callbackEventID)
	if err != nil {
		return fmt.Errorf("mark message processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(messageNotFoundMessage)
	}
	return nil
}

// MarkFailed flags a message for manual operator attention.
func (r *Repo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE patient_messages SET status = 'failed', updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark message failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(messageNotFoundMessage)
	}
	return nil
}

// SetRecordingObjectKey records where the archived recording copy lives.
func (r *Repo) SetRecordingObjectKey(ctx context.Context, id uuid.UUID, objectKey string) error {
	query := `UPDATE patient_messages SET recording_object_key = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, objectKey)
	if err != nil {
		return fmt.Errorf("set recording object key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(messageNotFoundMessage)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (Message, error) {
	var m Message
	var status string
	err := row.Scan(
		&m.ID, &m.PatientID, &m.CallEventID, &m.RecordingURL, &m.RecordingObjectKey,
		&m.Transcript, &m.Summary, &status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return Message{}, err
	}
	m.Status = Status(status)
	return m, nil
}
