package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status tracks a recorded message through the processing pipeline.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

// Message is one recorded voice message a patient left for the care team.
type Message struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	CallEventID        *uuid.UUID
	RecordingURL       string
	RecordingObjectKey *string
	Transcript         *string
	Summary            *string
	Status             Status
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CreateParams contains parameters for storing a new recorded message.
type CreateParams struct {
	PatientID    uuid.UUID
	CallEventID  *uuid.UUID
	RecordingURL string
	Transcript   *string
}

// MessageReader provides read operations for patient messages.
type MessageReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Message, error)
	// List returns messages newest first, optionally filtered by status.
	List(ctx context.Context, status Status, limit int) ([]Message, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

// MessageWriter provides write operations for patient messages.
type MessageWriter interface {
	Create(ctx context.Context, params CreateParams) (Message, error)
	// ClaimProcessing moves a pending or failed message to processing.
	// Returns apperr.Conflict when another worker already claimed it.
	ClaimProcessing(ctx context.Context, id uuid.UUID) (Message, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, summary string, callbackEventID *uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
	SetRecordingObjectKey(ctx context.Context, id uuid.UUID, objectKey string) error
}

// Repository combines all patient message repository operations.
type Repository interface {
	MessageReader
	MessageWriter
}
