// Package service implements the recorded message pipeline: intake of
// provider recordings, asynchronous summarization, and callback
// scheduling.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sabcare_backend/internal/events"
	"sabcare_backend/internal/messages/repository"
	"sabcare_backend/platform/logger"
)

// PatientInfo is the slice of a patient profile the pipeline needs.
type PatientInfo struct {
	ID          uuid.UUID
	Name        string
	PhoneNumber string
}

// PatientDirectory resolves patients for inbound recordings.
// Implemented by an adapter over the patients module.
type PatientDirectory interface {
	ResolveByPhone(ctx context.Context, phone string) (PatientInfo, error)
	ResolveByID(ctx context.Context, id uuid.UUID) (PatientInfo, error)
}

// CallbackScheduler creates the follow-up call event for a processed
// message. Implemented by an adapter over the calls module.
type CallbackScheduler interface {
	ScheduleCallback(ctx context.Context, patientID uuid.UUID, at time.Time) (uuid.UUID, error)
}

// Archive stores a durable copy of the provider recording. A nil-safe
// implementation may decline by returning an empty object key.
type Archive interface {
	ArchiveRecording(ctx context.Context, patientID, messageID uuid.UUID, recordingURL string) (string, error)
}

// Enqueuer queues a stored message for background processing.
type Enqueuer interface {
	EnqueueMessageProcessing(ctx context.Context, messageID, patientID uuid.UUID) error
}

// Summarizer condenses a message transcript for the care team.
type Summarizer interface {
	SummarizeMessage(ctx context.Context, patientName, transcript string) (string, error)
}

// Alerter notifies an operator about messages that need manual attention.
type Alerter interface {
	SendOperatorAlert(ctx context.Context, subject, body string) error
}

// Config carries the pipeline settings.
type Config interface {
	GetCallbackDelay() time.Duration
}

// Service runs the message pipeline.
type Service struct {
	repo       repository.Repository
	patients   PatientDirectory
	callbacks  CallbackScheduler
	archive    Archive
	enqueuer   Enqueuer
	summarizer Summarizer
	alerts     Alerter
	bus        events.Bus
	cfg        Config
	log        *logger.Logger

	now func() time.Time
}

// New creates the message pipeline service. archive, enqueuer, summarizer
// and alerts may be nil; the pipeline degrades instead of failing.
func New(
	repo repository.Repository,
	patients PatientDirectory,
	callbacks CallbackScheduler,
	archive Archive,
	enqueuer Enqueuer,
	summarizer Summarizer,
	alerts Alerter,
	bus events.Bus,
	cfg Config,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:       repo,
		patients:   patients,
		callbacks:  callbacks,
		archive:    archive,
		enqueuer:   enqueuer,
		summarizer: summarizer,
		alerts:     alerts,
		bus:        bus,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// GetByID returns one stored message.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (repository.Message, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns stored messages newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, status repository.Status, limit int) ([]repository.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(ctx, status, limit)
}
