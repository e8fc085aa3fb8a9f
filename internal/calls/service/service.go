package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"sabcare_backend/internal/calls/domain"
	"sabcare_backend/internal/calls/execution"
	"sabcare_backend/internal/calls/repository"
	"sabcare_backend/internal/calls/schedule"
	"sabcare_backend/internal/calls/transport"
	"sabcare_backend/platform/apperr"
	"sabcare_backend/platform/logger"
)

// defaultRequeueDelay is used when an operator requeues a call without an
// explicit time.
const defaultRequeueDelay = 5 * time.Minute

// defaultUpcomingLimit caps the upcoming-calls listing.
const defaultUpcomingLimit = 10

// defaultUpcomingWindow bounds the upcoming-calls listing when the caller
// gives no window.
const defaultUpcomingWindow = 7 * 24 * time.Hour

// PatientSource resolves the patient snapshot the schedule generator runs on.
type PatientSource interface {
	Snapshot(ctx context.Context, id uuid.UUID) (schedule.Patient, error)
}

// Service provides business logic for call scheduling and lifecycle.
type Service struct {
	repo     repository.Repository
	patients PatientSource
	engine   *execution.Engine
	schedCfg schedule.Config
	log      *logger.Logger
}

// New creates a new calls service.
func New(repo repository.Repository, patients PatientSource, engine *execution.Engine, schedCfg schedule.Config, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		engine:   engine,
		schedCfg: schedCfg,
		log:      log,
	}
}

// GenerateSchedule computes and persists the patient's future call plan.
// Only the delta against already existing events is inserted, so calling
// this repeatedly (or after every profile edit) is safe.
func (s *Service) GenerateSchedule(ctx context.Context, patientID uuid.UUID) (transport.GenerateScheduleResponse, error) {
	patient, err := s.patients.Snapshot(ctx, patientID)
	if err != nil {
		return transport.GenerateScheduleResponse{}, err
	}

	existing, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return transport.GenerateScheduleResponse{}, err
	}

	delta := schedule.Generate(patient, existing, time.Now(), s.schedCfg)
	inserted, err := s.repo.InsertBatch(ctx, delta)
	if err != nil {
		return transport.GenerateScheduleResponse{}, err
	}

	s.log.Info("call schedule generated", "patientId", patientID, "created", len(inserted))

	items := make([]transport.CallEventResponse, 0, len(inserted))
	for _, e := range inserted {
		items = append(items, transport.ToResponse(e))
	}
	return transport.GenerateScheduleResponse{Created: len(inserted), Items: items}, nil
}

// GetByID retrieves a single call event.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.CallEventResponse, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.CallEventResponse{}, err
	}
	return transport.ToResponse(e), nil
}

// ListByPatient returns a patient's full call history, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) (transport.CallEventListResponse, error) {
	events, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return transport.CallEventListResponse{}, err
	}
	return transport.ToListResponse(events), nil
}

// ListUpcoming returns the next scheduled calls inside the window, a week
// when the caller gives none.
func (s *Service) ListUpcoming(ctx context.Context, within time.Duration, limit int) (transport.CallEventListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultUpcomingLimit
	}
	if within <= 0 {
		within = defaultUpcomingWindow
	}

	now := time.Now()
	events, err := s.repo.ListUpcoming(ctx, now, now.Add(within), limit)
	if err != nil {
		return transport.CallEventListResponse{}, err
	}
	return transport.ToListResponse(events), nil
}

// ExecuteNow places a scheduled call immediately, competing with the
// dispatcher through the same compare-and-set claim.
func (s *Service) ExecuteNow(ctx context.Context, id uuid.UUID) (transport.ExecuteResponse, error) {
	result, err := s.engine.Execute(ctx, id)
	if err != nil {
		return transport.ExecuteResponse{}, err
	}
	return transport.ExecuteResponse{
		Placed:         result.Placed,
		ProviderRef:    result.ProviderRef,
		AlreadyHandled: result.AlreadyHandled,
		Reason:         result.Reason,
	}, nil
}

// Reschedule applies an operator edit to a call that has not been placed
// yet. Claimed and terminal calls reject the edit with a conflict.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req transport.UpdateCallRequest) (transport.CallEventResponse, error) {
	if req.ScheduledTime == nil && req.MessageText == nil {
		return transport.CallEventResponse{}, apperr.Validation("nothing to update")
	}
	if req.ScheduledTime != nil && !req.ScheduledTime.After(time.Now()) {
		return transport.CallEventResponse{}, apperr.Validation("scheduled time must be in the future")
	}

	updated, err := s.repo.UpdateScheduled(ctx, repository.UpdateScheduledParams{
		ID:            id,
		ScheduledTime: req.ScheduledTime,
		MessageText:   req.MessageText,
	})
	if err != nil {
		return transport.CallEventResponse{}, err
	}

	s.log.Info("call event rescheduled", "callEventId", id, "scheduledTime", updated.ScheduledTime)
	return transport.ToResponse(updated), nil
}

// Requeue clones a terminal call event into a new scheduled one. The
// terminal record itself is immutable history.
func (s *Service) Requeue(ctx context.Context, id uuid.UUID, req transport.RequeueRequest) (transport.CallEventResponse, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.CallEventResponse{}, err
	}

	scheduledTime := time.Now().Add(defaultRequeueDelay)
	if req.ScheduledTime != nil {
		scheduledTime = *req.ScheduledTime
	}
	if !scheduledTime.After(time.Now()) {
		return transport.CallEventResponse{}, apperr.Validation("requeue time must be in the future")
	}

	clone, err := event.Requeue(scheduledTime)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return transport.CallEventResponse{}, apperr.Conflict("only completed, failed, or no-answer calls can be requeued")
		}
		return transport.CallEventResponse{}, err
	}

	inserted, err := s.repo.Insert(ctx, clone)
	if err != nil {
		return transport.CallEventResponse{}, err
	}

	s.log.Info("call event requeued", "originalId", id, "newId", inserted.ID, "attemptCount", inserted.AttemptCount)
	return transport.ToResponse(inserted), nil
}
