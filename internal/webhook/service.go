// Package webhook reconciles voice provider callbacks with call event
// state and serves the TwiML documents driving the scripted call flow.
package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"sabcare_backend/internal/calls/domain"
	"sabcare_backend/internal/calls/repository"
	"sabcare_backend/internal/events"
	"sabcare_backend/platform/apperr"
	"sabcare_backend/platform/logger"
)

// EventStore is the slice of the call repository the reconciler needs.
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.CallEvent, error)
	GetByProviderRef(ctx context.Context, ref string) (domain.CallEvent, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
}

// RecordingInput carries one recorded patient message from the provider.
type RecordingInput struct {
	CallerNumber string
	RecordingURL string
	CallSID      string
	Transcript   string
	CallEventID  *uuid.UUID
}

// MessageIntake accepts recorded patient messages for asynchronous
// processing. Implemented by the messages module.
type MessageIntake interface {
	ReceiveRecording(ctx context.Context, in RecordingInput) error
}

// CallerInfo identifies a patient who dialed the care line.
type CallerInfo struct {
	ID   uuid.UUID
	Name string
}

// CallerDirectory resolves inbound callers to patients. Implemented by
// the patients module.
type CallerDirectory interface {
	ResolveCaller(ctx context.Context, phone string) (CallerInfo, error)
}

// Service reconciles provider callbacks onto call events.
type Service struct {
	store     EventStore
	intake    MessageIntake
	directory CallerDirectory
	bus       events.Bus
	log       *logger.Logger
}

// New creates a webhook service. directory may be nil; inbound callers are
// then greeted anonymously.
func New(store EventStore, intake MessageIntake, directory CallerDirectory, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, intake: intake, directory: directory, bus: bus, log: log}
}

// IdentifyCaller resolves an inbound caller's patient record by phone
// number. The second return is false for unknown numbers.
func (s *Service) IdentifyCaller(ctx context.Context, phone string) (CallerInfo, bool) {
	if s.directory == nil || phone == "" {
		return CallerInfo{}, false
	}
	caller, err := s.directory.ResolveCaller(ctx, phone)
	if err != nil {
		if apperr.GetKind(err) != apperr.KindNotFound {
			s.log.Error("caller lookup failed", "phone", phone, "error", err)
		}
		return CallerInfo{}, false
	}
	return caller, true
}

// LookupEvent loads the call event a webhook refers to by its ID.
func (s *Service) LookupEvent(ctx context.Context, id uuid.UUID) (domain.CallEvent, error) {
	return s.store.GetByID(ctx, id)
}

// ReconcileStatus applies a provider status report to the referenced call
// event. Unknown references and replays are logged and dropped; the
// provider always gets a success response so it stops retrying.
func (s *Service) ReconcileStatus(ctx context.Context, providerRef, providerStatus string) {
	s.log.WebhookEvent("status", providerRef)

	event, err := s.store.GetByProviderRef(ctx, providerRef)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			s.log.WebhookDropped("status", providerRef, "no call event holds this reference")
			return
		}
		s.log.Error("webhook event lookup failed", "providerRef", providerRef, "error", err)
		return
	}

	decision := DecideStatus(event.Status, providerStatus)
	if !decision.Apply {
		s.log.WebhookDropped("status", providerRef, "status "+providerStatus+" not applicable from "+string(event.Status))
		return
	}

	params := repository.TransitionParams{
		ID:   event.ID,
		From: decision.From,
		To:   decision.To,
	}
	switch decision.To {
	case domain.StatusCompleted:
		now := time.Now()
		params.CompletedAt = &now
	case domain.StatusFailed:
		reason := "provider reported " + providerStatus
		params.FailureReason = &reason
	}

	if err := s.store.Transition(ctx, params); err != nil {
		// A concurrent webhook replay already applied the transition.
		if errors.Is(err, domain.ErrTransitionConflict) {
			s.log.WebhookDropped("status", providerRef, "concurrent transition already applied")
			return
		}
		s.log.Error("webhook transition failed", "providerRef", providerRef, "error", err)
		return
	}

	s.publishOutcome(ctx, event, decision.To, providerStatus)
}

// RecordKeyPress handles the press-1 flow: the patient asked to leave a
// message, so the call moves to callback_requested.
func (s *Service) RecordKeyPress(ctx context.Context, eventID uuid.UUID) {
	err := s.store.Transition(ctx, repository.TransitionParams{
		ID:   eventID,
		From: domain.StatusInProgress,
		To:   domain.StatusCallbackRequested,
	})
	if err != nil {
		// Not fatal for the caller; the recording still proceeds.
		s.log.Warn("key press transition not applied", "callEventId", eventID, "error", err)
		return
	}

	event, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		return
	}
	s.bus.Publish(ctx, events.CallbackRequested{
		BaseEvent:   events.NewBaseEvent(),
		CallEventID: event.ID,
		PatientID:   event.PatientID,
	})
}

// ReceiveRecording forwards a recorded message into the intake pipeline.
func (s *Service) ReceiveRecording(ctx context.Context, in RecordingInput) error {
	return s.intake.ReceiveRecording(ctx, in)
}

func (s *Service) publishOutcome(ctx context.Context, event domain.CallEvent, to domain.Status, providerStatus string) {
	switch to {
	case domain.StatusCompleted:
		s.bus.Publish(ctx, events.CallCompleted{
			BaseEvent:   events.NewBaseEvent(),
			CallEventID: event.ID,
			PatientID:   event.PatientID,
			CallType:    string(event.CallType),
		})
	case domain.StatusFailed:
		s.bus.Publish(ctx, events.CallFailed{
			BaseEvent:   events.NewBaseEvent(),
			CallEventID: event.ID,
			PatientID:   event.PatientID,
			Reason:      "provider reported " + providerStatus,
		})
	}
}
