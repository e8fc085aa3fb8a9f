// Package execution places individual calls: it claims the event, renders
// the script, selects a provider, and classifies the outcome.
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sabcare_backend/internal/ai"
	"sabcare_backend/internal/calls/domain"
	"sabcare_backend/internal/calls/repository"
	"sabcare_backend/internal/events"
	"sabcare_backend/internal/voice"
	"sabcare_backend/platform/logger"
)

// EventStore is the slice of the call repository the engine needs.
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.CallEvent, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
	SetProviderRef(ctx context.Context, id uuid.UUID, ref string) error
	SetMessageText(ctx context.Context, id uuid.UUID, text string) error
}

// Patient is the engine's view of a patient profile.
type Patient struct {
	ID                  uuid.UUID
	Name                string
	PhoneNumber         string
	GestationalAgeWeeks int
	RiskCategory        string
	RiskFactors         []string
	Medications         []ai.MedicationInfo
}

// PatientReader resolves the patient a call event belongs to.
type PatientReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Patient, error)
}

// Alerter notifies an operator about failures that need manual action.
// Implementations must tolerate being called with a nil receiver.
type Alerter interface {
	SendOperatorAlert(ctx context.Context, subject, body string) error
}

// Config bounds the engine's provider interactions.
type Config struct {
	ProviderTimeout time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	// UseVoiceAgent routes calls through the conversational agent
	// provider instead of the scripted one. Read per execution so a
	// config reload takes effect without a restart.
	UseVoiceAgent func() bool
}

// Result reports what happened to an execution attempt.
type Result struct {
	// Placed is true when the provider accepted the call.
	Placed bool
	// ProviderRef is the provider's call reference when Placed.
	ProviderRef string
	// AlreadyHandled is true when another executor claimed the event
	// first; the caller should treat the event as taken care of.
	AlreadyHandled bool
	// Reason explains a rejection.
	Reason string
}

// Engine executes single call events.
type Engine struct {
	store     EventStore
	patients  PatientReader
	generator ai.Generator
	scripted  voice.Provider
	agent     voice.Provider
	bus       events.Bus
	alerts    Alerter
	cfg       Config
	log       *logger.Logger
}

// New creates an execution engine. generator, agent, and alerts may be nil.
func New(store EventStore, patients PatientReader, generator ai.Generator, scripted, agent voice.Provider, bus events.Bus, alerts Alerter, cfg Config, log *logger.Logger) *Engine {
	if cfg.UseVoiceAgent == nil {
		cfg.UseVoiceAgent = func() bool { return false }
	}
	return &Engine{
		store:     store,
		patients:  patients,
		generator: generator,
		scripted:  scripted,
		agent:     agent,
		bus:       bus,
		alerts:    alerts,
		cfg:       cfg,
		log:       log,
	}
}

// Execute claims the event and places the call. Exactly one of any number
// of concurrent executors wins the scheduled → in_progress transition; the
// rest observe AlreadyHandled and do nothing.
func (e *Engine) Execute(ctx context.Context, eventID uuid.UUID) (Result, error) {
	event, err := e.store.GetByID(ctx, eventID)
	if err != nil {
		return Result{}, err
	}

	err = e.store.Transition(ctx, repository.TransitionParams{
		ID:   event.ID,
		From: domain.StatusScheduled,
		To:   domain.StatusInProgress,
	})
	if err != nil {
		if errors.Is(err, domain.ErrTransitionConflict) {
			return Result{AlreadyHandled: true}, nil
		}
		return Result{}, err
	}

	patient, err := e.patients.GetByID(ctx, event.PatientID)
	if err != nil {
		reason := "patient lookup failed: " + err.Error()
		e.markFailed(ctx, event, reason)
		return Result{Reason: reason}, nil
	}

	message := e.renderMessage(ctx, event, patient)

	providerRef, err := e.placeWithRetry(ctx, voice.CallRequest{
		To:       patient.PhoneNumber,
		Message:  message,
		CallType: string(event.CallType),
		EventID:  event.ID.String(),
	})
	if err != nil {
		reason := err.Error()
		e.markFailed(ctx, event, reason)
		e.log.CallRejected(event.ID.String(), reason, err)
		if errors.Is(err, voice.ErrAuth) {
			e.sendAlert(ctx, "Voice provider rejected a call",
				fmt.Sprintf("Call event %s for patient %s was rejected and will not be retried automatically.\n\nReason: %s", event.ID, patient.Name, reason))
		}
		return Result{Reason: reason}, nil
	}

	if err := e.store.SetProviderRef(ctx, event.ID, providerRef); err != nil {
		// The call is already ringing; losing the ref only breaks webhook
		// reconciliation for this one call, so log and move on.
		e.log.Error("failed to persist provider call ref", "callEventId", event.ID, "providerRef", providerRef, "error", err)
	}

	e.log.CallPlaced(event.ID.String(), string(event.CallType), providerRef)
	e.bus.Publish(ctx, events.CallPlaced{
		BaseEvent:   events.NewBaseEvent(),
		CallEventID: event.ID,
		PatientID:   event.PatientID,
		CallType:    string(event.CallType),
		ProviderRef: providerRef,
	})

	return Result{Placed: true, ProviderRef: providerRef}, nil
}

// renderMessage returns the script to speak. Pre-rendered text wins; lazily
// rendered events try the generator and always fall back to the template on
// failure, because a call must never block on generation.
func (e *Engine) renderMessage(ctx context.Context, event domain.CallEvent, patient Patient) string {
	if event.MessageText != "" {
		return event.MessageText
	}

	req := ai.MessageRequest{
		CallType: string(event.CallType),
		Patient: ai.PatientContext{
			Name:                patient.Name,
			GestationalAgeWeeks: patient.GestationalAgeWeeks,
			RiskCategory:        patient.RiskCategory,
			RiskFactors:         patient.RiskFactors,
			Medications:         patient.Medications,
		},
	}

	message := ""
	if e.generator != nil {
		genCtx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
		text, err := e.generator.RenderMessage(genCtx, req)
		cancel()
		if err == nil {
			message = text
		} else {
			e.log.Warn("message generation unavailable, using fallback", "callEventId", event.ID, "error", err)
		}
	}
	if message == "" {
		message = ai.FallbackMessage(req)
	}

	if err := e.store.SetMessageText(ctx, event.ID, message); err != nil {
		e.log.Error("failed to persist rendered message", "callEventId", event.ID, "error", err)
	}

	return message
}

// placeWithRetry invokes the selected provider, retrying transient errors
// with exponential backoff. Auth and configuration errors fail immediately.
func (e *Engine) placeWithRetry(ctx context.Context, req voice.CallRequest) (string, error) {
	provider := e.scripted
	if e.cfg.UseVoiceAgent() && e.agent != nil {
		provider = e.agent
	}
	if provider == nil {
		return "", fmt.Errorf("%w: no voice provider configured", voice.ErrAuth)
	}

	attempts := e.cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := e.cfg.RetryBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", voice.ErrTransient, ctx.Err())
			case <-time.After(delay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
		ref, err := provider.PlaceCall(callCtx, req)
		cancel()

		if err == nil {
			return ref, nil
		}
		lastErr = err
		if !errors.Is(err, voice.ErrTransient) {
			return "", err
		}
		e.log.Warn("transient provider error, will retry", "attempt", attempt+1, "error", err)
	}

	return "", lastErr
}

func (e *Engine) markFailed(ctx context.Context, event domain.CallEvent, reason string) {
	err := e.store.Transition(ctx, repository.TransitionParams{
		ID:            event.ID,
		From:          domain.StatusInProgress,
		To:            domain.StatusFailed,
		FailureReason: &reason,
	})
	if err != nil {
		e.log.Error("failed to mark call event failed", "callEventId", event.ID, "error", err)
		return
	}

	e.bus.Publish(ctx, events.CallFailed{
		BaseEvent:   events.NewBaseEvent(),
		CallEventID: event.ID,
		PatientID:   event.PatientID,
		Reason:      reason,
	})
}

func (e *Engine) sendAlert(ctx context.Context, subject, body string) {
	if e.alerts == nil {
		return
	}
	if err := e.alerts.SendOperatorAlert(ctx, subject, body); err != nil {
		e.log.Error("failed to send operator alert", "subject", subject, "error", err)
	}
}
