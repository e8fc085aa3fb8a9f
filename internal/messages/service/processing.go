package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sabcare_backend/internal/ai"
	"sabcare_backend/internal/events"
	"sabcare_backend/platform/apperr"
)

const defaultCallbackDelay = 10 * time.Minute

// Process summarizes a stored message and schedules the callback call.
// It is the asynq task handler body; a returned error makes the task
// retry, and a retried task re-claims the message from the failed state.
func (s *Service) Process(ctx context.Context, messageID uuid.UUID) error {
	msg, err := s.repo.ClaimProcessing(ctx, messageID)
	if err != nil {
		switch apperr.GetKind(err) {
		case apperr.KindNotFound:
			s.log.Warn("message to process no longer exists", "messageId", messageID)
			return nil
		case apperr.KindConflict:
			// Another worker holds it, or it is already processed.
			s.log.Debug("message already claimed", "messageId", messageID)
			return nil
		}
		return err
	}

	patient, err := s.patients.ResolveByID(ctx, msg.PatientID)
	if err != nil {
		return s.failMessage(ctx, msg.ID, msg.PatientID, fmt.Errorf("resolve patient: %w", err))
	}

	summary := s.summarize(ctx, patient.Name, msg.Transcript)

	callbackAt := s.now().Add(s.callbackDelay())
	callbackID, err := s.callbacks.ScheduleCallback(ctx, patient.ID, callbackAt)
	if err != nil {
		return s.failMessage(ctx, msg.ID, msg.PatientID, fmt.Errorf("schedule callback: %w", err))
	}

	if err := s.repo.MarkProcessed(ctx, msg.ID, summary, &callbackID); err != nil {
		return s.failMessage(ctx, msg.ID, msg.PatientID, fmt.Errorf("mark processed: %w", err))
	}

	s.log.Info("patient message processed",
		"messageId", msg.ID, "patientId", patient.ID, "callbackEventId", callbackID)

	s.bus.Publish(ctx, events.MessageProcessed{
		BaseEvent:     events.NewBaseEvent(),
		MessageID:     msg.ID,
		PatientID:     patient.ID,
		CallbackEvent: &callbackID,
	})

	return nil
}

func (s *Service) summarize(ctx context.Context, patientName string, transcript *string) string {
	text := ""
	if transcript != nil {
		text = strings.TrimSpace(*transcript)
	}

	if s.summarizer != nil && text != "" {
		summary, err := s.summarizer.SummarizeMessage(ctx, patientName, text)
		if err == nil && strings.TrimSpace(summary) != "" {
			return strings.TrimSpace(summary)
		}
		if err != nil {
			s.log.Warn("message summarization unavailable", "error", err)
		}
	}

	return ai.FallbackSummary(patientName, text)
}

func (s *Service) callbackDelay() time.Duration {
	if delay := s.cfg.GetCallbackDelay(); delay > 0 {
		return delay
	}
	return defaultCallbackDelay
}

func (s *Service) failMessage(ctx context.Context, messageID, patientID uuid.UUID, cause error) error {
	s.log.Error("message processing failed", "messageId", messageID, "error", cause)

	if err := s.repo.MarkFailed(ctx, messageID); err != nil {
		s.log.Error("failed to mark message failed", "messageId", messageID, "error", err)
	}

	if s.alerts != nil {
		subject := "Patient message needs attention"
		body := fmt.Sprintf("Processing of message %s for patient %s failed: %v. Review the recording and schedule a callback manually.", messageID, patientID, cause)
		if err := s.alerts.SendOperatorAlert(ctx, subject, body); err != nil {
			s.log.Error("failed to send operator alert", "messageId", messageID, "error", err)
		}
	}

	s.bus.Publish(ctx, events.MessageProcessingFailed{
		BaseEvent: events.NewBaseEvent(),
		MessageID: messageID,
		PatientID: patientID,
		Reason:    cause.Error(),
	})

	return cause
}
