package service

import (
	"context"

	"github.com/google/uuid"

	"sabcare_backend/internal/events"
	"sabcare_backend/internal/messages/repository"
	"sabcare_backend/platform/apperr"
)

// IntakeParams describes one recording arriving from the voice provider.
type IntakeParams struct {
	CallerNumber string
	RecordingURL string
	CallSID      string
	Transcript   string
	CallEventID  *uuid.UUID
}

// Intake stores a recorded message and queues it for processing. The
// recording stays recoverable even when archival or enqueueing fails; a
// pending message can always be processed manually.
func (s *Service) Intake(ctx context.Context, params IntakeParams) (repository.Message, error) {
	if params.RecordingURL == "" {
		return repository.Message{}, apperr.Validation("recording url is required")
	}

	patient, err := s.patients.ResolveByPhone(ctx, params.CallerNumber)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			return repository.Message{}, apperr.NotFound("no patient matches the caller number")
		}
		return repository.Message{}, err
	}

	var transcript *string
	if params.Transcript != "" {
		transcript = &params.Transcript
	}

	msg, err := s.repo.Create(ctx, repository.CreateParams{
		PatientID:    patient.ID,
		CallEventID:  params.CallEventID,
		RecordingURL: params.RecordingURL,
		Transcript:   transcript,
	})
	if err != nil {
		return repository.Message{}, err
	}

	s.archiveRecording(ctx, patient.ID, &msg)

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueMessageProcessing(ctx, msg.ID, patient.ID); err != nil {
			// The message stays pending; an operator can trigger
			// processing through the API.
			s.log.Error("failed to enqueue message processing",
				"messageId", msg.ID, "patientId", patient.ID, "error", err)
		}
	}

	s.bus.Publish(ctx, events.MessageReceived{
		BaseEvent: events.NewBaseEvent(),
		MessageID: msg.ID,
		PatientID: patient.ID,
	})

	return msg, nil
}

func (s *Service) archiveRecording(ctx context.Context, patientID uuid.UUID, msg *repository.Message) {
	if s.archive == nil {
		return
	}

	objectKey, err := s.archive.ArchiveRecording(ctx, patientID, msg.ID, msg.RecordingURL)
	if err != nil {
		s.log.Warn("recording archival failed", "messageId", msg.ID, "error", err)
		return
	}
	if objectKey == "" {
		return
	}

	if err := s.repo.SetRecordingObjectKey(ctx, msg.ID, objectKey); err != nil {
		s.log.Warn("failed to store recording object key", "messageId", msg.ID, "error", err)
		return
	}
	msg.RecordingObjectKey = &objectKey
}
