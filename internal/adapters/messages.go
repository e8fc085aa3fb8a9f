package adapters

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sabcare_backend/internal/calls/domain"
	callrepo "sabcare_backend/internal/calls/repository"
	msgsvc "sabcare_backend/internal/messages/service"
	"sabcare_backend/internal/patients/repository"
	"sabcare_backend/internal/webhook"
)

// PatientDirectoryAdapter exposes patient lookups to the message pipeline.
type PatientDirectoryAdapter struct {
	repo repository.PatientReader
}

// NewPatientDirectoryAdapter creates an adapter over the patients repository.
func NewPatientDirectoryAdapter(repo repository.PatientReader) *PatientDirectoryAdapter {
	return &PatientDirectoryAdapter{repo: repo}
}

// Compile-time check against the messages service port.
var _ msgsvc.PatientDirectory = (*PatientDirectoryAdapter)(nil)

// ResolveByPhone finds the patient owning a phone number.
func (a *PatientDirectoryAdapter) ResolveByPhone(ctx context.Context, phone string) (msgsvc.PatientInfo, error) {
	p, err := a.repo.GetByPhone(ctx, phone)
	if err != nil {
		return msgsvc.PatientInfo{}, err
	}
	return msgsvc.PatientInfo{ID: p.ID, Name: p.Name, PhoneNumber: p.PhoneNumber}, nil
}

// Compile-time check against the webhook port.
var _ webhook.CallerDirectory = (*PatientDirectoryAdapter)(nil)

// ResolveCaller identifies an inbound caller by phone number.
func (a *PatientDirectoryAdapter) ResolveCaller(ctx context.Context, phone string) (webhook.CallerInfo, error) {
	p, err := a.repo.GetByPhone(ctx, phone)
	if err != nil {
		return webhook.CallerInfo{}, err
	}
	return webhook.CallerInfo{ID: p.ID, Name: p.Name}, nil
}

// ResolveByID loads a patient by ID.
func (a *PatientDirectoryAdapter) ResolveByID(ctx context.Context, id uuid.UUID) (msgsvc.PatientInfo, error) {
	p, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return msgsvc.PatientInfo{}, err
	}
	return msgsvc.PatientInfo{ID: p.ID, Name: p.Name, PhoneNumber: p.PhoneNumber}, nil
}

// CallbackSchedulerAdapter creates callback call events for processed
// messages.
type CallbackSchedulerAdapter struct {
	events callrepo.EventWriter
}

// NewCallbackSchedulerAdapter creates an adapter over the calls repository.
func NewCallbackSchedulerAdapter(events callrepo.EventWriter) *CallbackSchedulerAdapter {
	return &CallbackSchedulerAdapter{events: events}
}

// Compile-time check against the messages service port.
var _ msgsvc.CallbackScheduler = (*CallbackSchedulerAdapter)(nil)

// ScheduleCallback inserts a scheduled callback call. The script is left
// empty; the execution engine renders it from a fresh profile at call time.
func (a *CallbackSchedulerAdapter) ScheduleCallback(ctx context.Context, patientID uuid.UUID, at time.Time) (uuid.UUID, error) {
	event, err := a.events.Insert(ctx, domain.CallEvent{
		PatientID:     patientID,
		CallType:      domain.CallTypeCallback,
		ScheduledTime: at,
		Status:        domain.StatusScheduled,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return event.ID, nil
}

// MessageIntakeAdapter feeds webhook recordings into the message pipeline.
type MessageIntakeAdapter struct {
	svc *msgsvc.Service
}

// NewMessageIntakeAdapter creates an adapter over the messages service.
func NewMessageIntakeAdapter(svc *msgsvc.Service) *MessageIntakeAdapter {
	return &MessageIntakeAdapter{svc: svc}
}

// Compile-time check against the webhook port.
var _ webhook.MessageIntake = (*MessageIntakeAdapter)(nil)

// ReceiveRecording maps the webhook input onto the intake pipeline.
func (a *MessageIntakeAdapter) ReceiveRecording(ctx context.Context, in webhook.RecordingInput) error {
	_, err := a.svc.Intake(ctx, msgsvc.IntakeParams{
		CallerNumber: in.CallerNumber,
		RecordingURL: in.RecordingURL,
		CallSID:      in.CallSID,
		Transcript:   in.Transcript,
		CallEventID:  in.CallEventID,
	})
	return err
}
