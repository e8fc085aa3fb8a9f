// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"sabcare_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Patient Domain Events
// =============================================================================

// PatientUpserted is published when a patient is created or updated.
// The call module uses it to prompt schedule regeneration.
type PatientUpserted struct {
	BaseEvent
	PatientID uuid.UUID `json:"patientId"`
	Created   bool      `json:"created"`
}

func (e PatientUpserted) EventName() string { return "patients.upserted" }

// =============================================================================
// Call Domain Events
// =============================================================================

// CallPlaced is published when an outbound call has been accepted by the
// voice provider.
type CallPlaced struct {
	BaseEvent
	CallEventID uuid.UUID `json:"callEventId"`
	PatientID   uuid.UUID `json:"patientId"`
	CallType    string    `json:"callType"`
	ProviderRef string    `json:"providerRef"`
}

func (e CallPlaced) EventName() string { return "calls.placed" }

// CallCompleted is published when the provider reports a call finished.
type CallCompleted struct {
	BaseEvent
	CallEventID uuid.UUID `json:"callEventId"`
	PatientID   uuid.UUID `json:"patientId"`
	CallType    string    `json:"callType"`
}

func (e CallCompleted) EventName() string { return "calls.completed" }

// CallFailed is published when a call reaches the failed terminal state.
type CallFailed struct {
	BaseEvent
	CallEventID uuid.UUID `json:"callEventId"`
	PatientID   uuid.UUID `json:"patientId"`
	Reason      string    `json:"reason"`
}

func (e CallFailed) EventName() string { return "calls.failed" }

// CallbackRequested is published when a patient pressed 1 during an
// outbound call to leave a message for the care team.
type CallbackRequested struct {
	BaseEvent
	CallEventID uuid.UUID `json:"callEventId"`
	PatientID   uuid.UUID `json:"patientId"`
}

func (e CallbackRequested) EventName() string { return "calls.callback_requested" }

// =============================================================================
// Message Domain Events
// =============================================================================

// MessageReceived is published when a recorded patient message has been
// stored and queued for processing.
type MessageReceived struct {
	BaseEvent
	MessageID uuid.UUID `json:"messageId"`
	PatientID uuid.UUID `json:"patientId"`
}

func (e MessageReceived) EventName() string { return "messages.received" }

// MessageProcessed is published when a patient message has been
// summarized and a callback call has been scheduled.
type MessageProcessed struct {
	BaseEvent
	MessageID     uuid.UUID  `json:"messageId"`
	PatientID     uuid.UUID  `json:"patientId"`
	CallbackEvent *uuid.UUID `json:"callbackEventId,omitempty"`
}

func (e MessageProcessed) EventName() string { return "messages.processed" }

// MessageProcessingFailed is published when message processing failed and
// the message needs manual operator attention.
type MessageProcessingFailed struct {
	BaseEvent
	MessageID uuid.UUID `json:"messageId"`
	PatientID uuid.UUID `json:"patientId"`
	Reason    string    `json:"reason"`
}

func (e MessageProcessingFailed) EventName() string { return "messages.processing_failed" }
