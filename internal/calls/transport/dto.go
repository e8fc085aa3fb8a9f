package transport

import (
	"time"

	"github.com/google/uuid"

	"sabcare_backend/internal/calls/domain"
)

// CallEventResponse represents a call event in API responses.
type CallEventResponse struct {
	ID              uuid.UUID  `json:"id"`
	PatientID       uuid.UUID  `json:"patientId"`
	CallType        string     `json:"callType"`
	ScheduledTime   time.Time  `json:"scheduledTime"`
	MessageText     string     `json:"messageText,omitempty"`
	Status          string     `json:"status"`
	ProviderCallRef *string    `json:"providerCallRef,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	FailureReason   *string    `json:"failureReason,omitempty"`
	AttemptCount    int        `json:"attemptCount"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// CallEventListResponse wraps a list of call events.
type CallEventListResponse struct {
	Items []CallEventResponse `json:"items"`
	Total int                 `json:"total"`
}

// GenerateScheduleResponse reports the outcome of a schedule generation.
type GenerateScheduleResponse struct {
	Created int                 `json:"created"`
	Items   []CallEventResponse `json:"items"`
}

// RequeueRequest asks for a terminal call event to be retried.
type RequeueRequest struct {
	// ScheduledTime sets when the retry should run. Defaults to a short
	// delay from now when omitted.
	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
}

// UpdateCallRequest carries an operator edit of a scheduled call. Omitted
// fields keep their current value.
type UpdateCallRequest struct {
	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
	MessageText   *string    `json:"messageText,omitempty"`
}

// ExecuteResponse reports the outcome of a manual execution request.
type ExecuteResponse struct {
	Placed         bool   `json:"placed"`
	ProviderRef    string `json:"providerRef,omitempty"`
	AlreadyHandled bool   `json:"alreadyHandled,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// ToResponse maps a domain call event to its API shape.
func ToResponse(e domain.CallEvent) CallEventResponse {
	return CallEventResponse{
		ID:              e.ID,
		PatientID:       e.PatientID,
		CallType:        string(e.CallType),
		ScheduledTime:   e.ScheduledTime,
		MessageText:     e.MessageText,
		Status:          string(e.Status),
		ProviderCallRef: e.ProviderCallRef,
		CompletedAt:     e.CompletedAt,
		FailureReason:   e.FailureReason,
		AttemptCount:    e.AttemptCount,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

// ToListResponse maps a slice of domain call events.
func ToListResponse(events []domain.CallEvent) CallEventListResponse {
	items := make([]CallEventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, ToResponse(e))
	}
	return CallEventListResponse{Items: items, Total: len(items)}
}
