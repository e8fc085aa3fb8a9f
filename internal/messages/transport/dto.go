package transport

import (
	"time"

	"github.com/google/uuid"

	"sabcare_backend/internal/messages/repository"
)

// MessageResponse represents a recorded patient message in API responses.
type MessageResponse struct {
	ID                 uuid.UUID  `json:"id"`
	PatientID          uuid.UUID  `json:"patientId"`
	CallEventID        *uuid.UUID `json:"callEventId,omitempty"`
	RecordingURL       string     `json:"recordingUrl"`
	RecordingObjectKey *string    `json:"recordingObjectKey,omitempty"`
	Transcript         *string    `json:"transcript,omitempty"`
	Summary            *string    `json:"summary,omitempty"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// MessageListResponse wraps a list of messages.
type MessageListResponse struct {
	Items []MessageResponse `json:"items"`
	Total int               `json:"total"`
}

// RecordingPlaybackResponse carries a short-lived playback URL for an
// archived recording.
type RecordingPlaybackResponse struct {
	URL string `json:"url"`
}

// ToResponse converts a repository message to its API shape.
func ToResponse(m repository.Message) MessageResponse {
	return MessageResponse{
		ID:                 m.ID,
		PatientID:          m.PatientID,
		CallEventID:        m.CallEventID,
		RecordingURL:       m.RecordingURL,
		RecordingObjectKey: m.RecordingObjectKey,
		Transcript:         m.Transcript,
		Summary:            m.Summary,
		Status:             string(m.Status),
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// ToListResponse converts repository messages to the API list shape.
func ToListResponse(items []repository.Message) MessageListResponse {
	out := MessageListResponse{Items: make([]MessageResponse, 0, len(items))}
	for _, m := range items {
		out.Items = append(out.Items, ToResponse(m))
	}
	out.Total = len(out.Items)
	return out
}
