package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sabcare_backend/internal/messages/repository"
	"sabcare_backend/internal/messages/service"
	"sabcare_backend/internal/messages/transport"
	"sabcare_backend/platform/httpkit"
)

const msgInvalidID = "invalid message ID"

// Playback produces a short-lived download URL for an archived recording.
type Playback interface {
	PlaybackURL(ctx context.Context, objectKey string) (string, error)
}

// Handler handles HTTP requests for patient messages.
type Handler struct {
	svc      *service.Service
	playback Playback
}

// New creates a new messages handler. playback may be nil when recording
// archival is not configured.
func New(svc *service.Service, playback Playback) *Handler {
	return &Handler{svc: svc, playback: playback}
}

// List retrieves stored messages, newest first.
// GET /api/v1/messages?status=pending&limit=50
func (h *Handler) List(c *gin.Context) {
	status := repository.Status(c.Query("status"))
	switch status {
	case "", repository.StatusPending, repository.StatusProcessing, repository.StatusProcessed, repository.StatusFailed:
	default:
		httpkit.Error(c, http.StatusBadRequest, "invalid status filter", nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	result, err := h.svc.List(c.Request.Context(), status, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToListResponse(result))
}

// GetByID retrieves a message by ID.
// GET /api/v1/messages/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToResponse(result))
}

// Process triggers message processing inline. Used by operators when the
// background queue is down or a message ended up failed.
// POST /api/v1/messages/:id/process
func (h *Handler) Process(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.Process(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToResponse(result))
}

// Recording returns a short-lived playback URL for the archived copy.
// GET /api/v1/messages/:id/recording
func (h *Handler) Recording(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	msg, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	if h.playback == nil || msg.RecordingObjectKey == nil {
		httpkit.Error(c, http.StatusNotFound, "no archived recording for this message", nil)
		return
	}

	url, err := h.playback.PlaybackURL(c.Request.Context(), *msg.RecordingObjectKey)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.RecordingPlaybackResponse{URL: url})
}
