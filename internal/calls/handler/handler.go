package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sabcare_backend/internal/calls/service"
	"sabcare_backend/internal/calls/transport"
	"sabcare_backend/platform/httpkit"
)

const (
	msgInvalidRequest   = "invalid request"
	msgInvalidID        = "invalid call event ID"
	msgInvalidPatientID = "invalid patient ID"
)

// Handler handles HTTP requests for call scheduling and lifecycle.
type Handler struct {
	svc *service.Service
}

// New creates a new calls handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// GenerateSchedule computes and persists a patient's call plan.
// POST /api/v1/patients/:id/schedule
func (h *Handler) GenerateSchedule(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidPatientID, nil)
		return
	}

	result, err := h.svc.GenerateSchedule(c.Request.Context(), patientID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ListByPatient returns a patient's call history.
// GET /api/v1/patients/:id/calls
func (h *Handler) ListByPatient(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidPatientID, nil)
		return
	}

	result, err := h.svc.ListByPatient(c.Request.Context(), patientID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListUpcoming returns the next scheduled calls.
// GET /api/v1/calls/upcoming?within=72h&limit=10
func (h *Handler) ListUpcoming(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	var within time.Duration
	if raw := c.Query("within"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			httpkit.Error(c, http.StatusBadRequest, "within must be a positive duration such as 72h", nil)
			return
		}
		within = parsed
	}

	result, err := h.svc.ListUpcoming(c.Request.Context(), within, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID returns one call event.
// GET /api/v1/calls/:id
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
	httpkit.OK(c, result)
}

// Execute places a scheduled call immediately.
// POST /api/v1/calls/:id/execute
func (h *Handler) Execute(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.ExecuteNow(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Update edits the time or script of a still-scheduled call.
// PUT /api/v1/calls/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.Reschedule(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Requeue retries a terminal call as a new scheduled event.
// POST /api/v1/calls/:id/requeue
func (h *Handler) Requeue(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.RequeueRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.Requeue(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}
