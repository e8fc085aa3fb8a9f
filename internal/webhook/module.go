// Package webhook receives Twilio voice callbacks and reconciles them onto
// call events. Status reports, key presses and recordings all arrive here.
package webhook

import (
	"sabcare_backend/internal/events"
	apphttp "sabcare_backend/internal/http"
	"sabcare_backend/platform/logger"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(store EventStore, intake MessageIntake, directory CallerDirectory, bus events.Bus, log *logger.Logger) *Module {
	svc := New(store, intake, directory, bus, log)
	h := NewHandler(svc)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// Service returns the service layer for external use.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts the Twilio voice callbacks on the webhook group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Webhooks.Group("/voice")
	group.POST("/answer", m.handler.Answer)
	group.POST("/key", m.handler.KeyPress)
	group.POST("/recording", m.handler.Recording)
	group.POST("/status", m.handler.Status)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
