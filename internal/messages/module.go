// Package messages provides the recorded message bounded context module.
// Recordings from the webhook module land here, get summarized, and
// produce callback call events.
package messages

import (
	"sabcare_backend/internal/events"
	apphttp "sabcare_backend/internal/http"
	"sabcare_backend/internal/messages/handler"
	"sabcare_backend/internal/messages/repository"
	"sabcare_backend/internal/messages/service"
	"sabcare_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the messages bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the messages module with all its
// dependencies. Optional collaborators may be nil.
func NewModule(
	pool *pgxpool.Pool,
	patients service.PatientDirectory,
	callbacks service.CallbackScheduler,
	archive service.Archive,
	enqueuer service.Enqueuer,
	summarizer service.Summarizer,
	alerts service.Alerter,
	playback handler.Playback,
	bus events.Bus,
	cfg service.Config,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, patients, callbacks, archive, enqueuer, summarizer, alerts, bus, cfg, log)
	h := handler.New(svc, playback)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "messages"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for cross-module reads.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts message routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/messages")
	group.GET("", m.handler.List)
	group.GET("/:id", m.handler.GetByID)
	group.POST("/:id/process", m.handler.Process)
	group.GET("/:id/recording", m.handler.Recording)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
