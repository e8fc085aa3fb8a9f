// Package calls provides the call scheduling and lifecycle bounded context:
// schedule generation, the call event state machine, dispatching, and
// execution against the voice providers.
package calls

import (
	"context"

	"sabcare_backend/internal/ai"
	"sabcare_backend/internal/calls/execution"
	"sabcare_backend/internal/calls/handler"
	"sabcare_backend/internal/calls/repository"
	"sabcare_backend/internal/calls/schedule"
	"sabcare_backend/internal/calls/service"
	"sabcare_backend/internal/events"
	apphttp "sabcare_backend/internal/http"
	"sabcare_backend/internal/voice"
	"sabcare_backend/platform/config"
	"sabcare_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig combines the config interfaces the calls module needs.
type ModuleConfig interface {
	config.DispatcherConfig
	config.ScheduleConfig
	IsVoiceAgentEnabled() bool
}

// Module is the calls bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	engine  *execution.Engine
	repo    repository.Repository
	log     *logger.Logger
}

// NewModule creates and initializes the calls module. generator, agent, and
// alerts may be nil; the engine degrades to templates and the scripted
// provider.
func NewModule(
	pool *pgxpool.Pool,
	patients service.PatientSource,
	patientReader execution.PatientReader,
	generator ai.Generator,
	scripted, agent voice.Provider,
	bus events.Bus,
	alerts execution.Alerter,
	cfg ModuleConfig,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)

	engine := execution.New(repo, patientReader, generator, scripted, agent, bus, alerts, execution.Config{
		ProviderTimeout: cfg.GetProviderTimeout(),
		MaxRetries:      cfg.GetPlaceCallMaxRetries(),
		RetryBackoff:    cfg.GetPlaceCallRetryBackoff(),
		UseVoiceAgent:   cfg.IsVoiceAgentEnabled,
	}, log)

	checkinHour, checkinMinute := cfg.GetCheckinTime()
	monitoringHour, monitoringMinute := cfg.GetMonitoringTime()
	schedCfg := schedule.Config{
		HorizonWeeks:           cfg.GetScheduleHorizonWeeks(),
		CheckinWeekday:         cfg.GetCheckinWeekday(),
		CheckinHour:            checkinHour,
		CheckinMinute:          checkinMinute,
		HighRiskCheckinWeekday: cfg.GetHighRiskCheckinWeekday(),
		MonitoringWeekday:      cfg.GetMonitoringWeekday(),
		MonitoringHour:         monitoringHour,
		MonitoringMinute:       monitoringMinute,
	}

	svc := service.New(repo, patients, engine, schedCfg, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		service: svc,
		engine:  engine,
		repo:    repo,
		log:     log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "calls"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Engine returns the execution engine for the dispatcher process.
func (m *Module) Engine() *execution.Engine {
	return m.engine
}

// Repository returns the call event repository for cross-module reads
// (webhook reconciliation, dashboard stats).
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts call routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/patients/:id/schedule", m.handler.GenerateSchedule)
	ctx.V1.GET("/patients/:id/calls", m.handler.ListByPatient)

	calls := ctx.V1.Group("/calls")
	calls.GET("/upcoming", m.handler.ListUpcoming)
	calls.GET("/:id", m.handler.GetByID)
	calls.PUT("/:id", m.handler.Update)
	calls.POST("/:id/execute", m.handler.Execute)
	calls.POST("/:id/requeue", m.handler.Requeue)
}

// RegisterHandlers subscribes to domain events. A patient edit triggers
// schedule regeneration, which is idempotent and only fills the delta.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.PatientUpserted{}.EventName(), m)
}

// Handle routes events to the appropriate service method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.PatientUpserted:
		_, err := m.service.GenerateSchedule(ctx, e.PatientID)
		return err
	default:
		return nil
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
