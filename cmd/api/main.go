package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sabcare_backend/internal/adapters"
	"sabcare_backend/internal/adapters/storage"
	"sabcare_backend/internal/ai"
	"sabcare_backend/internal/calls"
	"sabcare_backend/internal/calls/execution"
	"sabcare_backend/internal/dashboard"
	"sabcare_backend/internal/email"
	"sabcare_backend/internal/events"
	apphttp "sabcare_backend/internal/http"
	"sabcare_backend/internal/http/router"
	"sabcare_backend/internal/messages"
	msghandler "sabcare_backend/internal/messages/handler"
	msgsvc "sabcare_backend/internal/messages/service"
	"sabcare_backend/internal/patients"
	"sabcare_backend/internal/scheduler"
	"sabcare_backend/internal/voice"
	"sabcare_backend/internal/voice/elevenlabs"
	"sabcare_backend/internal/voice/twilio"
	"sabcare_backend/internal/webhook"
	"sabcare_backend/platform/config"
	"sabcare_backend/platform/db"
	"sabcare_backend/platform/logger"
	"sabcare_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Recording archive (MinIO); nil when not configured
	archiveClient, err := storage.NewRecordingArchive(cfg, cfg)
	if err != nil {
		log.Error("failed to initialize recording archive", "error", err)
		panic("failed to initialize recording archive: " + err.Error())
	}
	if archiveClient != nil {
		if err := withRetry(ctx, log, "ensure recordings bucket", 5, 2*time.Second, func() error {
			return archiveClient.EnsureBucket(ctx)
		}); err != nil {
			log.Error("failed to ensure recordings bucket exists", "error", err)
			panic("failed to ensure recordings bucket exists: " + err.Error())
		}
		log.Info("recording archive initialized", "bucket", cfg.GetMinIORecordingsBucket())
	} else {
		log.Warn("MinIO not configured; recordings are kept at the provider only")
	}

	// Optional collaborators stay nil interfaces when unconfigured so the
	// modules can detect their absence.
	var alerts execution.Alerter
	if mailer := email.NewOperatorMailer(cfg); mailer != nil {
		alerts = mailer
		log.Info("operator alerts enabled", "to", cfg.GetOperatorEmail())
	} else {
		log.Warn("SMTP not configured; operator alerts disabled")
	}

	var generator ai.Generator
	if gem, err := ai.NewGemini(ctx, cfg, log); err != nil {
		log.Error("failed to initialize text generation", "error", err)
		panic("failed to initialize text generation: " + err.Error())
	} else if gem != nil {
		generator = gem
		log.Info("text generation enabled", "model", cfg.GetGeminiModel())
	} else {
		log.Warn("GEMINI_API_KEY not configured; call scripts use templates only")
	}

	var scripted, agent voice.Provider
	twClient := twilio.NewClient(cfg, log)
	if twClient != nil {
		scripted = twClient
	} else {
		log.Warn("Twilio not configured; scripted calls cannot be placed")
	}
	if c := elevenlabs.NewClient(cfg, log); c != nil {
		agent = c
		log.Info("voice agent provider enabled")
	}

	// SMS is the fallback alert channel when no mailer is set up.
	if alerts == nil && twClient != nil && cfg.GetOperatorPhone() != "" {
		alerts = adapters.NewSMSAlertAdapter(twClient, cfg.GetOperatorPhone())
		log.Info("operator alerts delivered over sms", "to", cfg.GetOperatorPhone())
	}

	var enqueuer msgsvc.Enqueuer
	schedClient, closeScheduler := initTaskQueue(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}
	if schedClient != nil {
		enqueuer = schedClient
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	patientsModule := patients.NewModule(pool, eventBus, val, log)

	patientSnapshots := adapters.NewPatientSnapshotAdapter(patientsModule.Repository())
	patientProfiles := adapters.NewPatientExecutionAdapter(patientsModule.Repository())
	callsModule := calls.NewModule(pool, patientSnapshots, patientProfiles, generator, scripted, agent, eventBus, alerts, cfg, log)
	callsModule.RegisterHandlers(eventBus)

	patientDirectory := adapters.NewPatientDirectoryAdapter(patientsModule.Repository())
	callbackScheduler := adapters.NewCallbackSchedulerAdapter(callsModule.Repository())
	var archive msgsvc.Archive
	var playback msghandler.Playback
	if archiveClient != nil {
		archive = archiveClient
		playback = archiveClient
	}
	messagesModule := messages.NewModule(pool, patientDirectory, callbackScheduler, archive, enqueuer, generator, alerts, playback, eventBus, cfg, log)

	intake := adapters.NewMessageIntakeAdapter(messagesModule.Service())
	webhookModule := webhook.NewModule(callsModule.Repository(), intake, patientDirectory, eventBus, log)

	dashboardModule := dashboard.NewModule(pool, callsModule.Repository())

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			patientsModule,
			callsModule,
			messagesModule,
			webhookModule,
			dashboardModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initTaskQueue(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; messages need manual processing")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
