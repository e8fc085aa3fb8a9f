package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sabcare_backend/internal/adapters"
	"sabcare_backend/internal/adapters/storage"
	"sabcare_backend/internal/ai"
	"sabcare_backend/internal/calls"
	"sabcare_backend/internal/calls/execution"
	"sabcare_backend/internal/email"
	"sabcare_backend/internal/events"
	"sabcare_backend/internal/messages"
	msgsvc "sabcare_backend/internal/messages/service"
	"sabcare_backend/internal/patients"
	"sabcare_backend/internal/scheduler"
	"sabcare_backend/internal/voice"
	"sabcare_backend/internal/voice/elevenlabs"
	"sabcare_backend/internal/voice/twilio"
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

	log := logger.New(cfg.Env)
	log.Info("starting dispatcher", "env", cfg.Env, "interval", cfg.GetDispatchInterval())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	archiveClient, err := storage.NewRecordingArchive(cfg, cfg)
	if err != nil {
		log.Error("failed to initialize recording archive", "error", err)
		panic("failed to initialize recording archive: " + err.Error())
	}

	var alerts execution.Alerter
	if mailer := email.NewOperatorMailer(cfg); mailer != nil {
		alerts = mailer
	}

	var generator ai.Generator
	if gem, err := ai.NewGemini(ctx, cfg, log); err != nil {
		log.Error("failed to initialize text generation", "error", err)
		panic("failed to initialize text generation: " + err.Error())
	} else if gem != nil {
		generator = gem
	}

	var scripted, agent voice.Provider
	twClient := twilio.NewClient(cfg, log)
	if twClient != nil {
		scripted = twClient
	} else {
		log.Warn("Twilio not configured; due calls will fail placement")
	}
	if c := elevenlabs.NewClient(cfg, log); c != nil {
		agent = c
	}

	// SMS is the fallback alert channel when no mailer is set up.
	if alerts == nil && twClient != nil && cfg.GetOperatorPhone() != "" {
		alerts = adapters.NewSMSAlertAdapter(twClient, cfg.GetOperatorPhone())
	}

	patientsModule := patients.NewModule(pool, eventBus, val, log)

	patientSnapshots := adapters.NewPatientSnapshotAdapter(patientsModule.Repository())
	patientProfiles := adapters.NewPatientExecutionAdapter(patientsModule.Repository())
	callsModule := calls.NewModule(pool, patientSnapshots, patientProfiles, generator, scripted, agent, eventBus, alerts, cfg, log)

	patientDirectory := adapters.NewPatientDirectoryAdapter(patientsModule.Repository())
	callbackScheduler := adapters.NewCallbackSchedulerAdapter(callsModule.Repository())
	var archive msgsvc.Archive
	if archiveClient != nil {
		archive = archiveClient
	}
	messagesModule := messages.NewModule(pool, patientDirectory, callbackScheduler, archive, nil, generator, alerts, nil, eventBus, cfg, log)

	// Message processing worker; skipped when Redis is not configured.
	if cfg.GetRedisURL() != "" {
		worker, err := scheduler.NewWorker(cfg, messagesModule.Service(), log)
		if err != nil {
			log.Error("failed to initialize task worker", "error", err)
			panic("failed to initialize task worker: " + err.Error())
		}
		go worker.Run(ctx)
		log.Info("message processing worker started")
	} else {
		log.Warn("REDIS_URL not configured; message processing worker disabled")
	}

	dispatcher := calls.NewDispatcher(callsModule.Repository(), callsModule.Engine(), calls.DispatcherConfig{
		Interval:    cfg.GetDispatchInterval(),
		BatchSize:   cfg.GetDispatchBatchSize(),
		Concurrency: cfg.GetDispatchConcurrency(),
	}, log)

	dispatcher.Run(ctx)
	log.Info("dispatcher stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
