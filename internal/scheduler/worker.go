package scheduler

import (
	"context"
	"fmt"

	"sabcare_backend/platform/config"
	"sabcare_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// MessageProcessor runs the summarize-and-schedule-callback pipeline for
// one stored patient message. Implemented by the messages module.
type MessageProcessor interface {
	Process(ctx context.Context, messageID uuid.UUID) error
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor MessageProcessor
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, processor MessageProcessor, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		processor: processor,
		log:       log,
	}

	mux.HandleFunc(TaskMessageProcess, w.handleMessageProcess)

	return w, nil
}

func (w *Worker) handleMessageProcess(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseMessageProcessPayload(task)
	if err != nil {
		return err
	}

	messageID, err := uuid.Parse(payload.MessageID)
	if err != nil {
		return err
	}

	return w.processor.Process(ctx, messageID)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
