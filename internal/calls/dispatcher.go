package calls

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"sabcare_backend/internal/calls/domain"
	"sabcare_backend/internal/calls/execution"
	"sabcare_backend/platform/logger"
)

// DueQuerier is the slice of the call repository the dispatcher needs.
type DueQuerier interface {
	QueryDue(ctx context.Context, now time.Time, limit int) ([]domain.CallEvent, error)
}

// DispatcherConfig bounds one dispatch cycle.
type DispatcherConfig struct {
	Interval    time.Duration
	BatchSize   int
	Concurrency int
	// CallTimeout caps one full execution, placement retries included.
	CallTimeout time.Duration
}

// Dispatcher scans for due call events on a fixed interval and hands each
// one to the execution engine. The engine's compare-and-set claim makes
// overlapping ticks and concurrent dispatchers safe.
type Dispatcher struct {
	store  DueQuerier
	engine *execution.Engine
	cfg    DispatcherConfig
	log    *logger.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(store DueQuerier, engine *execution.Engine, cfg DispatcherConfig, log *logger.Logger) *Dispatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = time.Minute
	}
	return &Dispatcher{store: store, engine: engine, cfg: cfg, log: log}
}

// Run ticks until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	d.log.Info("call dispatcher started", "interval", d.cfg.Interval, "batchSize", d.cfg.BatchSize)

	for {
		select {
		case <-ctx.Done():
			d.log.Info("call dispatcher stopped")
			return
		case <-ticker.C:
		}

		d.Tick(ctx)
	}
}

// Tick runs one dispatch cycle: query due events and execute them with
// bounded concurrency. Exposed for manual triggering and tests.
func (d *Dispatcher) Tick(ctx context.Context) {
	due, err := d.store.QueryDue(ctx, time.Now(), d.cfg.BatchSize)
	if err != nil {
		d.log.Error("due call query failed", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	d.log.Info("dispatching due calls", "count", len(due))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Concurrency)

	for _, event := range due {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gCtx, d.cfg.CallTimeout)
			defer cancel()

			result, err := d.engine.Execute(callCtx, event.ID)
			if err != nil {
				d.log.Error("call execution failed", "callEventId", event.ID, "error", err)
				return nil
			}
			if result.AlreadyHandled {
				d.log.Debug("due call already handled elsewhere", "callEventId", event.ID)
			}
			return nil
		})
	}

	_ = g.Wait()
}
