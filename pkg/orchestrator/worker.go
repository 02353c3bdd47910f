package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/config"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/logging"
	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/storage"
)

// Worker polls the store for runnable books and drives each through
// the engine. Different books run in parallel; one book is always
// strictly sequential, which the claim guard enforces even across
// processes.
type Worker struct {
	cfg    *config.Config
	store  *storage.Store
	engine *Engine
	logger *logging.Logger
}

func NewWorker(cfg *config.Config, store *storage.Store, engine *Engine, logger *logging.Logger) *Worker {
	return &Worker{
		cfg:    cfg,
		store:  store,
		engine: engine,
		logger: logger,
	}
}

// Start polls until the context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	interval := w.cfg.Worker.PollInterval
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First pass immediately, then on every tick.
	if err := w.runOnce(ctx); err != nil {
		w.logPollError(err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.runOnce(ctx); err != nil {
				w.logPollError(err)
			}
		}
	}
}

// runOnce processes one batch of runnable books.
func (w *Worker) runOnce(ctx context.Context) error {
	limit := w.cfg.Worker.BatchLimit
	if limit <= 0 {
		limit = w.cfg.Worker.MaxParallel
	}
	if limit <= 0 {
		limit = config.DefaultMaxParallelBooks
	}

	ids, err := w.store.ListRunnableBooks(limit, w.cfg.Storage.ClaimTTL)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	parallel := w.cfg.Worker.MaxParallel
	if parallel <= 0 {
		parallel = config.DefaultMaxParallelBooks
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, id := range ids {
		bookID := id
		g.Go(func() error {
			recordRunStart()
			outcome, err := w.engine.Run(gctx, bookID)
			recordRunOutcome(outcome.State)
			if w.logger != nil {
				details := map[string]any{
					"book_id": bookID,
					"state":   string(outcome.State),
					"stage":   outcome.Stage,
				}
				if err != nil {
					details["error"] = err.Error()
					_ = w.logger.Error(logging.CategoryWorkflow, "run_finished", "book run failed", details)
				} else {
					_ = w.logger.Info(logging.CategoryWorkflow, "run_finished", "book run finished", details)
				}
			}
			// A failed book is recorded in the store; the worker
			// moves on to the rest of the batch.
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) logPollError(err error) {
	if w.logger == nil {
		return
	}
	_ = w.logger.Error(logging.CategoryWorkflow, "poll_failed", "worker poll failed",
		map[string]any{"error": err.Error()})
}
