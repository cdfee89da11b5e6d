package workers

import (
	"context"
	"log/slog"
	"time"

	"pair-lab/contract"
)

var _ contract.Worker = (*ReaperWorker)(nil)

// ReaperWorker triggers a cleanup sweep on every tick, independently of
// the matchmaker: stale sessions expire, abandoned waiters are dropped.
type ReaperWorker struct {
	engine          Sweeper
	cleanupInterval time.Duration
	log             *slog.Logger
}

func NewReaperWorker(engine Sweeper, cleanupInterval time.Duration, log *slog.Logger) *ReaperWorker {
	return &ReaperWorker{engine: engine, cleanupInterval: cleanupInterval, log: log}
}

func (w *ReaperWorker) Run(ctx context.Context) error {
	w.log.Info("Starting reaper worker", "interval", w.cleanupInterval)
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping reaper worker")
			return ctx.Err()
		case <-ticker.C:
			w.engine.ReapSweep(ctx, time.Now().UTC())
		}
	}
}
