package workers

import (
	"context"
	"log/slog"
	"time"

	"pair-lab/contract"
)

// Ensure *MatchmakerWorker implements the contract.Worker interface at
// compile time.
var _ contract.Worker = (*MatchmakerWorker)(nil)

// Sweeper is the slice of the engine the periodic workers drive.
type Sweeper interface {
	PairSweep(ctx context.Context, now time.Time)
	ReapSweep(ctx context.Context, now time.Time)
}

// MatchmakerWorker triggers a pairing sweep on every tick. It holds no
// pairing logic itself: the engine owns the queue draining and session
// creation.
type MatchmakerWorker struct {
	engine       Sweeper
	pairInterval time.Duration
	log          *slog.Logger
}

func NewMatchmakerWorker(engine Sweeper, pairInterval time.Duration, log *slog.Logger) *MatchmakerWorker {
	return &MatchmakerWorker{engine: engine, pairInterval: pairInterval, log: log}
}

func (w *MatchmakerWorker) Run(ctx context.Context) error {
	w.log.Info("Starting matchmaker worker", "interval", w.pairInterval)
	ticker := time.NewTicker(w.pairInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping matchmaker worker")
			return ctx.Err()
		case <-ticker.C:
			w.engine.PairSweep(ctx, time.Now().UTC())
		}
	}
}
