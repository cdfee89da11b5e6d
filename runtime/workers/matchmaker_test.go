package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeSweeper records sweep invocations without any engine behind it.
type fakeSweeper struct {
	pairs int32
	reaps int32
}

func (f *fakeSweeper) PairSweep(context.Context, time.Time) { atomic.AddInt32(&f.pairs, 1) }
func (f *fakeSweeper) ReapSweep(context.Context, time.Time) { atomic.AddInt32(&f.reaps, 1) }

func TestMatchmakerWorker_Sweeps_On_Every_Tick(t *testing.T) {
	req := require.New(t)
	sweeper := &fakeSweeper{}
	worker := NewMatchmakerWorker(sweeper, 10*time.Millisecond, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := worker.Run(ctx)

	req.ErrorIs(err, context.DeadlineExceeded)
	req.GreaterOrEqual(atomic.LoadInt32(&sweeper.pairs), int32(2))
	req.Zero(atomic.LoadInt32(&sweeper.reaps))
}

func TestReaperWorker_Sweeps_On_Every_Tick(t *testing.T) {
	req := require.New(t)
	sweeper := &fakeSweeper{}
	worker := NewReaperWorker(sweeper, 10*time.Millisecond, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := worker.Run(ctx)

	req.ErrorIs(err, context.DeadlineExceeded)
	req.GreaterOrEqual(atomic.LoadInt32(&sweeper.reaps), int32(2))
	req.Zero(atomic.LoadInt32(&sweeper.pairs))
}
