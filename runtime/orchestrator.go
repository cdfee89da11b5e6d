package runtime

import (
	"context"
	"log/slog"
	"time"

	"pair-lab/contract"
	"pair-lab/runtime/workers"
)

// Intervals groups the periodic cadences the orchestrator schedules.
// The engine treats them as immutable for the process lifetime.
type Intervals struct {
	Pair    time.Duration
	Cleanup time.Duration
	Metric  time.Duration
}

// Orchestrator owns the supervised worker set around one Engine.
// It contains no pairing logic: it only schedules the sweeps, the event
// fanout, and the telemetry loops, and tears everything down on Stop.
type Orchestrator struct {
	log        *slog.Logger
	engine     *Engine
	supervisor contract.ISupervisor
	intervals  Intervals
	sinks      []contract.EventSink
}

func NewOrchestrator(log *slog.Logger, engine *Engine, supervisor contract.ISupervisor, intervals Intervals) *Orchestrator {
	return &Orchestrator{
		log:        log,
		engine:     engine,
		supervisor: supervisor,
		intervals:  intervals,
	}
}

func (o *Orchestrator) Engine() *Engine {
	return o.engine
}

// Add registers permanent sinks fed by the event fanout.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.sinks = append(o.sinks, sinks...)
}

// Start registers all workers with the supervisor and runs it.
// It blocks until the context is canceled and every worker drained.
func (o *Orchestrator) Start(ctx context.Context) error {
	fanout := workers.NewEventFanout(o.log, o.engine.Events()).Add(o.sinks...)

	o.supervisor.Add(
		workers.NewMatchmakerWorker(o.engine, o.intervals.Pair, o.log),
		workers.NewReaperWorker(o.engine, o.intervals.Cleanup, o.log),
		workers.NewTelemetryWorker(o.log, o.intervals.Metric, o.engine.monitoring),
		fanout,
	)

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop initiates a graceful shutdown: in-flight critical sections
// complete, no new ticks are accepted.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
