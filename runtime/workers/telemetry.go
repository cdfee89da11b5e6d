package workers

import (
	"context"
	"log/slog"
	"time"

	"pair-lab/contract"
	"pair-lab/observability"
)

var _ contract.Worker = (*TelemetryWorker)(nil)

// TelemetryWorker drives the monitoring snapshot refresh loop so the
// manager itself stays a passive collector.
type TelemetryWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	monitoring     *observability.MonitoringManager
}

func NewTelemetryWorker(log *slog.Logger, metricInterval time.Duration, monitoring *observability.MonitoringManager) *TelemetryWorker {
	return &TelemetryWorker{log: log, metricInterval: metricInterval, monitoring: monitoring}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	w.monitoring.Listen(ctx, w.metricInterval)
	return ctx.Err()
}
