package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"pair-lab/contract"
	"pair-lab/observability"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*HealthWorker)(nil)

// HealthWorker samples the engine process (CPU, RSS) every 5 seconds
// and merges the readings into the monitoring snapshot.
type HealthWorker struct {
	log        *slog.Logger
	monitoring *observability.MonitoringManager
}

func NewHealthWorker(log *slog.Logger, monitoring *observability.MonitoringManager) *HealthWorker {
	return &HealthWorker{log: log, monitoring: monitoring}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	w.log.Info("Starting health monitoring worker")
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.monitoring.SetProcessStats(cpu, rss)
		}
	}
}

// getSelfStats retrieves memory and CPU readings for the given process.
func getSelfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
