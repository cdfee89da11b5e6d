package observability

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// MonitoringStats aggregates every engine metric for the stats surfaces
// (debug HTTP endpoint, viewer CLI, gateway stats command).
type MonitoringStats struct {
	// --- ENGINE METRICS ---
	ActiveSessions   int     `json:"active_sessions"`
	QueueDepth       int     `json:"queue_depth"`
	PairingsTotal    uint64  `json:"pairings_total"`
	TimeoutsTotal    uint64  `json:"timeouts_total"`
	EndedTotal       uint64  `json:"ended_total"`
	RelayedTotal     uint64  `json:"relayed_total"`
	NoPartnerTotal   uint64  `json:"no_partner_total"`
	PairingsPerSec   float64 `json:"pairings_per_sec"`
	TimeoutsPerSec   float64 `json:"timeouts_per_sec"`
	AvgSessionLength float64 `json:"avg_session_length_sec"`

	// --- PROCESS METRICS ---
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	NumGC      uint32  `json:"num_gc"`
}

// MonitoringManager collects engine telemetry in real time.
// Hot-path increments are atomics; the snapshot is rebuilt on a ticker
// under the mutex.
type MonitoringManager struct {
	log         *slog.Logger
	mu          sync.RWMutex
	latestStats MonitoringStats

	pairings  uint64
	timeouts  uint64
	ended     uint64
	relayed   uint64
	noPartner uint64

	// interval deltas for per-second rates
	pairingsWindow uint64
	timeoutsWindow uint64

	durationSumNanos uint64

	queueDepth     atomic.Int64
	activeSessions atomic.Int64

	lastCheck time.Time
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{log: log, lastCheck: time.Now()}
}

func (mm *MonitoringManager) IncrPairings() {
	atomic.AddUint64(&mm.pairings, 1)
	atomic.AddUint64(&mm.pairingsWindow, 1)
}

func (mm *MonitoringManager) IncrTimeouts() {
	atomic.AddUint64(&mm.timeouts, 1)
	atomic.AddUint64(&mm.timeoutsWindow, 1)
}

func (mm *MonitoringManager) IncrEnded() {
	atomic.AddUint64(&mm.ended, 1)
}

func (mm *MonitoringManager) IncrRelayed() {
	atomic.AddUint64(&mm.relayed, 1)
}

func (mm *MonitoringManager) IncrNoPartner() {
	atomic.AddUint64(&mm.noPartner, 1)
}

func (mm *MonitoringManager) ObserveSessionDuration(d time.Duration) {
	atomic.AddUint64(&mm.durationSumNanos, uint64(d.Nanoseconds()))
}

func (mm *MonitoringManager) SetQueueDepth(n int) {
	mm.queueDepth.Store(int64(n))
}

func (mm *MonitoringManager) SetActiveSessions(n int) {
	mm.activeSessions.Store(int64(n))
}

// SetProcessStats merges externally collected process metrics (health
// worker) into the snapshot.
func (mm *MonitoringManager) SetProcessStats(cpu float64, rss uint64) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.latestStats.CPUPercent = cpu
	mm.latestStats.RSSBytes = rss
}

// Listen recomputes the snapshot on a fixed interval until ctx is done.
func (mm *MonitoringManager) Listen(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mm.log.Info("Monitoring manager stopped")
			return
		case <-ticker.C:
			mm.updateStats()
		}
	}
}

func (mm *MonitoringManager) updateStats() {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	now := time.Now()
	duration := now.Sub(mm.lastCheck).Seconds()

	if duration > 0 {
		pw := atomic.SwapUint64(&mm.pairingsWindow, 0)
		tw := atomic.SwapUint64(&mm.timeoutsWindow, 0)
		mm.latestStats.PairingsPerSec = float64(pw) / duration
		mm.latestStats.TimeoutsPerSec = float64(tw) / duration
	}
	mm.lastCheck = now

	mm.latestStats.PairingsTotal = atomic.LoadUint64(&mm.pairings)
	mm.latestStats.TimeoutsTotal = atomic.LoadUint64(&mm.timeouts)
	mm.latestStats.EndedTotal = atomic.LoadUint64(&mm.ended)
	mm.latestStats.RelayedTotal = atomic.LoadUint64(&mm.relayed)
	mm.latestStats.NoPartnerTotal = atomic.LoadUint64(&mm.noPartner)
	mm.latestStats.QueueDepth = int(mm.queueDepth.Load())
	mm.latestStats.ActiveSessions = int(mm.activeSessions.Load())

	if mm.latestStats.EndedTotal > 0 {
		sum := atomic.LoadUint64(&mm.durationSumNanos)
		mm.latestStats.AvgSessionLength = time.Duration(sum).Seconds() / float64(mm.latestStats.EndedTotal)
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	mm.latestStats.AllocMemMb = m.Alloc / 1024 / 1024
	mm.latestStats.NumGC = m.NumGC

	mm.log.Debug("Stats updated",
		"active_sessions", mm.latestStats.ActiveSessions,
		"queue_depth", mm.latestStats.QueueDepth,
		"pairings_total", mm.latestStats.PairingsTotal,
	)
}

// GetLatest returns the last computed snapshot, refreshing the cheap
// gauges and counters so callers never see stale zeros between ticks.
func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	stats := mm.latestStats
	mm.mu.RUnlock()

	stats.PairingsTotal = atomic.LoadUint64(&mm.pairings)
	stats.TimeoutsTotal = atomic.LoadUint64(&mm.timeouts)
	stats.EndedTotal = atomic.LoadUint64(&mm.ended)
	stats.RelayedTotal = atomic.LoadUint64(&mm.relayed)
	stats.NoPartnerTotal = atomic.LoadUint64(&mm.noPartner)
	stats.QueueDepth = int(mm.queueDepth.Load())
	stats.ActiveSessions = int(mm.activeSessions.Load())
	return stats
}
