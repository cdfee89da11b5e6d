package internal

import "time"

// Config is loaded once from the environment; the engine treats every
// value as immutable for the process lifetime.
type Config struct {
	PairInterval    time.Duration `env:"PAIR_INTERVAL,default=1s" validate:"gt=0"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL,default=300s" validate:"gt=0"`
	SessionTimeout  time.Duration `env:"TIMEOUT_SECONDS,default=120s" validate:"gt=0"`
	// WaitingTimeout defaults to the session timeout when unset.
	WaitingTimeout  time.Duration `env:"WAITING_TIMEOUT"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=1s" validate:"gt=0"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	BufferSize      int           `env:"BUFFER_SIZE,default=256" validate:"gt=0"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO" validate:"required"`
	Host            string        `env:"HOST,default=localhost"`
	Port            int           `env:"PORT,default=8080" validate:"gt=0"`
	DebugPort       int           `env:"DEBUG_PORT,default=8000" validate:"gt=0"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,default=./data/archive" validate:"required"`
}

// EffectiveWaitingTimeout falls back to the session timeout so a single
// TIMEOUT_SECONDS covers both knobs.
func (c Config) EffectiveWaitingTimeout() time.Duration {
	if c.WaitingTimeout > 0 {
		return c.WaitingTimeout
	}
	return c.SessionTimeout
}
