package observability

import (
	"context"
	"log/slog"
	"sync"
)

// Config captures observability toggles.
type Config struct {
	Enabled bool
}

// ShutdownFunc tears down anything Setup installed.
type ShutdownFunc func(context.Context) error

var (
	loggerMu sync.RWMutex
	spanLog  *slog.Logger
	state    Config
)

func current() (*slog.Logger, Config) {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return spanLog, state
}

// Setup installs the logger used for spans and metrics. Disabled setups keep counting metrics but log nothing.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (ShutdownFunc, error) {
	loggerMu.Lock()
	spanLog = logger
	state = cfg
	loggerMu.Unlock()

	if logger != nil {
		if cfg.Enabled {
			logger.InfoContext(ctx, "[OBSERVABILITY] span logging enabled")
		} else {
			logger.InfoContext(ctx, "[OBSERVABILITY] span logging disabled")
		}
	}
	return func(context.Context) error {
		loggerMu.Lock()
		spanLog = nil
		state = Config{}
		loggerMu.Unlock()
		return nil
	}, nil
}

// Enabled reports whether span logging is on.
func Enabled() bool {
	_, cfg := current()
	return cfg.Enabled
}
