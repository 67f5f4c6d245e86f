package coordinator

import (
	"log/slog"
	"time"

	"github.com/stacklok/gitsorted/internal/config"
)

// defaultTickInterval applies when the configured interval is not positive
const defaultTickInterval = 10 * time.Second

// getTickInterval extracts the tick interval from the sync configuration
func getTickInterval(cfg *config.Config) time.Duration {
	if cfg != nil && cfg.Sync.TickInterval > 0 {
		return cfg.Sync.TickInterval
	}
	slog.Warn("Invalid tick interval, using default", "default", defaultTickInterval)
	return defaultTickInterval
}
