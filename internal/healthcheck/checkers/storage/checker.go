package storagechecker

import (
	"context"
	"log/slog"
	"time"

	"github.com/memohai/mbot/internal/healthcheck"
)

const checkTypeStorage = "storage.ping"

// PingFunc reaches the backing database.
type PingFunc func(ctx context.Context) error

// Checker pings the conversation store backend.
type Checker struct {
	logger  *slog.Logger
	backend string
	ping    PingFunc
	timeout time.Duration
}

// NewChecker creates a storage checker. A nil ping reports ok, as for the
// in-memory backend.
func NewChecker(log *slog.Logger, backend string, ping PingFunc) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger:  log.With(slog.String("checker", "healthcheck_storage")),
		backend: backend,
		ping:    ping,
		timeout: 3 * time.Second,
	}
}

// ListChecks reports a single storage item.
func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	result := healthcheck.CheckResult{
		ID:       checkTypeStorage + "." + c.backend,
		Type:     checkTypeStorage,
		Status:   healthcheck.StatusOK,
		Summary:  "storage reachable",
		Metadata: map[string]any{"backend": c.backend},
	}
	if c.ping == nil {
		return []healthcheck.CheckResult{result}
	}
	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.ping(pingCtx); err != nil {
		c.logger.Warn("storage ping failed", slog.String("backend", c.backend), slog.Any("error", err))
		result.Status = healthcheck.StatusError
		result.Summary = "storage unreachable"
		result.Detail = err.Error()
	}
	return []healthcheck.CheckResult{result}
}
