package completionchecker

import (
	"context"
	"log/slog"
	"strings"

	"github.com/memohai/mbot/internal/completion"
	"github.com/memohai/mbot/internal/healthcheck"
)

const checkTypeCredentials = "completion.credentials"

// Checker reports whether any completion credential is available.
type Checker struct {
	logger  *slog.Logger
	primary string
	stored  completion.CredentialSource
}

func NewChecker(log *slog.Logger, primaryAPIKey string, stored completion.CredentialSource) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger:  log.With(slog.String("checker", "healthcheck_completion")),
		primary: strings.TrimSpace(primaryAPIKey),
		stored:  stored,
	}
}

// ListChecks reports an error when neither a primary nor a stored key exists,
// since every event would end as provider exhausted.
func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	count := 0
	if c.primary != "" {
		count++
	}
	result := healthcheck.CheckResult{
		ID:   checkTypeCredentials,
		Type: checkTypeCredentials,
	}
	if c.stored != nil {
		items, err := c.stored.ListCredentials(ctx)
		if err != nil {
			c.logger.Warn("list credentials failed", slog.Any("error", err))
			result.Detail = err.Error()
		}
		for _, item := range items {
			if strings.TrimSpace(item.APIKey) != "" {
				count++
			}
		}
	}
	result.Metadata = map[string]any{"count": count, "primary": c.primary != ""}
	switch {
	case count == 0:
		result.Status = healthcheck.StatusError
		result.Summary = "no completion credentials"
	case result.Detail != "":
		result.Status = healthcheck.StatusWarn
		result.Summary = "stored credentials unavailable"
	default:
		result.Status = healthcheck.StatusOK
		result.Summary = "completion credentials available"
	}
	return []healthcheck.CheckResult{result}
}
