package messengerchecker

import (
	"context"
	"strings"

	"github.com/memohai/mbot/internal/config"
	"github.com/memohai/mbot/internal/healthcheck"
)

const checkTypeMessengerConfig = "messenger.config"

// Checker reports which Messenger secrets are missing.
type Checker struct {
	cfg config.MessengerConfig
}

func NewChecker(cfg config.Config) *Checker {
	return &Checker{cfg: cfg.Messenger}
}

// ListChecks returns one item per secret. A missing page token or app secret
// is an error because no event can be verified or answered; a missing verify
// token only blocks re-subscription.
func (c *Checker) ListChecks(_ context.Context) []healthcheck.CheckResult {
	return []healthcheck.CheckResult{
		secretCheck("page_access_token", c.cfg.PageAccessToken, healthcheck.StatusError),
		secretCheck("app_secret", c.cfg.AppSecret, healthcheck.StatusError),
		secretCheck("verify_token", c.cfg.VerifyToken, healthcheck.StatusWarn),
	}
}

func secretCheck(name, value, missingStatus string) healthcheck.CheckResult {
	result := healthcheck.CheckResult{
		ID:      checkTypeMessengerConfig + "." + name,
		Type:    checkTypeMessengerConfig,
		Status:  healthcheck.StatusOK,
		Summary: name + " configured",
	}
	if strings.TrimSpace(value) == "" {
		result.Status = missingStatus
		result.Summary = name + " missing"
	}
	return result
}
