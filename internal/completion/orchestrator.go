package completion

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/memohai/mbot/internal/channel"
	"github.com/memohai/mbot/internal/conversation"
)

type Options struct {
	Models         []string
	Primary        Credential
	AttemptTimeout time.Duration
	Thinking       ThinkingPolicy
}

// Orchestrator walks a fixed attempt order until one engine call yields a
// non-empty valid reply.
type Orchestrator struct {
	engine      Engine
	credentials CredentialSource
	models      []string
	primary     Credential
	timeout     time.Duration
	thinking    ThinkingPolicy
	logger      *slog.Logger
}

func NewOrchestrator(log *slog.Logger, engine Engine, credentials CredentialSource, opts Options) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 30 * time.Second
	}
	if opts.Thinking.Profiles == nil {
		opts.Thinking = DefaultThinkingPolicy()
	}
	models := make([]string, 0, len(opts.Models))
	for _, m := range opts.Models {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	opts.Primary.APIKey = strings.TrimSpace(opts.Primary.APIKey)
	if opts.Primary.Name == "" {
		opts.Primary.Name = "primary"
	}
	return &Orchestrator{
		engine:      engine,
		credentials: credentials,
		models:      models,
		primary:     opts.Primary,
		timeout:     opts.AttemptTimeout,
		thinking:    opts.Thinking,
		logger:      log.With(slog.String("service", "completion")),
	}
}

// Plan returns the attempt order: every model with the primary credential,
// then every model with each stored credential in storage order. Stored
// credentials repeating an already planned key are skipped.
func (o *Orchestrator) Plan(ctx context.Context) []Attempt {
	creds := make([]Credential, 0, 4)
	seen := map[string]struct{}{}
	if o.primary.APIKey != "" {
		creds = append(creds, o.primary)
		seen[o.primary.APIKey] = struct{}{}
	}
	if o.credentials != nil {
		stored, err := o.credentials.ListCredentials(ctx)
		if err != nil {
			o.logger.Warn("list stored credentials failed", slog.Any("error", err))
		}
		for _, c := range stored {
			c.APIKey = strings.TrimSpace(c.APIKey)
			if c.APIKey == "" {
				continue
			}
			if _, dup := seen[c.APIKey]; dup {
				continue
			}
			seen[c.APIKey] = struct{}{}
			creds = append(creds, c)
		}
	}
	plan := make([]Attempt, 0, len(creds)*len(o.models))
	for _, c := range creds {
		for _, m := range o.models {
			plan = append(plan, Attempt{Model: m, Credential: c})
		}
	}
	return plan
}

// Complete returns the first non-empty valid reply, or an empty slice when
// every attempt failed. window ends with the current user turn.
func (o *Orchestrator) Complete(ctx context.Context, window []conversation.Turn, prompt PromptConfig) []channel.Fragment {
	plan := o.Plan(ctx)
	if len(plan) == 0 {
		o.logger.Error("no completion attempts configured")
		return []channel.Fragment{}
	}
	priorTurns := len(window) - 1
	for i, attempt := range plan {
		if ctx.Err() != nil {
			o.logger.Warn("completion cancelled", slog.Int("attempt", i+1), slog.Any("error", ctx.Err()))
			break
		}
		log := o.logger.With(
			slog.Int("attempt", i+1),
			slog.String("model", attempt.Model),
			slog.String("credential", attempt.Credential.Name),
		)
		fragments, err := o.try(ctx, attempt, window, prompt, priorTurns)
		if err != nil {
			log.Warn("completion attempt failed", slog.Any("error", err))
			continue
		}
		if len(fragments) == 0 {
			log.Warn("completion attempt returned empty reply")
			continue
		}
		log.Info("completion attempt succeeded", slog.Int("fragments", len(fragments)))
		return fragments
	}
	o.logger.Error("all completion attempts exhausted", slog.Int("attempts", len(plan)))
	return []channel.Fragment{}
}

func (o *Orchestrator) try(ctx context.Context, attempt Attempt, window []conversation.Turn, prompt PromptConfig, priorTurns int) ([]channel.Fragment, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	raw, err := o.engine.Complete(callCtx, Request{
		Model:             attempt.Model,
		Credential:        attempt.Credential,
		SystemInstruction: prompt.SystemInstruction,
		History:           window,
		Temperature:       prompt.Temperature,
		ThinkingBudget:    o.thinking.Budget(attempt.Model, priorTurns, prompt.ThinkingBudget),
	})
	if err != nil {
		return nil, err
	}
	return ParseReply(raw)
}
