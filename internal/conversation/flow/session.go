// Package flow runs one inbound event through normalization, completion,
// dispatch and history commit.
package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/memohai/mbot/internal/channel"
	"github.com/memohai/mbot/internal/channel/inbound"
	"github.com/memohai/mbot/internal/completion"
	"github.com/memohai/mbot/internal/conversation"
	"github.com/memohai/mbot/internal/settings"
)

// Outcome is the terminal state of one processed event.
type Outcome string

const (
	OutcomeDuplicate         Outcome = "duplicate"
	OutcomeSkipped           Outcome = "skipped"
	OutcomeProviderExhausted Outcome = "provider_exhausted"
	OutcomePartialFailure    Outcome = "partial_failure"
	OutcomeFailed            Outcome = "failed"
	OutcomeAllSent           Outcome = "all_sent"
)

// DefaultMaxHistoryTurns bounds the history sent to the completion engine.
const DefaultMaxHistoryTurns = 20

// MessageNormalizer turns a platform message into a user turn.
type MessageNormalizer interface {
	Normalize(ctx context.Context, msg channel.InboundMessage) (conversation.Turn, bool)
}

// Completer produces reply fragments for a history window.
type Completer interface {
	Complete(ctx context.Context, window []conversation.Turn, prompt completion.PromptConfig) []channel.Fragment
}

// InstructionSource returns the current system instruction.
type InstructionSource interface {
	SystemInstruction(ctx context.Context) string
}

// SettingsReader reads live numeric overrides.
type SettingsReader interface {
	Float(ctx context.Context, name string) (float64, bool)
	Int(ctx context.Context, name string) (int, bool)
}

// Options holds the per-process session parameters.
type Options struct {
	MaxHistoryTurns int
	Temperature     float32
}

// Session is the per-event pipeline. The same sender is never processed
// concurrently within a process; across processes the store version guards
// against lost updates.
type Session struct {
	dedup      *channel.Deduplicator
	normalizer MessageNormalizer
	completer  Completer
	dispatcher *channel.Dispatcher
	store      conversation.Store
	locks      *conversation.KeyedMutex
	prompts    InstructionSource
	settings   SettingsReader
	opts       Options
	logger     *slog.Logger
}

// Deps groups the collaborators of a Session.
type Deps struct {
	Dedup      *channel.Deduplicator
	Normalizer MessageNormalizer
	Completer  Completer
	Dispatcher *channel.Dispatcher
	Store      conversation.Store
	Prompts    InstructionSource
	Settings   SettingsReader
}

// NewSession creates a session.
func NewSession(log *slog.Logger, deps Deps, opts Options) *Session {
	if log == nil {
		log = slog.Default()
	}
	if deps.Dedup == nil {
		deps.Dedup = channel.NewDeduplicator(0, 0)
	}
	if opts.MaxHistoryTurns <= 0 {
		opts.MaxHistoryTurns = DefaultMaxHistoryTurns
	}
	return &Session{
		dedup:      deps.Dedup,
		normalizer: deps.Normalizer,
		completer:  deps.Completer,
		dispatcher: deps.Dispatcher,
		store:      deps.Store,
		locks:      conversation.NewKeyedMutex(),
		prompts:    deps.Prompts,
		settings:   deps.Settings,
		opts:       opts,
		logger:     log.With(slog.String("service", "session")),
	}
}

// Process handles one event end to end. It never returns an error; failures
// are logged and reported as an Outcome so sibling events keep going.
func (s *Session) Process(ctx context.Context, event channel.InboundEvent) Outcome {
	senderID := strings.TrimSpace(event.SenderID)
	if senderID == "" {
		return OutcomeSkipped
	}
	logger := s.logger.With(slog.String("sender", senderID))

	if s.dedup.CheckAndMark(event.DedupKey()) {
		logger.Info("duplicate event dropped", slog.String("mid", event.DedupKey()))
		return OutcomeDuplicate
	}

	userTurn, ok := s.userTurn(ctx, event)
	if !ok {
		return OutcomeSkipped
	}

	unlock := s.locks.Lock(senderID)
	defer unlock()

	conv, err := s.store.Load(ctx, senderID)
	if err != nil {
		logger.Error("load conversation failed", slog.Any("error", err))
		return OutcomeFailed
	}

	s.dispatcher.NotifyAction(ctx, senderID, channel.ActionMarkSeen)
	s.dispatcher.NotifyAction(ctx, senderID, channel.ActionTypingOn)

	window := append(conv.Window(s.opts.MaxHistoryTurns), userTurn)
	fragments := s.completer.Complete(ctx, window, s.promptConfig(ctx))

	s.dispatcher.NotifyAction(ctx, senderID, channel.ActionTypingOff)

	if len(fragments) == 0 {
		logger.Warn("no reply produced, providers exhausted")
		return OutcomeProviderExhausted
	}

	outcome, err := s.DispatchAndCommit(ctx, conv, userTurn, fragments)
	if err != nil {
		logger.Error("commit conversation failed", slog.Any("error", err))
		return OutcomeFailed
	}
	return outcome
}

func (s *Session) userTurn(ctx context.Context, event channel.InboundEvent) (conversation.Turn, bool) {
	switch {
	case event.Message != nil:
		if s.normalizer == nil {
			return conversation.Turn{}, false
		}
		return s.normalizer.Normalize(ctx, *event.Message)
	case event.Postback != nil:
		return inbound.PostbackTurn(*event.Postback)
	default:
		return conversation.Turn{}, false
	}
}

// promptConfig resolves the system instruction and the live overrides.
func (s *Session) promptConfig(ctx context.Context) completion.PromptConfig {
	cfg := completion.PromptConfig{Temperature: s.opts.Temperature}
	if s.prompts != nil {
		cfg.SystemInstruction = s.prompts.SystemInstruction(ctx)
	}
	if s.settings == nil {
		return cfg
	}
	if v, ok := s.settings.Float(ctx, settings.KeyTemperature); ok {
		cfg.Temperature = float32(v)
	}
	if v, ok := s.settings.Int(ctx, settings.KeyThinkingBudget); ok {
		cfg.ThinkingBudget = &v
	}
	return cfg
}

// DispatchAndCommit sends every fragment and persists the user turn plus one
// assistant turn per fragment only when all of them went out. On a partial
// failure the stored conversation is left untouched.
func (s *Session) DispatchAndCommit(ctx context.Context, conv conversation.Conversation, userTurn conversation.Turn, fragments []channel.Fragment) (Outcome, error) {
	result := s.dispatcher.Dispatch(ctx, conv.SenderID, fragments)
	if !result.AllSent() {
		s.logger.Warn("reply partially delivered, history not committed",
			slog.String("sender", conv.SenderID),
			slog.Int("fragments", len(fragments)),
			slog.Int("failed", len(result.Failed())))
		return OutcomePartialFailure, nil
	}

	turns := make([]conversation.Turn, 0, len(fragments)+1)
	turns = append(turns, userTurn)
	for _, fragment := range fragments {
		turns = append(turns, conversation.AssistantTurn(FragmentText(fragment)))
	}
	if _, err := s.store.Save(ctx, conv.Append(turns...)); err != nil {
		return OutcomeFailed, fmt.Errorf("save conversation %s: %w", conv.SenderID, err)
	}
	return OutcomeAllSent, nil
}

// FragmentText is the history form of a sent fragment.
func FragmentText(fragment channel.Fragment) string {
	switch fragment.Kind {
	case channel.FragmentText:
		return fragment.Text
	case channel.FragmentAttachment:
		kind := "file"
		if fragment.Attachment != nil && strings.TrimSpace(fragment.Attachment.Type) != "" {
			kind = strings.TrimSpace(fragment.Attachment.Type)
		}
		return fmt.Sprintf(`assistant sent an "%s"`, kind)
	case channel.FragmentQuickReplies:
		var body struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(fragment.QuickReplies, &body); err == nil && strings.TrimSpace(body.Text) != "" {
			return body.Text
		}
		return "[quick replies]"
	default:
		return string(fragment.Kind)
	}
}
