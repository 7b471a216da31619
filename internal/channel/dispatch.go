package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Sender is the outbound primitive of a platform: one call per fragment or action.
type Sender interface {
	SendMessage(ctx context.Context, recipientID string, fragment Fragment) error
	SendAction(ctx context.Context, recipientID string, action SenderAction) error
}

// FragmentResult is the delivery result of one fragment.
type FragmentResult struct {
	Index int
	Kind  FragmentKind
	Err   error
}

// DispatchResult collects per-fragment results of one reply.
type DispatchResult struct {
	Results []FragmentResult
}

// AllSent reports whether every fragment was delivered.
func (r DispatchResult) AllSent() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return false
		}
	}
	return true
}

// Failed returns the results that did not go through.
func (r DispatchResult) Failed() []FragmentResult {
	var failed []FragmentResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Dispatcher sends reply fragments through a Sender.
type Dispatcher struct {
	sender        Sender
	logger        *slog.Logger
	actionTimeout time.Duration
}

// NewDispatcher creates a dispatcher over sender.
func NewDispatcher(log *slog.Logger, sender Sender) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		sender:        sender,
		logger:        log.With(slog.String("component", "dispatcher")),
		actionTimeout: 5 * time.Second,
	}
}

// Dispatch attempts every fragment in order and never stops at the first
// failure. The caller decides what to commit from the returned result.
func (d *Dispatcher) Dispatch(ctx context.Context, recipientID string, fragments []Fragment) DispatchResult {
	result := DispatchResult{Results: make([]FragmentResult, 0, len(fragments))}
	recipientID = strings.TrimSpace(recipientID)
	for i, fragment := range fragments {
		var err error
		switch {
		case d.sender == nil:
			err = fmt.Errorf("sender not configured")
		case recipientID == "":
			err = fmt.Errorf("recipient is required")
		default:
			err = d.sender.SendMessage(ctx, recipientID, fragment)
		}
		if err != nil {
			d.logger.Warn("send fragment failed",
				slog.String("recipient", recipientID),
				slog.Int("index", i),
				slog.String("kind", string(fragment.Kind)),
				slog.Any("error", err))
		}
		result.Results = append(result.Results, FragmentResult{Index: i, Kind: fragment.Kind, Err: err})
	}
	return result
}

// NotifyAction sends a sender action best-effort; failures are only logged.
func (d *Dispatcher) NotifyAction(ctx context.Context, recipientID string, action SenderAction) {
	if d.sender == nil || strings.TrimSpace(recipientID) == "" {
		return
	}
	actionCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.actionTimeout)
	defer cancel()
	if err := d.sender.SendAction(actionCtx, recipientID, action); err != nil {
		d.logger.Debug("sender action failed",
			slog.String("recipient", recipientID),
			slog.String("action", string(action)),
			slog.Any("error", err))
	}
}
