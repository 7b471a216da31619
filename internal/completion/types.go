// Package completion obtains a structured reply from an ordered pool of
// (model, credential) attempts.
package completion

import (
	"context"

	"github.com/memohai/mbot/internal/conversation"
)

// Credential authenticates against the completion provider.
type Credential struct {
	Name   string
	APIKey string
}

// CredentialSource lists stored credentials in storage order.
type CredentialSource interface {
	ListCredentials(ctx context.Context) ([]Credential, error)
}

// CredentialSourceFunc adapts a function to CredentialSource.
type CredentialSourceFunc func(ctx context.Context) ([]Credential, error)

func (f CredentialSourceFunc) ListCredentials(ctx context.Context) ([]Credential, error) {
	return f(ctx)
}

// PromptConfig is resolved per event. A nil ThinkingBudget means unset.
type PromptConfig struct {
	SystemInstruction string
	Temperature       float32
	ThinkingBudget    *int
}

// Request is one engine call.
type Request struct {
	Model             string
	Credential        Credential
	SystemInstruction string
	History           []conversation.Turn
	Temperature       float32
	// ThinkingBudget is nil for models without a thinking budget.
	ThinkingBudget *int32
}

// Engine returns the raw text output of one model call.
type Engine interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Attempt is one (model, credential) pair of the fallback plan.
type Attempt struct {
	Model      string
	Credential Credential
}
