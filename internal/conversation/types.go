// Package conversation defines the per-sender transcript and its stores.
package conversation

import (
	"context"
	"errors"
	"time"
)

// Role tags who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one recorded utterance. Content is always plain text.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserTurn builds a user turn.
func UserTurn(content string) Turn { return Turn{Role: RoleUser, Content: content} }

// AssistantTurn builds an assistant turn.
func AssistantTurn(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }

// Conversation is the transcript of one sender. Version is the optimistic
// concurrency token; zero means the record has not been stored yet.
type Conversation struct {
	SenderID  string    `json:"sender_id"`
	History   []Turn    `json:"history"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Append returns a copy of c with turns added after the existing history.
func (c Conversation) Append(turns ...Turn) Conversation {
	next := c
	next.History = make([]Turn, 0, len(c.History)+len(turns))
	next.History = append(next.History, c.History...)
	next.History = append(next.History, turns...)
	return next
}

// Window returns the last n turns of the history; n <= 0 returns all of it.
func (c Conversation) Window(n int) []Turn {
	if n <= 0 || len(c.History) <= n {
		return append([]Turn(nil), c.History...)
	}
	return append([]Turn(nil), c.History[len(c.History)-n:]...)
}

// Summary is a list row for the admin surface.
type Summary struct {
	SenderID       string    `json:"sender_id"`
	MessageCount   int       `json:"message_count"`
	HistoryPreview string    `json:"history_preview"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ListQuery filters the admin listing.
type ListQuery struct {
	Search string
	Limit  int
	Offset int
}

var (
	ErrNotFound        = errors.New("conversation not found")
	ErrVersionConflict = errors.New("conversation version conflict")
)

// Store persists conversations keyed by sender id.
type Store interface {
	// Load returns the stored conversation or an empty one with Version 0.
	Load(ctx context.Context, senderID string) (Conversation, error)
	// Save writes conv if its Version still matches the stored one and
	// returns the record with the incremented version.
	Save(ctx context.Context, conv Conversation) (Conversation, error)
	Get(ctx context.Context, senderID string) (Conversation, error)
	List(ctx context.Context, query ListQuery) ([]Conversation, error)
	// Clear empties the history of an existing conversation.
	Clear(ctx context.Context, senderID string) error
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
