package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

const previewMaxRunes = 60

// Service is the administrative surface over a Store.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(log *slog.Logger, store Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		logger: log.With(slog.String("service", "conversation")),
	}
}

// List returns summaries ordered newest first.
func (s *Service) List(ctx context.Context, query ListQuery) ([]Summary, error) {
	items, err := s.store.List(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(items))
	for _, conv := range items {
		out = append(out, Summarize(conv))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, senderID string) (Conversation, error) {
	senderID = strings.TrimSpace(senderID)
	if senderID == "" {
		return Conversation{}, fmt.Errorf("sender id is required")
	}
	return s.store.Get(ctx, senderID)
}

// Clear empties the history of each sender. It stops at the first failure.
func (s *Service) Clear(ctx context.Context, senderIDs ...string) (int, error) {
	cleared := 0
	for _, id := range senderIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if err := s.store.Clear(ctx, id); err != nil {
			return cleared, fmt.Errorf("clear %s: %w", id, err)
		}
		cleared++
	}
	s.logger.Info("conversation history cleared", slog.Int("count", cleared))
	return cleared, nil
}

// Summarize builds the list row of a conversation.
func Summarize(conv Conversation) Summary {
	return Summary{
		SenderID:       conv.SenderID,
		MessageCount:   len(conv.History),
		HistoryPreview: HistoryPreview(conv.History),
		CreatedAt:      conv.CreatedAt,
		UpdatedAt:      conv.UpdatedAt,
	}
}

// HistoryPreview renders the first turn as "role: content", cut to 60 runes.
func HistoryPreview(turns []Turn) string {
	if len(turns) == 0 {
		return "Empty"
	}
	role := string(turns[0].Role)
	if role == "" {
		role = "unknown"
	}
	preview := role + ": " + turns[0].Content
	if utf8.RuneCountInString(preview) <= previewMaxRunes {
		return preview
	}
	return string([]rune(preview)[:previewMaxRunes]) + "..."
}
