package conversation

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps conversations in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Conversation
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Conversation), now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, senderID string) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if conv, ok := s.items[senderID]; ok {
		return cloneConversation(conv), nil
	}
	return Conversation{SenderID: senderID, History: []Turn{}}, nil
}

func (s *MemoryStore) Save(_ context.Context, conv Conversation) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	current, exists := s.items[conv.SenderID]
	switch {
	case !exists && conv.Version != 0:
		return Conversation{}, ErrVersionConflict
	case exists && current.Version != conv.Version:
		return Conversation{}, ErrVersionConflict
	}
	next := cloneConversation(conv)
	next.Version = conv.Version + 1
	next.UpdatedAt = now
	if exists {
		next.CreatedAt = current.CreatedAt
	} else {
		next.CreatedAt = now
	}
	s.items[conv.SenderID] = next
	return cloneConversation(next), nil
}

func (s *MemoryStore) Get(_ context.Context, senderID string) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.items[senderID]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return cloneConversation(conv), nil
}

func (s *MemoryStore) List(_ context.Context, query ListQuery) ([]Conversation, error) {
	s.mu.RLock()
	out := make([]Conversation, 0, len(s.items))
	search := strings.TrimSpace(query.Search)
	for _, conv := range s.items {
		if search != "" && !strings.Contains(conv.SenderID, search) {
			continue
		}
		out = append(out, cloneConversation(conv))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].SenderID < out[j].SenderID
	})
	return paginate(out, query.Offset, query.Limit), nil
}

func (s *MemoryStore) Clear(_ context.Context, senderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.items[senderID]
	if !ok {
		return ErrNotFound
	}
	conv.History = []Turn{}
	conv.Version++
	conv.UpdatedAt = s.now().UTC()
	s.items[senderID] = conv
	return nil
}

func (s *MemoryStore) DeleteInactiveBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, conv := range s.items {
		if conv.UpdatedAt.Before(cutoff) {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}

func cloneConversation(conv Conversation) Conversation {
	conv.History = append([]Turn{}, conv.History...)
	return conv
}

func paginate(items []Conversation, offset, limit int) []Conversation {
	if offset > 0 {
		if offset >= len(items) {
			return []Conversation{}
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
