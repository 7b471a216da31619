package settings

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu          sync.RWMutex
	settings    map[string]Setting
	credentials map[uuid.UUID]Credential
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		settings:    make(map[string]Setting),
		credentials: make(map[uuid.UUID]Credential),
		now:         time.Now,
	}
}

func (s *MemoryStore) GetSetting(_ context.Context, name string) (Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.settings[name]
	if !ok {
		return Setting{}, ErrNotFound
	}
	return item, nil
}

func (s *MemoryStore) ListSettings(_ context.Context) ([]Setting, error) {
	s.mu.RLock()
	out := make([]Setting, 0, len(s.settings))
	for _, item := range s.settings {
		out = append(out, item)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) PutSetting(_ context.Context, name, value string) (Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := Setting{Name: name, Value: value, UpdatedAt: s.now().UTC()}
	s.settings[name] = item
	return item, nil
}

func (s *MemoryStore) DeleteSetting(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.settings[name]; !ok {
		return ErrNotFound
	}
	delete(s.settings, name)
	return nil
}

func (s *MemoryStore) ListCredentials(_ context.Context) ([]Credential, error) {
	s.mu.RLock()
	out := make([]Credential, 0, len(s.credentials))
	for _, item := range s.credentials {
		out = append(out, item)
	}
	s.mu.RUnlock()
	sortCredentials(out)
	return out, nil
}

func (s *MemoryStore) CreateCredential(_ context.Context, cred Credential) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.credentials {
		if existing.Name == cred.Name {
			return Credential{}, fmt.Errorf("credential %q already exists", cred.Name)
		}
	}
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = s.now().UTC()
	}
	s.credentials[cred.ID] = cred
	return cred, nil
}

func (s *MemoryStore) DeleteCredential(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[id]; !ok {
		return ErrNotFound
	}
	delete(s.credentials, id)
	return nil
}

func sortCredentials(items []Credential) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
}
