package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

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
		logger: log.With(slog.String("service", "settings")),
	}
}

func (s *Service) List(ctx context.Context) ([]Setting, error) {
	return s.store.ListSettings(ctx)
}

func (s *Service) Get(ctx context.Context, name string) (Setting, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Setting{}, err
	}
	return s.store.GetSetting(ctx, name)
}

func (s *Service) Put(ctx context.Context, name, value string) (Setting, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Setting{}, err
	}
	value = strings.TrimSpace(value)
	if err := validateKnown(name, value); err != nil {
		return Setting{}, err
	}
	return s.store.PutSetting(ctx, name, value)
}

func (s *Service) Delete(ctx context.Context, name string) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	return s.store.DeleteSetting(ctx, name)
}

// Float reads a numeric setting. Missing or unparsable values report false.
func (s *Service) Float(ctx context.Context, name string) (float64, bool) {
	item, ok := s.read(ctx, name)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(item.Value, 64)
	if err != nil {
		s.logger.Warn("ignoring non-numeric setting", slog.String("name", name), slog.String("value", item.Value))
		return 0, false
	}
	return v, true
}

// Int reads an integer setting. Missing or unparsable values report false.
func (s *Service) Int(ctx context.Context, name string) (int, bool) {
	item, ok := s.read(ctx, name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(item.Value)
	if err != nil {
		s.logger.Warn("ignoring non-integer setting", slog.String("name", name), slog.String("value", item.Value))
		return 0, false
	}
	return v, true
}

func (s *Service) read(ctx context.Context, name string) (Setting, bool) {
	item, err := s.store.GetSetting(ctx, name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("read setting failed", slog.String("name", name), slog.Any("error", err))
		}
		return Setting{}, false
	}
	return item, true
}

// ListCredentials returns stored credentials with their keys in storage order.
func (s *Service) ListCredentials(ctx context.Context) ([]Credential, error) {
	return s.store.ListCredentials(ctx)
}

// ListCredentialViews returns stored credentials with masked keys.
func (s *Service) ListCredentialViews(ctx context.Context) ([]CredentialView, error) {
	items, err := s.store.ListCredentials(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CredentialView, 0, len(items))
	for _, item := range items {
		out = append(out, maskCredential(item))
	}
	return out, nil
}

func (s *Service) CreateCredential(ctx context.Context, req CreateCredentialRequest) (CredentialView, error) {
	name := strings.TrimSpace(req.Name)
	key := strings.TrimSpace(req.APIKey)
	if name == "" || key == "" {
		return CredentialView{}, fmt.Errorf("%w: name and api_key are required", ErrInvalid)
	}
	created, err := s.store.CreateCredential(ctx, Credential{ID: uuid.New(), Name: name, APIKey: key})
	if err != nil {
		return CredentialView{}, err
	}
	s.logger.Info("credential created", slog.String("id", created.ID.String()), slog.String("name", created.Name))
	return maskCredential(created), nil
}

func (s *Service) DeleteCredential(ctx context.Context, id string) error {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("%w: credential id: %v", ErrInvalid, err)
	}
	return s.store.DeleteCredential(ctx, parsed)
}

// MaskKey keeps the last four characters of key.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return "****" + key[len(key)-4:]
}

func maskCredential(c Credential) CredentialView {
	return CredentialView{ID: c.ID, Name: c.Name, APIKey: MaskKey(c.APIKey), CreatedAt: c.CreatedAt}
}

func normalizeName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalid)
	}
	return name, nil
}

func validateKnown(name, value string) error {
	switch name {
	case KeyTemperature:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 || v > 2 {
			return fmt.Errorf("%w: temperature must be a number between 0 and 2", ErrInvalid)
		}
	case KeyThinkingBudget:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("%w: thinking_budget must be an integer", ErrInvalid)
		}
	}
	return nil
}
