package settings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Well-known setting names read by the reply pipeline.
const (
	KeyTemperature    = "temperature"
	KeyThinkingBudget = "thinking_budget"
)

var (
	ErrNotFound = errors.New("setting not found")
	ErrInvalid  = errors.New("invalid setting")
)

type Setting struct {
	Name      string    `json:"name" db:"name"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Credential is a named completion API key.
type Credential struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	APIKey    string    `json:"api_key" db:"api_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CredentialView is a Credential with the key masked.
type CredentialView struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	APIKey    string    `json:"api_key"`
	CreatedAt time.Time `json:"created_at"`
}

type UpsertSettingRequest struct {
	Value string `json:"value" validate:"required,max=4096"`
}

type CreateCredentialRequest struct {
	Name   string `json:"name" validate:"required,max=128"`
	APIKey string `json:"api_key" validate:"required"`
}

// Store persists settings and credentials. ListCredentials orders by
// created_at then id so fallback order is stable.
type Store interface {
	GetSetting(ctx context.Context, name string) (Setting, error)
	ListSettings(ctx context.Context) ([]Setting, error)
	PutSetting(ctx context.Context, name, value string) (Setting, error)
	DeleteSetting(ctx context.Context, name string) error

	ListCredentials(ctx context.Context) ([]Credential, error)
	CreateCredential(ctx context.Context, cred Credential) (Credential, error)
	DeleteCredential(ctx context.Context, id uuid.UUID) error
}
