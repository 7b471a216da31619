package settings

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxQuerier interface {
	pgxscan.Querier
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db pgxQuerier
}

func NewPostgresStore(db pgxQuerier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetSetting(ctx context.Context, name string) (Setting, error) {
	var item Setting
	err := pgxscan.Get(ctx, s.db, &item, `SELECT name, value, updated_at FROM settings WHERE name = $1`, name)
	if err != nil {
		if pgxscan.NotFound(err) {
			return Setting{}, ErrNotFound
		}
		return Setting{}, fmt.Errorf("get setting: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListSettings(ctx context.Context) ([]Setting, error) {
	var items []Setting
	if err := pgxscan.Select(ctx, s.db, &items, `SELECT name, value, updated_at FROM settings ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) PutSetting(ctx context.Context, name, value string) (Setting, error) {
	var item Setting
	err := pgxscan.Get(ctx, s.db, &item, `
INSERT INTO settings (name, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
RETURNING name, value, updated_at`, name, value)
	if err != nil {
		return Setting{}, fmt.Errorf("put setting: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteSetting(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM settings WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListCredentials(ctx context.Context) ([]Credential, error) {
	var items []Credential
	err := pgxscan.Select(ctx, s.db, &items, `SELECT id, name, api_key, created_at FROM credentials ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CreateCredential(ctx context.Context, cred Credential) (Credential, error) {
	var item Credential
	err := pgxscan.Get(ctx, s.db, &item, `
INSERT INTO credentials (id, name, api_key, created_at) VALUES ($1, $2, $3, now())
RETURNING id, name, api_key, created_at`, cred.ID, cred.Name, cred.APIKey)
	if err != nil {
		return Credential{}, fmt.Errorf("create credential: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteCredential(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
