package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

type sqlQuerier interface {
	sqlscan.Querier
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type SQLiteStore struct {
	db  sqlQuerier
	now func() time.Time
}

func NewSQLiteStore(db sqlQuerier) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

type sqliteCredentialRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	APIKey    string    `db:"api_key"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *SQLiteStore) GetSetting(ctx context.Context, name string) (Setting, error) {
	var item Setting
	err := sqlscan.Get(ctx, s.db, &item, `SELECT name, value, updated_at FROM settings WHERE name = ?`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Setting{}, ErrNotFound
		}
		return Setting{}, fmt.Errorf("get setting: %w", err)
	}
	return item, nil
}

func (s *SQLiteStore) ListSettings(ctx context.Context) ([]Setting, error) {
	var items []Setting
	if err := sqlscan.Select(ctx, s.db, &items, `SELECT name, value, updated_at FROM settings ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return items, nil
}

func (s *SQLiteStore) PutSetting(ctx context.Context, name, value string) (Setting, error) {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO settings (name, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, value, sqliteTime(s.now()))
	if err != nil {
		return Setting{}, fmt.Errorf("put setting: %w", err)
	}
	return s.GetSetting(ctx, name)
}

func (s *SQLiteStore) DeleteSetting(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListCredentials(ctx context.Context) ([]Credential, error) {
	var rows []sqliteCredentialRow
	err := sqlscan.Select(ctx, s.db, &rows, `SELECT id, name, api_key, created_at FROM credentials ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	out := make([]Credential, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, fmt.Errorf("credential %s: %w", row.Name, err)
		}
		out = append(out, Credential{ID: id, Name: row.Name, APIKey: row.APIKey, CreatedAt: row.CreatedAt.UTC()})
	}
	return out, nil
}

func (s *SQLiteStore) CreateCredential(ctx context.Context, cred Credential) (Credential, error) {
	created := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO credentials (id, name, api_key, created_at) VALUES (?, ?, ?, ?)`,
		cred.ID.String(), cred.Name, cred.APIKey, sqliteTime(created))
	if err != nil {
		return Credential{}, fmt.Errorf("create credential: %w", err)
	}
	cred.CreatedAt = created
	return cred, nil
}

func (s *SQLiteStore) DeleteCredential(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func sqliteTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05.000000000")
}
