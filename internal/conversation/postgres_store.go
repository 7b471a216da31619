package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQuerier is satisfied by *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	pgxscan.Querier
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type conversationRow struct {
	SenderID  string    `db:"sender_id"`
	History   []byte    `db:"history"`
	Version   int64     `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r conversationRow) toConversation() (Conversation, error) {
	turns, err := DecodeHistory(r.History)
	if err != nil {
		return Conversation{}, fmt.Errorf("sender %s: %w", r.SenderID, err)
	}
	return Conversation{
		SenderID:  r.SenderID,
		History:   turns,
		Version:   r.Version,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}, nil
}

const pgConversationColumns = `sender_id, history, version, created_at, updated_at`

// PostgresStore keeps conversations in the conversations table.
type PostgresStore struct {
	db pgxQuerier
}

func NewPostgresStore(db pgxQuerier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context, senderID string) (Conversation, error) {
	conv, err := s.Get(ctx, senderID)
	if errors.Is(err, ErrNotFound) {
		return Conversation{SenderID: senderID, History: []Turn{}}, nil
	}
	return conv, err
}

func (s *PostgresStore) Get(ctx context.Context, senderID string) (Conversation, error) {
	var row conversationRow
	err := pgxscan.Get(ctx, s.db, &row, `SELECT `+pgConversationColumns+` FROM conversations WHERE sender_id = $1`, senderID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("load conversation: %w", err)
	}
	return row.toConversation()
}

func (s *PostgresStore) Save(ctx context.Context, conv Conversation) (Conversation, error) {
	history, err := EncodeHistory(conv.History)
	if err != nil {
		return Conversation{}, err
	}
	var row conversationRow
	if conv.Version == 0 {
		err = pgxscan.Get(ctx, s.db, &row, `
INSERT INTO conversations (sender_id, history, version, created_at, updated_at)
VALUES ($1, $2::jsonb, 1, now(), now())
ON CONFLICT (sender_id) DO NOTHING
RETURNING `+pgConversationColumns, conv.SenderID, string(history))
	} else {
		err = pgxscan.Get(ctx, s.db, &row, `
UPDATE conversations
SET history = $2::jsonb, version = version + 1, updated_at = now()
WHERE sender_id = $1 AND version = $3
RETURNING `+pgConversationColumns, conv.SenderID, string(history), conv.Version)
	}
	if err != nil {
		if pgxscan.NotFound(err) {
			return Conversation{}, ErrVersionConflict
		}
		return Conversation{}, fmt.Errorf("save conversation: %w", err)
	}
	return row.toConversation()
}

func (s *PostgresStore) List(ctx context.Context, query ListQuery) ([]Conversation, error) {
	sql := `SELECT ` + pgConversationColumns + ` FROM conversations`
	args := []any{}
	if search := strings.TrimSpace(query.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		sql += fmt.Sprintf(` WHERE sender_id LIKE $%d`, len(args))
	}
	sql += ` ORDER BY created_at DESC, sender_id`
	if query.Limit > 0 {
		args = append(args, query.Limit)
		sql += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if query.Offset > 0 {
		args = append(args, query.Offset)
		sql += fmt.Sprintf(` OFFSET $%d`, len(args))
	}
	var rows []conversationRow
	if err := pgxscan.Select(ctx, s.db, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return rowsToConversations(rows)
}

func (s *PostgresStore) Clear(ctx context.Context, senderID string) error {
	tag, err := s.db.Exec(ctx, `UPDATE conversations SET history = '[]'::jsonb, version = version + 1, updated_at = now() WHERE sender_id = $1`, senderID)
	if err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM conversations WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete inactive conversations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func rowsToConversations(rows []conversationRow) ([]Conversation, error) {
	out := make([]Conversation, 0, len(rows))
	for _, row := range rows {
		conv, err := row.toConversation()
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
