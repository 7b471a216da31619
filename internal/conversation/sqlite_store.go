package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// sqlQuerier is satisfied by *sql.DB and *sql.Tx.
type sqlQuerier interface {
	sqlscan.Querier
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLiteStore keeps conversations in an embedded SQLite database.
type SQLiteStore struct {
	db  sqlQuerier
	now func() time.Time
}

func NewSQLiteStore(db sqlQuerier) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

const sqliteConversationColumns = `sender_id, history, version, created_at, updated_at`

func (s *SQLiteStore) Load(ctx context.Context, senderID string) (Conversation, error) {
	conv, err := s.Get(ctx, senderID)
	if errors.Is(err, ErrNotFound) {
		return Conversation{SenderID: senderID, History: []Turn{}}, nil
	}
	return conv, err
}

func (s *SQLiteStore) Get(ctx context.Context, senderID string) (Conversation, error) {
	var row conversationRow
	err := sqlscan.Get(ctx, s.db, &row, `SELECT `+sqliteConversationColumns+` FROM conversations WHERE sender_id = ?`, senderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("load conversation: %w", err)
	}
	return row.toConversation()
}

func (s *SQLiteStore) Save(ctx context.Context, conv Conversation) (Conversation, error) {
	history, err := EncodeHistory(conv.History)
	if err != nil {
		return Conversation{}, err
	}
	now := sqliteTime(s.now())
	var res sql.Result
	if conv.Version == 0 {
		res, err = s.db.ExecContext(ctx, `
INSERT INTO conversations (sender_id, history, version, created_at, updated_at)
VALUES (?, ?, 1, ?, ?)
ON CONFLICT (sender_id) DO NOTHING`, conv.SenderID, string(history), now, now)
	} else {
		res, err = s.db.ExecContext(ctx, `
UPDATE conversations SET history = ?, version = version + 1, updated_at = ?
WHERE sender_id = ? AND version = ?`, string(history), now, conv.SenderID, conv.Version)
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("save conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Conversation{}, fmt.Errorf("save conversation: %w", err)
	}
	if n == 0 {
		return Conversation{}, ErrVersionConflict
	}
	return s.Get(ctx, conv.SenderID)
}

func (s *SQLiteStore) List(ctx context.Context, query ListQuery) ([]Conversation, error) {
	q := `SELECT ` + sqliteConversationColumns + ` FROM conversations`
	args := []any{}
	if search := strings.TrimSpace(query.Search); search != "" {
		q += ` WHERE sender_id LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(search)+"%")
	}
	q += ` ORDER BY created_at DESC, sender_id`
	if query.Limit > 0 || query.Offset > 0 {
		limit := query.Limit
		if limit <= 0 {
			limit = -1
		}
		q += ` LIMIT ? OFFSET ?`
		args = append(args, limit, query.Offset)
	}
	var rows []conversationRow
	if err := sqlscan.Select(ctx, s.db, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return rowsToConversations(rows)
}

func (s *SQLiteStore) Clear(ctx context.Context, senderID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE conversations SET history = '[]', version = version + 1, updated_at = ? WHERE sender_id = ?`, sqliteTime(s.now()), senderID)
	if err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE updated_at < ?`, sqliteTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete inactive conversations: %w", err)
	}
	return res.RowsAffected()
}

// sqliteTime formats t with a fixed width so stored timestamps compare
// lexically in SQL.
func sqliteTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05.000000000")
}
