package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/memohai/mbot/internal/config"
	"github.com/memohai/mbot/internal/conversation"
	"github.com/memohai/mbot/internal/db"
	"github.com/memohai/mbot/internal/settings"
)

// stores bundles the persistence of the configured backend.
type stores struct {
	Conversations conversation.Store
	Settings      settings.Store
	Backend       string
	Ping          func(ctx context.Context) error
	Close         func()
}

func openStores(ctx context.Context, log *slog.Logger, cfg config.Config) (stores, error) {
	backend := strings.TrimSpace(cfg.Storage.Backend)
	switch backend {
	case "memory":
		log.Warn("using in-memory storage; conversations are lost on restart")
		return stores{
			Conversations: conversation.NewMemoryStore(),
			Settings:      settings.NewMemoryStore(),
			Backend:       backend,
			Close:         func() {},
		}, nil
	case "sqlite":
		conn, err := db.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return stores{}, fmt.Errorf("open sqlite: %w", err)
		}
		log.Info("storage ready", slog.String("backend", backend), slog.String("path", cfg.SQLite.Path))
		return stores{
			Conversations: conversation.NewSQLiteStore(conn),
			Settings:      settings.NewSQLiteStore(conn),
			Backend:       backend,
			Ping:          conn.PingContext,
			Close:         func() { _ = conn.Close() },
		}, nil
	default:
		dsn := cfg.Postgres.DSN()
		if err := db.Migrate(dsn); err != nil {
			return stores{}, fmt.Errorf("migrate postgres: %w", err)
		}
		pool, err := db.Open(ctx, dsn)
		if err != nil {
			return stores{}, fmt.Errorf("open postgres: %w", err)
		}
		log.Info("storage ready", slog.String("backend", "postgres"))
		return stores{
			Conversations: conversation.NewPostgresStore(pool),
			Settings:      settings.NewPostgresStore(pool),
			Backend:       "postgres",
			Ping:          pool.Ping,
			Close:         pool.Close,
		}, nil
	}
}
