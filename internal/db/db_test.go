package db

import (
	"path/filepath"
	"testing"
)

func TestPgxMigrateURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"postgres://u:p@h:5432/db?sslmode=disable": "pgx5://u:p@h:5432/db?sslmode=disable",
		"postgresql://h/db":                        "pgx5://h/db",
		"pgx5://h/db":                              "pgx5://h/db",
	}
	for in, want := range cases {
		if got := pgxMigrateURL(in); got != want {
			t.Fatalf("pgxMigrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpenSQLiteAppliesSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "mbot.db")
	conn, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer conn.Close()

	for _, table := range []string{"conversations", "settings", "credentials"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}

	// Reopening an up-to-date database is a no-op.
	if err := migrateSQLite(conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
