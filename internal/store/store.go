package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades the schema from version-1 to version. Either stmt or
// apply does the work.
type migration struct {
	version int
	name    string
	stmt    string
	apply   func(ctx context.Context, tx *sql.Tx) error
}

// migrations are applied in order to databases whose user_version is lower.
var migrations = []migration{
	{version: 1, name: "fixture history index", stmt: `
		CREATE INDEX IF NOT EXISTS idx_case_results_fixture
		ON case_results(fixture)
	`},
	{version: 2, name: "run recency index", stmt: `
		CREATE INDEX IF NOT EXISTS idx_runs_started_at
		ON runs(started_at)
	`},
	{version: 3, name: "fixed-width started_at", apply: rewriteStartedAt},
}

// currentSchemaVersion is the user_version of a fully migrated database.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store records run history.
type Store struct {
	db *sql.DB
}

// dsn carries the connection settings as go-sqlite3 parameters so they
// apply to every connection the pool opens.
func dsn(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_busy_timeout", "5000")
	params.Set("_foreign_keys", "on")
	return "file:" + path + "?" + params.Encode()
}

// Open creates or opens the history database at path and brings its schema
// up to date. Opening an existing database is safe.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// migrate creates the base tables and applies pending migrations, each in
// its own transaction together with the user_version bump.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // No-op if committed

	if m.stmt != "" {
		if _, err := tx.ExecContext(ctx, m.stmt); err != nil {
			return err
		}
	}
	if m.apply != nil {
		if err := m.apply(ctx, tx); err != nil {
			return err
		}
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return err
	}
	return tx.Commit()
}

// rewriteStartedAt converts started_at values written with trimmed
// fractional seconds to timestampLayout so text order matches time order.
func rewriteStartedAt(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "SELECT id, started_at FROM runs")
	if err != nil {
		return err
	}

	updates := map[string]string{}
	for rows.Next() {
		var id, startedAt string
		if err := rows.Scan(&id, &startedAt); err != nil {
			rows.Close()
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			rows.Close()
			return fmt.Errorf("run %s: parse started_at: %w", id, err)
		}
		if fixed := formatTimestamp(parsed); fixed != startedAt {
			updates[id] = fixed
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for id, startedAt := range updates {
		if _, err := tx.ExecContext(ctx, "UPDATE runs SET started_at = ? WHERE id = ?", startedAt, id); err != nil {
			return err
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
