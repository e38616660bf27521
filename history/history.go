// Package history keeps a local journal of control actions (connect,
// disconnect, country changes, logins) in an SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yllada/vpn-provider-cli/common"
)

// Action names recorded in the journal.
const (
	ActionConnect    = "connect"
	ActionDisconnect = "disconnect"
	ActionCountry    = "country"
	ActionLogin      = "login"
)

// Entry is one journaled action.
type Entry struct {
	ID         string
	ProviderID int
	Provider   string
	Action     string
	Country    string
	Success    bool
	Detail     string
	CreatedAt  time.Time
}

// Recorder is the part of the journal the action layer writes to.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Store is the SQLite-backed journal.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path and migrates it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, common.WrapError(err, "failed to create history directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history: %w", err)
	}

	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return s, nil
}

// Migrate creates the journal schema.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			provider_id INTEGER NOT NULL,
			provider TEXT NOT NULL,
			action TEXT NOT NULL,
			country TEXT NOT NULL DEFAULT '',
			success INTEGER NOT NULL DEFAULT 0,
			detail TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_actions_created_at ON actions(created_at);
	`)
	return err
}

// Record appends e to the journal. Missing ids and timestamps are filled in.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO actions (id, provider_id, provider, action, country, success, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.ProviderID, e.Provider, e.Action, e.Country, e.Success, e.Detail, e.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("record %s: %w", e.Action, err)
	}
	return nil
}

// List returns the most recent entries first. A limit of zero or less
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, provider_id, provider, action, country, success, detail, created_at
		FROM actions ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.ProviderID, &e.Provider, &e.Action, &e.Country, &e.Success, &e.Detail, &created); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.CreatedAt = time.Unix(0, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than the cutoff and reports how many were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM actions WHERE created_at < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
