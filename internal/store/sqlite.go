package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pspoerri/asc2tiles/internal/tile"
)

const schema = `
CREATE TABLE IF NOT EXISTS tiles (
	id         TEXT PRIMARY KEY,
	doc        TEXT NOT NULL,
	run_id     TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);
`

// SQLite stores tiles as JSON documents in a single table.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if necessary) the tile database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// Workers upsert concurrently; a single connection serializes writers
	// instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		schema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing %s: %w", path, err)
		}
	}
	return &SQLite{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

// Upsert implements tile.Persister. The run id in ctx, if any, is recorded
// with the tile.
func (s *SQLite) Upsert(ctx context.Context, t *tile.Tile) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding tile %s: %w", t.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tiles (id, doc, run_id, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc = excluded.doc,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at`,
		strings.ToUpper(t.ID), string(doc), tile.RunIDFromContext(ctx),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting tile %s: %w", t.ID, err)
	}
	return nil
}

// Get reads a tile back.
func (s *SQLite) Get(ctx context.Context, id string) (*tile.Tile, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM tiles WHERE id = ?", strings.ToUpper(id)).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading tile %s: %w", id, err)
	}
	var t tile.Tile
	if err := json.Unmarshal([]byte(doc), &t); err != nil {
		return nil, fmt.Errorf("decoding tile %s: %w", id, err)
	}
	return &t, nil
}

// RunID returns the run that last wrote tile id.
func (s *SQLite) RunID(ctx context.Context, id string) (string, error) {
	var runID string
	err := s.db.QueryRowContext(ctx, "SELECT run_id FROM tiles WHERE id = ?", strings.ToUpper(id)).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return runID, err
}

// Count returns the number of stored tiles.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tiles").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting tiles: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }
