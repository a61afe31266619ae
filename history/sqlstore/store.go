// Package sqlstore persists exported history trees in a SQLite database so
// sessions can resume with their full undo graph intact.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/goliatone/go-lazyconf/history"
)

// ErrEmptyStore indicates Load found no persisted history.
var ErrEmptyStore = errors.New("sqlstore: no history stored")

const schemaDDL = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	parent_id  TEXT NOT NULL DEFAULT '',
	label      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	scopes     BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS timelines (
	name    TEXT PRIMARY KEY,
	head_id TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store reads and writes history trees through one SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists. Close the store when done.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", path, err)
	}
	// modernc's driver serializes writes itself; a second writer conn only
	// produces SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing database handle, ensuring the schema exists.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return nil, fmt.Errorf("sqlstore: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the persisted history with tree. The write is transactional:
// a failed save leaves the previous history intact.
func (s *Store) Save(ctx context.Context, tree history.Tree) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"snapshots", "timelines", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("sqlstore: clear %s: %w", table, err)
		}
	}

	// Insertion order is recording order; Load replays by rowid so Import
	// always sees parents before children.
	for _, snap := range tree.Snapshots {
		scopes, err := json.Marshal(snap.Scopes)
		if err != nil {
			return fmt.Errorf("sqlstore: encode snapshot %s: %w", snap.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO snapshots (id, parent_id, label, created_at, scopes) VALUES (?, ?, ?, ?, ?)",
			snap.ID, snap.ParentID, snap.Label, snap.CreatedAt.UTC().Format(time.RFC3339Nano), scopes,
		)
		if err != nil {
			return fmt.Errorf("sqlstore: insert snapshot %s: %w", snap.ID, err)
		}
	}
	for name, head := range tree.Timelines {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO timelines (name, head_id) VALUES (?, ?)", name, head,
		); err != nil {
			return fmt.Errorf("sqlstore: insert timeline %s: %w", name, err)
		}
	}
	for key, value := range map[string]string{
		"current_timeline": tree.Current,
		"head":             tree.Head,
	} {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO meta (key, value) VALUES (?, ?)", key, value,
		); err != nil {
			return fmt.Errorf("sqlstore: insert meta %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit: %w", err)
	}
	return nil
}

// Load reads the persisted history tree. Returns ErrEmptyStore when nothing
// has been saved yet.
func (s *Store) Load(ctx context.Context) (history.Tree, error) {
	tree := history.Tree{Timelines: map[string]string{}}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, parent_id, label, created_at, scopes FROM snapshots ORDER BY rowid")
	if err != nil {
		return history.Tree{}, fmt.Errorf("sqlstore: query snapshots: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			record  history.SnapshotRecord
			created string
			scopes  []byte
		)
		if err := rows.Scan(&record.ID, &record.ParentID, &record.Label, &created, &scopes); err != nil {
			return history.Tree{}, fmt.Errorf("sqlstore: scan snapshot: %w", err)
		}
		if record.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return history.Tree{}, fmt.Errorf("sqlstore: snapshot %s timestamp: %w", record.ID, err)
		}
		if err := json.Unmarshal(scopes, &record.Scopes); err != nil {
			return history.Tree{}, fmt.Errorf("sqlstore: decode snapshot %s: %w", record.ID, err)
		}
		tree.Snapshots = append(tree.Snapshots, record)
	}
	if err := rows.Err(); err != nil {
		return history.Tree{}, fmt.Errorf("sqlstore: iterate snapshots: %w", err)
	}

	tlRows, err := s.db.QueryContext(ctx, "SELECT name, head_id FROM timelines")
	if err != nil {
		return history.Tree{}, fmt.Errorf("sqlstore: query timelines: %w", err)
	}
	defer tlRows.Close()
	for tlRows.Next() {
		var name, head string
		if err := tlRows.Scan(&name, &head); err != nil {
			return history.Tree{}, fmt.Errorf("sqlstore: scan timeline: %w", err)
		}
		tree.Timelines[name] = head
	}
	if err := tlRows.Err(); err != nil {
		return history.Tree{}, fmt.Errorf("sqlstore: iterate timelines: %w", err)
	}

	if len(tree.Snapshots) == 0 && len(tree.Timelines) == 0 {
		return history.Tree{}, ErrEmptyStore
	}

	for key, dst := range map[string]*string{
		"current_timeline": &tree.Current,
		"head":             &tree.Head,
	} {
		err := s.db.QueryRowContext(ctx,
			"SELECT value FROM meta WHERE key = ?", key).Scan(dst)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return history.Tree{}, fmt.Errorf("sqlstore: read meta %s: %w", key, err)
		}
	}
	return tree, nil
}
