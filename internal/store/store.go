// Package store provides SQLite-backed persistence for editor sessions:
// the open tabs, their cursor and scroll positions, and the recent-files
// list, restored on the next launch.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // register sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS session_files (
	position  INTEGER NOT NULL,
	path      TEXT PRIMARY KEY,
	cursor    INTEGER NOT NULL,
	top_line  INTEGER NOT NULL,
	active    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS recent_files (
	path    TEXT PRIMARY KEY,
	opened  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recent_opened ON recent_files(opened);
`

// recentLimit caps the recent-files table.
const recentLimit = 100

// SessionFile is one persisted tab.
type SessionFile struct {
	Path    string
	Cursor  int
	TopLine int
	Active  bool
}

// Store is the SQLite-backed session store. All methods tolerate a nil
// receiver so the editor keeps working when the database failed to open.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the session database at the given path.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	// SQLite pragmas for performance.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSession replaces the persisted tab set with files, in tab order.
// No-op on nil receiver.
func (s *Store) SaveSession(files []SessionFile) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin session save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec("DELETE FROM session_files"); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	for i, f := range files {
		active := 0
		if f.Active {
			active = 1
		}
		_, err := tx.Exec(
			"INSERT INTO session_files (position, path, cursor, top_line, active) VALUES (?, ?, ?, ?, ?)",
			i, f.Path, f.Cursor, f.TopLine, active,
		)
		if err != nil {
			return fmt.Errorf("save session file %s: %w", f.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session save: %w", err)
	}
	return nil
}

// LoadSession returns the persisted tabs in tab order. Safe to call on a
// nil receiver (returns nothing).
func (s *Store) LoadSession() ([]SessionFile, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT path, cursor, top_line, active FROM session_files ORDER BY position",
	)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	defer rows.Close()

	var files []SessionFile
	for rows.Next() {
		var f SessionFile
		var active int
		if err := rows.Scan(&f.Path, &f.Cursor, &f.TopLine, &active); err != nil {
			log.Warn().Err(err).Msg("failed to scan session row")
			continue
		}
		f.Active = active != 0
		files = append(files, f)
	}
	return files, rows.Err()
}

// TouchRecent records that a file was opened just now and prunes the list
// to its cap. No-op on nil receiver.
func (s *Store) TouchRecent(path string) {
	if s == nil || path == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO recent_files (path, opened) VALUES (?, ?)",
		path, time.Now().Unix(),
	)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to record recent file")
		return
	}

	s.db.Exec( //nolint:errcheck // best-effort prune
		`DELETE FROM recent_files WHERE path NOT IN
		 (SELECT path FROM recent_files ORDER BY opened DESC LIMIT ?)`,
		recentLimit,
	)
}

// RecentFiles returns up to limit recently opened paths, newest first.
// Safe to call on a nil receiver (returns nothing).
func (s *Store) RecentFiles(limit int) []string {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > recentLimit {
		limit = recentLimit
	}
	rows, err := s.db.Query(
		"SELECT path FROM recent_files ORDER BY opened DESC LIMIT ?", limit,
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to query recent files")
		return nil
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			continue
		}
		paths = append(paths, p)
	}
	return paths
}
