// Package store is the SQLite cache for lint results. Diagnostics are keyed
// by (file path, pass, content hash); a hash change invalidates the file's
// cached rows, and an engine-version change clears the whole cache.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Pass names for cached diagnostics.
const (
	PassSyntax   = "syntax"
	PassSemantic = "semantic"
)

// Store is the SQLite data access layer.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection to :memory: is its own empty database.
		// Pin the pool to one cached connection so the schema and data
		// survive across calls and goroutines.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  hash            TEXT NOT NULL,
  last_linted     TIMESTAMP
);

CREATE TABLE IF NOT EXISTS lint_passes (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  pass            TEXT NOT NULL,
  linted_at       TIMESTAMP,
  UNIQUE(file_id, pass)
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  pass            TEXT NOT NULL,
  ordinal         INTEGER NOT NULL,
  message         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lint_passes_file ON lint_passes(file_id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_file_pass ON diagnostics(file_id, pass);
`

// File is one linted file's cache record.
type File struct {
	ID         int64
	Path       string
	Hash       string
	LastLinted time.Time
}

// FileByPath returns the cache record for a path, or nil if absent.
func (s *Store) FileByPath(path string) (*File, error) {
	row := s.db.QueryRow("SELECT id, path, hash, last_linted FROM files WHERE path = ?", path)
	var f File
	if err := row.Scan(&f.ID, &f.Path, &f.Hash, &f.LastLinted); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return &f, nil
}

// CachedDiagnostics returns the cached messages for (path, pass) if the
// stored content hash matches. The second return value distinguishes a
// cached empty result from a miss.
func (s *Store) CachedDiagnostics(path, pass, hash string) ([]string, bool, error) {
	f, err := s.FileByPath(path)
	if err != nil {
		return nil, false, err
	}
	if f == nil || f.Hash != hash {
		return nil, false, nil
	}

	var exists int
	err = s.db.QueryRow(
		"SELECT COUNT(*) FROM lint_passes WHERE file_id = ? AND pass = ?",
		f.ID, pass,
	).Scan(&exists)
	if err != nil {
		return nil, false, fmt.Errorf("lookup pass: %w", err)
	}
	if exists == 0 {
		return nil, false, nil
	}

	rows, err := s.db.Query(
		"SELECT message FROM diagnostics WHERE file_id = ? AND pass = ? ORDER BY ordinal",
		f.ID, pass,
	)
	if err != nil {
		return nil, false, fmt.Errorf("load diagnostics: %w", err)
	}
	defer rows.Close()

	var msgs []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, false, fmt.Errorf("scan diagnostic: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, true, rows.Err()
}

// SaveDiagnostics stores the messages for (path, pass) under the given
// content hash. A hash change drops all cached passes for the file first.
func (s *Store) SaveDiagnostics(path, pass, hash string, msgs []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	var fileID int64

	row := tx.QueryRow("SELECT id, hash FROM files WHERE path = ?", path)
	var existingHash string
	err = row.Scan(&fileID, &existingHash)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(
			"INSERT INTO files (path, hash, last_linted) VALUES (?, ?, ?)",
			path, hash, now,
		)
		if err != nil {
			return fmt.Errorf("insert file: %w", err)
		}
		fileID, _ = res.LastInsertId()
	case err != nil:
		return fmt.Errorf("lookup file: %w", err)
	case existingHash != hash:
		// Stale content: drop every cached pass for this file.
		for _, q := range []string{
			"DELETE FROM diagnostics WHERE file_id = ?",
			"DELETE FROM lint_passes WHERE file_id = ?",
		} {
			if _, err := tx.Exec(q, fileID); err != nil {
				return fmt.Errorf("invalidate stale cache: %w", err)
			}
		}
		if _, err := tx.Exec(
			"UPDATE files SET hash = ?, last_linted = ? WHERE id = ?",
			hash, now, fileID,
		); err != nil {
			return fmt.Errorf("update file hash: %w", err)
		}
	}

	// Replace this pass's rows.
	if _, err := tx.Exec("DELETE FROM diagnostics WHERE file_id = ? AND pass = ?", fileID, pass); err != nil {
		return fmt.Errorf("delete old diagnostics: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM lint_passes WHERE file_id = ? AND pass = ?", fileID, pass); err != nil {
		return fmt.Errorf("delete old pass: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO lint_passes (file_id, pass, linted_at) VALUES (?, ?, ?)",
		fileID, pass, now,
	); err != nil {
		return fmt.Errorf("insert pass: %w", err)
	}
	for i, msg := range msgs {
		if _, err := tx.Exec(
			"INSERT INTO diagnostics (file_id, pass, ordinal, message) VALUES (?, ?, ?, ?)",
			fileID, pass, i, msg,
		); err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteFileData removes all cached data for a file.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM diagnostics WHERE file_id = ?",
		"DELETE FROM lint_passes WHERE file_id = ?",
		"DELETE FROM files WHERE id = ?",
	} {
		if _, err := tx.Exec(q, fileID); err != nil {
			return fmt.Errorf("delete file data: %w", err)
		}
	}
	return tx.Commit()
}

// ClearCache removes all cached lint results but keeps metadata.
func (s *Store) ClearCache() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM diagnostics",
		"DELETE FROM lint_passes",
		"DELETE FROM files",
	} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
	}
	return tx.Commit()
}

// GetMetadata returns the value for a metadata key, or "" if absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata: %w", err)
	}
	return value, nil
}

// SetMetadata upserts a metadata key.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}
