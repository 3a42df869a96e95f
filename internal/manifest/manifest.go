// Package manifest remembers what was rendered so incremental builds can
// skip records whose inputs have not changed.
package manifest

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is the last successful render of one output file.
type Entry struct {
	Output     string
	Source     string
	Digest     string
	RenderedAt time.Time
}

// Store persists entries keyed by output path.
type Store interface {
	Lookup(ctx context.Context, output string) (Entry, bool, error)
	Put(ctx context.Context, e Entry) error
	Close() error
}

// Digest fingerprints the template, the record and the settings that change
// rendered bytes.
func Digest(template, record []byte, settings ...string) string {
	parts := [][]byte{template, record}
	for _, s := range settings {
		parts = append(parts, []byte(s))
	}
	h := sha256.New()
	for _, part := range parts {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(part)))
		h.Write(n[:])
		h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the manifest database at path. Use ":memory:" for
// an in-memory manifest.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create manifest directory: %w", err)
		}
	}
	db, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS renders (
		output TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		digest TEXT NOT NULL,
		rendered_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Lookup returns the entry for output, if any.
func (s *SQLiteStore) Lookup(ctx context.Context, output string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var e Entry
	var renderedAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT output, source, digest, rendered_at FROM renders WHERE output = ?", output,
	).Scan(&e.Output, &e.Source, &e.Digest, &renderedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("query manifest: %w", err)
	}
	e.RenderedAt = time.Unix(renderedAt, 0)
	return e, true, nil
}

// Put inserts or replaces the entry for e.Output.
func (s *SQLiteStore) Put(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.RenderedAt.IsZero() {
		e.RenderedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO renders (output, source, digest, rendered_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(output) DO UPDATE SET source = excluded.source, digest = excluded.digest, rendered_at = excluded.rendered_at`,
		e.Output, e.Source, e.Digest, e.RenderedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert manifest entry: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
