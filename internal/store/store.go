// Package store persists metadata for durable media artifacts in SQLite.
// Media files and their metadata are the only state that survives a process
// restart; room, session and message state is process-lifetime only.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrMediaNotFound is returned when no media metadata exists for an ID.
var ErrMediaNotFound = errors.New("media metadata not found")

// MediaMetadata describes one transcoded upload on disk.
type MediaMetadata struct {
	ID           string
	Kind         string
	OriginalName string
	ContentType  string
	DiskName     string
	SizeBytes    int64
	CreatedAt    time.Time
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database and runs migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	st := &Store{db: db}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("sqlite store opened", "path", path)
	return st, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS media (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	original_name TEXT NOT NULL,
	content_type TEXT NOT NULL,
	disk_name TEXT NOT NULL UNIQUE,
	size_bytes INTEGER NOT NULL CHECK(size_bytes >= 0),
	created_at_unix_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_media_created_at ON media(created_at_unix_ms);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("run sqlite migrations: %w", err)
	}
	slog.Debug("sqlite migrations applied")
	return nil
}

// CreateMedia inserts one media metadata row.
func (s *Store) CreateMedia(ctx context.Context, meta MediaMetadata) error {
	if strings.TrimSpace(meta.ID) == "" {
		return fmt.Errorf("media id is required")
	}
	if strings.TrimSpace(meta.Kind) == "" {
		return fmt.Errorf("media kind is required")
	}
	if strings.TrimSpace(meta.DiskName) == "" {
		return fmt.Errorf("media disk name is required")
	}
	if meta.SizeBytes < 0 {
		return fmt.Errorf("media size must be non-negative")
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	const q = `
INSERT INTO media (
	id, kind, original_name, content_type, disk_name, size_bytes, created_at_unix_ms
) VALUES (?, ?, ?, ?, ?, ?, ?)
`
	_, err := s.db.ExecContext(
		ctx,
		q,
		meta.ID,
		meta.Kind,
		meta.OriginalName,
		meta.ContentType,
		meta.DiskName,
		meta.SizeBytes,
		meta.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert media metadata: %w", err)
	}
	slog.Debug("media metadata created", "media_id", meta.ID, "size", meta.SizeBytes)
	return nil
}

// MediaByID returns media metadata by ID.
func (s *Store) MediaByID(ctx context.Context, id string) (MediaMetadata, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return MediaMetadata{}, fmt.Errorf("media id is required")
	}

	const q = `
SELECT id, kind, original_name, content_type, disk_name, size_bytes, created_at_unix_ms
FROM media
WHERE id = ?
`
	var (
		meta          MediaMetadata
		createdUnixMs int64
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&meta.ID,
		&meta.Kind,
		&meta.OriginalName,
		&meta.ContentType,
		&meta.DiskName,
		&meta.SizeBytes,
		&createdUnixMs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("media not found", "media_id", id)
			return MediaMetadata{}, ErrMediaNotFound
		}
		return MediaMetadata{}, fmt.Errorf("query media metadata: %w", err)
	}

	meta.CreatedAt = time.UnixMilli(createdUnixMs).UTC()
	return meta, nil
}

// DeleteMedia removes one metadata row. Used to unwind an ingest whose
// caption failed moderation after the durable row was written.
func (s *Store) DeleteMedia(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("media id is required")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete media metadata: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMediaNotFound
	}
	slog.Debug("media metadata deleted", "media_id", id)
	return nil
}
