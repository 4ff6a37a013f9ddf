// Package metadata persists the side-channel record for every stored asset
// in an embedded SQLite database kept under the storage root. The record maps
// an opaque media id to its physical location and user-facing display name,
// so id resolution is an index lookup instead of a directory scan.
package metadata

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nocodemedia/media-server/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when the schema changes; a mismatch asks the
// operator to delete the index so it can be rebuilt from the filesystem.
const schemaVersion = 1

// ErrNotFound is returned when no record exists for a media id
var ErrNotFound = errors.New("metadata not found")

// ErrSchemaMismatch indicates the database was written by an incompatible version
var ErrSchemaMismatch = errors.New("metadata schema version mismatch")

// DatabaseFile is the index filename created under the storage root
const DatabaseFile = "metadata.db"

// Store is the SQLite-backed metadata index
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the metadata database under dir
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, DatabaseFile)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild the index)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}

	return nil
}

// Put inserts or replaces the record for a media id
func (s *Store) Put(ctx context.Context, m *models.Metadata) error {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO media_metadata
			(media_id, media_type, filename, folder_path, custom_name, original_filename, file_extension, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MediaID,
		string(m.MediaType),
		m.Filename,
		m.FolderPath,
		m.CustomName,
		m.OriginalFilename,
		m.FileExtension,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put metadata: %w", err)
	}
	return nil
}

// Get retrieves the record for a media id
func (s *Store) Get(ctx context.Context, mediaID string) (*models.Metadata, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT media_id, media_type, filename, folder_path, custom_name, original_filename, file_extension, created_at
		FROM media_metadata
		WHERE media_id = ?
		LIMIT 1`, mediaID)

	return scanMetadata(row)
}

// Delete removes the record for a media id. Deleting an absent record is not
// an error; the asset file is the source of truth for existence.
func (s *Store) Delete(ctx context.Context, mediaID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM media_metadata WHERE media_id = ?", mediaID); err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}
	return nil
}

// DeleteByFolderPrefix removes every record stored under the given folder
// path, including subfolders. Used when a folder tree is deleted.
func (s *Store) DeleteByFolderPrefix(ctx context.Context, folderPath string) error {
	folderPath = strings.TrimSuffix(folderPath, "/")
	if folderPath == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM media_metadata WHERE folder_path = ? OR folder_path LIKE ?",
		folderPath, folderPath+"/%")
	if err != nil {
		return fmt.Errorf("delete metadata by folder: %w", err)
	}
	return nil
}

// ListByFolder returns all records stored directly inside a folder path
func (s *Store) ListByFolder(ctx context.Context, folderPath string) ([]*models.Metadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT media_id, media_type, filename, folder_path, custom_name, original_filename, file_extension, created_at
		FROM media_metadata
		WHERE folder_path = ?
		ORDER BY filename`, folderPath)
	if err != nil {
		return nil, fmt.Errorf("list metadata by folder: %w", err)
	}
	defer rows.Close()

	var records []*models.Metadata
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metadata rows: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMetadata(row rowScanner) (*models.Metadata, error) {
	var (
		m         models.Metadata
		mediaType string
		createdAt string
	)
	err := row.Scan(
		&m.MediaID,
		&mediaType,
		&m.Filename,
		&m.FolderPath,
		&m.CustomName,
		&m.OriginalFilename,
		&m.FileExtension,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan metadata: %w", err)
	}

	m.MediaType = models.MediaType(mediaType)
	if ts, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		m.CreatedAt = ts
	}
	return &m, nil
}
