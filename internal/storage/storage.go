// Package storage implements the addressable media store: UUID-keyed assets
// under a local storage root, a user-visible folder tree, temp-marker job
// status files and the path validation that keeps user input away from the
// filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nocodemedia/media-server/internal/metadata"
	"github.com/nocodemedia/media-server/internal/models"
)

// Store is the filesystem-backed media store. All identifier-consuming
// operations route through the metadata index or the legacy id validator
// before touching disk.
type Store struct {
	root    string
	meta    *metadata.Store
	logger  *zap.Logger
	folders *folderIndex
	client  *http.Client
}

// New creates the storage root, the per-type buckets, the folder tree with
// its default folders, and rebuilds the folder and metadata indexes.
func New(root string, meta *metadata.Store, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	for _, mt := range []models.MediaType{models.MediaTypeImage, models.MediaTypeVideo, models.MediaTypeAudio, models.MediaTypeTmp} {
		if err := os.MkdirAll(filepath.Join(root, string(mt)), 0755); err != nil {
			return nil, fmt.Errorf("create %s bucket: %w", mt, err)
		}
	}

	s := &Store{
		root:    root,
		meta:    meta,
		logger:  logger,
		folders: newFolderIndex(),
		client:  &http.Client{Timeout: 2 * time.Minute},
	}

	if err := s.createDefaultFolders(); err != nil {
		return nil, err
	}
	if err := s.folders.rebuild(s.foldersRoot()); err != nil {
		return nil, fmt.Errorf("rebuild folder index: %w", err)
	}
	if err := s.Reindex(context.Background()); err != nil {
		return nil, fmt.Errorf("reindex storage: %w", err)
	}

	return s, nil
}

// Root returns the absolute storage root path
func (s *Store) Root() string {
	return s.root
}

func normalizeExtension(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

// Upload stores a new asset in the default bucket for its media type.
// A sanitized custom name becomes the literal filename so default buckets
// stay human-browsable; otherwise a fresh UUID is used.
func (s *Store) Upload(ctx context.Context, mediaType models.MediaType, r io.Reader, ext, customName string) (string, error) {
	mediaID, filePath, err := s.AllocateID(ctx, mediaType, ext, customName)
	if err != nil {
		return "", err
	}
	if err := writeFile(filePath, r); err != nil {
		return "", err
	}
	return mediaID, nil
}

// AllocateID reserves a media id and its final path without writing the
// asset. Background jobs use this to pre-allocate their output before
// deferring the actual work.
func (s *Store) AllocateID(ctx context.Context, mediaType models.MediaType, ext, customName string) (string, string, error) {
	if !mediaType.Valid() {
		return "", "", validationErrorf("invalid media type: %s", mediaType)
	}
	if err := ValidateExtension(ext); err != nil {
		return "", "", err
	}
	if customName != "" && containsTraversal(customName) {
		return "", "", validationErrorf("custom name contains invalid characters")
	}
	ext = normalizeExtension(ext)

	base := SanitizeCustomName(customName)
	if base == "" {
		base = uuid.New().String()
	}
	filename := base + ext

	filePath, err := s.safeJoin(string(mediaType), filename)
	if err != nil {
		return "", "", err
	}

	mediaID := fmt.Sprintf("%s_%s", mediaType, filename)
	record := &models.Metadata{
		MediaID:       mediaID,
		MediaType:     mediaType,
		Filename:      filename,
		CustomName:    SanitizeCustomName(customName),
		FileExtension: ext,
	}
	if err := s.meta.Put(ctx, record); err != nil {
		return "", "", err
	}

	return mediaID, filePath, nil
}

// UploadToFolder stores a new asset inside a user folder. Folder uploads are
// always keyed by a bare UUID; the custom name is persisted only as metadata.
func (s *Store) UploadToFolder(ctx context.Context, mediaType models.MediaType, r io.Reader, ext, folderPath, originalFilename, customName string) (string, error) {
	mediaID, filePath, err := s.AllocateInFolder(ctx, mediaType, ext, folderPath, originalFilename, customName)
	if err != nil {
		return "", err
	}
	if err := writeFile(filePath, r); err != nil {
		return "", err
	}
	return mediaID, nil
}

// AllocateInFolder reserves a UUID media id and path inside a folder without
// writing the asset. The folder chain is created when missing.
func (s *Store) AllocateInFolder(ctx context.Context, mediaType models.MediaType, ext, folderPath, originalFilename, customName string) (string, string, error) {
	if !mediaType.Valid() {
		return "", "", validationErrorf("invalid media type: %s", mediaType)
	}
	if err := ValidateExtension(ext); err != nil {
		return "", "", err
	}
	if customName != "" && containsTraversal(customName) {
		return "", "", validationErrorf("custom name contains invalid characters")
	}
	ext = normalizeExtension(ext)

	resolved, err := s.ensureFolder(folderPath)
	if err != nil {
		return "", "", err
	}

	mediaID := uuid.New().String()
	filename := mediaID + ext
	filePath, err := s.safeJoin(foldersDir, filepath.FromSlash(resolved), filename)
	if err != nil {
		return "", "", err
	}

	record := &models.Metadata{
		MediaID:          mediaID,
		MediaType:        mediaType,
		Filename:         filename,
		FolderPath:       resolved,
		CustomName:       SanitizeCustomName(customName),
		OriginalFilename: originalFilename,
		FileExtension:    ext,
	}
	if err := s.meta.Put(ctx, record); err != nil {
		return "", "", err
	}

	return mediaID, filePath, nil
}

// IsValidURL reports whether the string is a fetchable absolute URL
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// UploadFromURL downloads the asset at url into the default bucket for its
// media type, deriving the extension from the URL path.
func (s *Store) UploadFromURL(ctx context.Context, mediaType models.MediaType, rawURL, customName string) (string, error) {
	if !IsValidURL(rawURL) {
		return "", validationErrorf("invalid URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", validationErrorf("invalid URL: %s", rawURL)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download media from %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", validationErrorf("failed to download media from %s", rawURL)
	}

	ext := path.Ext(req.URL.Path)
	return s.Upload(ctx, mediaType, resp.Body, ext, customName)
}

// resolvePath maps any media id form to its absolute filesystem path. Marker
// ids resolve against their base asset; bare-UUID ids resolve through the
// metadata index; the legacy {type}_{filename} grammar is the fallback.
func (s *Store) resolvePath(ctx context.Context, mediaID string) (string, error) {
	for _, suffix := range []string{markerSuffixTmp, markerSuffixFailed} {
		if base, ok := strings.CutSuffix(mediaID, suffix); ok && base != "" {
			basePath, err := s.resolvePath(ctx, base)
			if err != nil {
				return "", err
			}
			return basePath + suffix, nil
		}
	}

	record, err := s.meta.Get(ctx, mediaID)
	switch {
	case err == nil:
		if record.FolderPath != "" {
			return s.safeJoin(foldersDir, filepath.FromSlash(record.FolderPath), record.Filename)
		}
		return s.safeJoin(string(record.MediaType), record.Filename)
	case errors.Is(err, metadata.ErrNotFound):
		return s.SafePath(mediaID)
	default:
		return "", err
	}
}

// Path resolves a media id to its absolute path after validation. The file
// may not exist yet; callers that need existence use Exists or Open.
func (s *Store) Path(ctx context.Context, mediaID string) (string, error) {
	return s.resolvePath(ctx, mediaID)
}

// Exists reports whether the asset file for a media id is present. Invalid
// ids are reported as absent rather than as errors.
func (s *Store) Exists(ctx context.Context, mediaID string) bool {
	filePath, err := s.resolvePath(ctx, mediaID)
	if err != nil {
		return false
	}
	info, err := os.Stat(filePath)
	return err == nil && !info.IsDir()
}

// Open opens the asset for reading. Returns ErrNotFound when absent.
func (s *Store) Open(ctx context.Context, mediaID string) (*os.File, error) {
	filePath, err := s.resolvePath(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("media file %s: %w", mediaID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open media file: %w", err)
	}
	return f, nil
}

// Fetch reads the full asset into memory
func (s *Store) Fetch(ctx context.Context, mediaID string) ([]byte, error) {
	f, err := s.Open(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Delete removes the asset file and its metadata record. Returns ErrNotFound
// when the id does not resolve to an existing file.
func (s *Store) Delete(ctx context.Context, mediaID string) error {
	filePath, err := s.resolvePath(ctx, mediaID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("media file %s: %w", mediaID, ErrNotFound)
	}
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("delete media file: %w", err)
	}
	if err := s.meta.Delete(ctx, mediaID); err != nil {
		s.logger.Warn("failed to delete metadata record", zap.String("media_id", mediaID), zap.Error(err))
	}
	return nil
}

// MediaType returns the media type recorded for an id
func (s *Store) MediaType(ctx context.Context, mediaID string) (models.MediaType, error) {
	record, err := s.meta.Get(ctx, mediaID)
	if err == nil {
		return record.MediaType, nil
	}
	if !errors.Is(err, metadata.ErrNotFound) {
		return "", err
	}
	mediaType, _, parseErr := ParseMediaID(mediaID)
	return mediaType, parseErr
}

// MediaInfo returns detailed information about a stored asset
func (s *Store) MediaInfo(ctx context.Context, mediaID string) (*models.MediaInfo, error) {
	filePath, err := s.resolvePath(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("media file %s: %w", mediaID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("stat media file: %w", err)
	}

	mediaType, err := s.MediaType(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	return &models.MediaInfo{
		MediaID:       mediaID,
		MediaType:     mediaType,
		Filename:      filepath.Base(filePath),
		SizeBytes:     info.Size(),
		SizeMB:        toMB(info.Size()),
		CreatedAt:     info.ModTime(),
		ModifiedAt:    info.ModTime(),
		FileExtension: strings.ToLower(filepath.Ext(filePath)),
	}, nil
}

// List enumerates assets in the default buckets, most recent first. An empty
// media type lists the image, video and audio buckets.
func (s *Store) List(ctx context.Context, mediaType models.MediaType) ([]models.MediaInfo, error) {
	var types []models.MediaType
	if mediaType != "" {
		if !mediaType.Valid() {
			return nil, validationErrorf("invalid media type: %s", mediaType)
		}
		types = []models.MediaType{mediaType}
	} else {
		types = []models.MediaType{models.MediaTypeImage, models.MediaTypeVideo, models.MediaTypeAudio}
	}

	var files []models.MediaInfo
	for _, mt := range types {
		bucket := filepath.Join(s.root, string(mt))
		entries, err := os.ReadDir(bucket)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s bucket: %w", mt, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				s.logger.Warn("failed to stat bucket file", zap.String("file", entry.Name()), zap.Error(err))
				continue
			}
			files = append(files, models.MediaInfo{
				MediaID:       fmt.Sprintf("%s_%s", mt, entry.Name()),
				MediaType:     mt,
				Filename:      entry.Name(),
				SizeBytes:     info.Size(),
				SizeMB:        toMB(info.Size()),
				CreatedAt:     info.ModTime(),
				ModifiedAt:    info.ModTime(),
				FileExtension: strings.ToLower(filepath.Ext(entry.Name())),
			})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files, nil
}

// Reindex walks the buckets and the folder tree and records any file missing
// from the metadata index. This is the one-time migration path for storage
// roots written by older versions that kept no index.
func (s *Store) Reindex(ctx context.Context) error {
	for _, mt := range []models.MediaType{models.MediaTypeImage, models.MediaTypeVideo, models.MediaTypeAudio, models.MediaTypeTmp} {
		entries, err := os.ReadDir(filepath.Join(s.root, string(mt)))
		if err != nil {
			return fmt.Errorf("read %s bucket: %w", mt, err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || strings.HasPrefix(name, ".") || isMarkerName(name) {
				continue
			}
			mediaID := fmt.Sprintf("%s_%s", mt, name)
			if err := s.indexIfMissing(ctx, &models.Metadata{
				MediaID:       mediaID,
				MediaType:     mt,
				Filename:      name,
				FileExtension: strings.ToLower(filepath.Ext(name)),
			}); err != nil {
				return err
			}
		}
	}

	root := s.foldersRoot()
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") || isMarkerName(name) {
			return nil
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if uuid.Validate(stem) != nil {
			// only UUID-named files are addressable by id
			return nil
		}
		rel, relErr := filepath.Rel(root, filepath.Dir(p))
		if relErr != nil {
			return relErr
		}
		return s.indexIfMissing(ctx, &models.Metadata{
			MediaID:       stem,
			MediaType:     classifyExtension(filepath.Ext(name)),
			Filename:      name,
			FolderPath:    filepath.ToSlash(rel),
			FileExtension: strings.ToLower(filepath.Ext(name)),
		})
	})
}

func (s *Store) indexIfMissing(ctx context.Context, record *models.Metadata) error {
	_, err := s.meta.Get(ctx, record.MediaID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, metadata.ErrNotFound) {
		return err
	}
	s.logger.Debug("indexing unrecorded media file",
		zap.String("media_id", record.MediaID),
		zap.String("folder", record.FolderPath))
	return s.meta.Put(ctx, record)
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close media file: %w", err)
	}
	return nil
}

func toMB(size int64) float64 {
	return float64(size) / (1024 * 1024)
}
