// Package services holds the business logic between the HTTP handlers and
// the storage, admission and inference layers
package services

import (
	"context"
	"io"
	"os"

	"github.com/nocodemedia/media-server/internal/models"
	"github.com/nocodemedia/media-server/internal/storage"
)

// MediaService handles business logic for direct media storage operations
type MediaService struct {
	store *storage.Store
}

// NewMediaService creates a new media service
func NewMediaService(store *storage.Store) *MediaService {
	return &MediaService{store: store}
}

// Upload stores an uploaded file and returns its media id
func (s *MediaService) Upload(ctx context.Context, mediaType models.MediaType, r io.Reader, ext, customName string) (string, error) {
	if !mediaType.Uploadable() {
		return "", storage.InvalidMediaTypeError(mediaType)
	}
	return s.store.Upload(ctx, mediaType, r, ext, customName)
}

// UploadFromURL downloads a remote file into storage and returns its media id
func (s *MediaService) UploadFromURL(ctx context.Context, mediaType models.MediaType, rawURL, customName string) (string, error) {
	if !mediaType.Uploadable() {
		return "", storage.InvalidMediaTypeError(mediaType)
	}
	return s.store.UploadFromURL(ctx, mediaType, rawURL, customName)
}

// List returns stored media of one type, or of every default type when
// mediaType is empty
func (s *MediaService) List(ctx context.Context, mediaType models.MediaType) ([]models.MediaInfo, error) {
	if mediaType != "" && !mediaType.Valid() {
		return nil, storage.InvalidMediaTypeError(mediaType)
	}
	if mediaType != "" {
		return s.store.List(ctx, mediaType)
	}
	var all []models.MediaInfo
	for _, mt := range []models.MediaType{models.MediaTypeImage, models.MediaTypeVideo, models.MediaTypeAudio} {
		infos, err := s.store.List(ctx, mt)
		if err != nil {
			return nil, err
		}
		all = append(all, infos...)
	}
	return all, nil
}

// Stats summarizes storage usage
func (s *MediaService) Stats(ctx context.Context) (*models.StorageStats, error) {
	return s.store.Stats(ctx)
}

// Info returns size and type details for a media id
func (s *MediaService) Info(ctx context.Context, mediaID string) (*models.MediaInfo, error) {
	return s.store.MediaInfo(ctx, mediaID)
}

// Status reports the background job status for a media id
func (s *MediaService) Status(ctx context.Context, mediaID string) models.JobStatus {
	return s.store.Status(ctx, mediaID)
}

// Exists reports whether a media id resolves to a stored file
func (s *MediaService) Exists(ctx context.Context, mediaID string) bool {
	return s.store.Exists(ctx, mediaID)
}

// OpenFile opens the stored file for serving. The caller closes it.
func (s *MediaService) OpenFile(ctx context.Context, mediaID string) (*os.File, error) {
	return s.store.Open(ctx, mediaID)
}

// Delete removes a media file and its metadata
func (s *MediaService) Delete(ctx context.Context, mediaID string) error {
	return s.store.Delete(ctx, mediaID)
}
