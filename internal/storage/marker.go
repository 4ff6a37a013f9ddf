package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nocodemedia/media-server/internal/models"
)

const (
	markerSuffixTmp    = ".tmp"
	markerSuffixFailed = ".failed"
)

func isMarkerName(name string) bool {
	return strings.HasSuffix(name, markerSuffixTmp) || strings.HasSuffix(name, markerSuffixFailed)
}

// TempID returns the marker id for a media id
func TempID(mediaID string) string {
	return mediaID + markerSuffixTmp
}

// CreateMarker creates the zero-byte temp marker for a media id and returns
// the marker id. The marker's existence is the only signal that a background
// job for this id is in flight.
func (s *Store) CreateMarker(ctx context.Context, mediaID string) (string, error) {
	filePath, err := s.resolvePath(ctx, mediaID)
	if err != nil {
		return "", err
	}
	f, err := os.Create(filePath + markerSuffixTmp)
	if err != nil {
		return "", fmt.Errorf("create temp marker: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp marker: %w", err)
	}
	return TempID(mediaID), nil
}

// ReleaseMarker removes the temp marker for a media id. Removing an absent
// marker is not an error so cleanup paths can run unconditionally.
func (s *Store) ReleaseMarker(ctx context.Context, mediaID string) error {
	filePath, err := s.resolvePath(ctx, mediaID)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath + markerSuffixTmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove temp marker: %w", err)
	}
	return nil
}

// FailMarker converts the temp marker into a failed marker so a crashed job
// is distinguishable from an id that was never scheduled
func (s *Store) FailMarker(ctx context.Context, mediaID string) error {
	filePath, err := s.resolvePath(ctx, mediaID)
	if err != nil {
		return err
	}
	if err := os.Rename(filePath+markerSuffixTmp, filePath+markerSuffixFailed); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("fail temp marker: %w", err)
		}
		f, createErr := os.Create(filePath + markerSuffixFailed)
		if createErr != nil {
			return fmt.Errorf("create failed marker: %w", createErr)
		}
		return f.Close()
	}
	return nil
}

// Status derives the job status for a media id from two existence checks:
// temp marker present means processing, final asset present means ready, a
// failed marker means the job crashed, anything else is not_found. Invalid
// ids report not_found rather than an error.
func (s *Store) Status(ctx context.Context, mediaID string) models.JobStatus {
	filePath, err := s.resolvePath(ctx, mediaID)
	if err != nil {
		return models.JobStatusNotFound
	}
	if fileExists(filePath + markerSuffixTmp) {
		return models.JobStatusProcessing
	}
	if fileExists(filePath) {
		return models.JobStatusReady
	}
	if fileExists(filePath + markerSuffixFailed) {
		return models.JobStatusFailed
	}
	return models.JobStatusNotFound
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
