package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nocodemedia/media-server/internal/models"
)

// extensionTypes classifies folder-tree files by extension when computing
// storage statistics. Unknown extensions fall back to image.
var extensionTypes = map[string]models.MediaType{
	".jpg":  models.MediaTypeImage,
	".jpeg": models.MediaTypeImage,
	".png":  models.MediaTypeImage,
	".gif":  models.MediaTypeImage,
	".webp": models.MediaTypeImage,
	".bmp":  models.MediaTypeImage,
	".mp4":  models.MediaTypeVideo,
	".webm": models.MediaTypeVideo,
	".mov":  models.MediaTypeVideo,
	".avi":  models.MediaTypeVideo,
	".mkv":  models.MediaTypeVideo,
	".mp3":  models.MediaTypeAudio,
	".wav":  models.MediaTypeAudio,
	".ogg":  models.MediaTypeAudio,
	".flac": models.MediaTypeAudio,
	".m4a":  models.MediaTypeAudio,
	".aac":  models.MediaTypeAudio,
	".ass":  models.MediaTypeTmp,
	".srt":  models.MediaTypeTmp,
}

func classifyExtension(ext string) models.MediaType {
	if mt, ok := extensionTypes[strings.ToLower(ext)]; ok {
		return mt
	}
	return models.MediaTypeImage
}

// Stats summarizes storage usage across the default buckets and the whole
// folder tree. Folder files are classified by extension.
func (s *Store) Stats(ctx context.Context) (*models.StorageStats, error) {
	stats := &models.StorageStats{
		ByType: map[models.MediaType]models.TypeStats{
			models.MediaTypeImage: {},
			models.MediaTypeVideo: {},
			models.MediaTypeAudio: {},
			models.MediaTypeTmp:   {},
		},
	}

	add := func(mt models.MediaType, size int64) {
		entry := stats.ByType[mt]
		entry.Count++
		entry.SizeBytes += size
		entry.SizeMB = toMB(entry.SizeBytes)
		stats.ByType[mt] = entry
		stats.TotalFiles++
		stats.TotalSizeBytes += size
	}

	for _, mt := range []models.MediaType{models.MediaTypeImage, models.MediaTypeVideo, models.MediaTypeAudio, models.MediaTypeTmp} {
		entries, err := os.ReadDir(filepath.Join(s.root, string(mt)))
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
				continue
			}
			add(mt, info.Size())
		}
	}

	err := filepath.WalkDir(s.foldersRoot(), func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return err
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		add(classifyExtension(filepath.Ext(d.Name())), info.Size())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk folder tree: %w", err)
	}

	stats.TotalSizeMB = toMB(stats.TotalSizeBytes)
	return stats, nil
}
