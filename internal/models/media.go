package models

import "time"

// MediaType represents valid media categories
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
	MediaTypeTmp   MediaType = "tmp"
)

// Valid reports whether the media type is one of the known categories
func (t MediaType) Valid() bool {
	switch t {
	case MediaTypeImage, MediaTypeVideo, MediaTypeAudio, MediaTypeTmp:
		return true
	default:
		return false
	}
}

// Uploadable reports whether clients may upload this media type directly.
// The tmp category is reserved for server-managed intermediate files.
func (t MediaType) Uploadable() bool {
	switch t {
	case MediaTypeImage, MediaTypeVideo, MediaTypeAudio:
		return true
	default:
		return false
	}
}

// MediaInfo describes a stored asset
type MediaInfo struct {
	MediaID       string    `json:"media_id"`
	MediaType     MediaType `json:"media_type"`
	Filename      string    `json:"filename"`
	SizeBytes     int64     `json:"size_bytes"`
	SizeMB        float64   `json:"size_mb"`
	CreatedAt     time.Time `json:"created_at"`
	ModifiedAt    time.Time `json:"modified_at"`
	FileExtension string    `json:"file_extension"`
}

// Metadata is the side-channel record for a stored asset. It maps the opaque
// media id to the asset's physical location and user-facing display name.
type Metadata struct {
	MediaID          string    `json:"media_id"`
	MediaType        MediaType `json:"media_type"`
	Filename         string    `json:"filename"`
	FolderPath       string    `json:"folder_path,omitempty"`
	CustomName       string    `json:"custom_name,omitempty"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	FileExtension    string    `json:"file_extension,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// FolderInfo describes a user-visible folder
type FolderInfo struct {
	Name         string    `json:"name"`
	NormalizedID string    `json:"normalized_id"`
	Path         string    `json:"path"`
	CreatedAt    time.Time `json:"created_at"`
	ModifiedAt   time.Time `json:"modified_at"`
	FileCount    int       `json:"file_count"`
}

// FolderFile describes a file inside a folder listing. DisplayName combines
// the metadata custom name (when present) with the original extension.
type FolderFile struct {
	MediaID       string    `json:"media_id"`
	DisplayName   string    `json:"name"`
	Path          string    `json:"path"`
	SizeBytes     int64     `json:"size_bytes"`
	SizeMB        float64   `json:"size_mb"`
	CreatedAt     time.Time `json:"created_at"`
	ModifiedAt    time.Time `json:"modified_at"`
	FileExtension string    `json:"file_extension"`
}

// FolderContents is the combined listing of a folder
type FolderContents struct {
	Folders     []FolderInfo `json:"folders"`
	Files       []FolderFile `json:"files"`
	CurrentPath string       `json:"current_path"`
}

// TypeStats aggregates storage usage for one media type
type TypeStats struct {
	Count     int     `json:"count"`
	SizeBytes int64   `json:"size_bytes"`
	SizeMB    float64 `json:"size_mb"`
}

// StorageStats aggregates storage usage across all media types, including
// files stored inside custom folders
type StorageStats struct {
	TotalFiles     int                     `json:"total_files"`
	TotalSizeBytes int64                   `json:"total_size_bytes"`
	TotalSizeMB    float64                 `json:"total_size_mb"`
	ByType         map[MediaType]TypeStats `json:"by_type"`
}

// JobStatus is the client-visible state of a background job, derived from
// marker files next to the final asset
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusReady      JobStatus = "ready"
	JobStatusFailed     JobStatus = "failed"
	JobStatusNotFound   JobStatus = "not_found"
)
