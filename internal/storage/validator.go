package storage

import (
	"path/filepath"
	"strings"

	"github.com/nocodemedia/media-server/internal/models"
)

const maxFilenameLength = 255

// containsTraversal reports whether a path component carries characters that
// could escape the storage root
func containsTraversal(s string) bool {
	return strings.Contains(s, "..") || strings.ContainsAny(s, `/\`)
}

// ParseMediaID validates and splits a legacy media id of the form
// {mediaType}_{filename}. User input never reaches the filesystem without
// passing through here or the metadata index.
func ParseMediaID(mediaID string) (models.MediaType, string, error) {
	if mediaID == "" || !strings.Contains(mediaID, "_") {
		return "", "", validationErrorf("invalid media ID format")
	}

	typePart, filename, _ := strings.Cut(mediaID, "_")
	mediaType := models.MediaType(typePart)
	if !mediaType.Valid() {
		return "", "", validationErrorf("invalid media type: %s", typePart)
	}

	if containsTraversal(filename) {
		return "", "", validationErrorf("filename contains invalid characters or path traversal attempt")
	}
	if filename == "" || len(filename) > maxFilenameLength {
		return "", "", validationErrorf("invalid filename")
	}

	return mediaType, filename, nil
}

// ValidateExtension rejects file extensions carrying traversal characters
func ValidateExtension(ext string) error {
	if ext != "" && containsTraversal(ext) {
		return validationErrorf("file extension contains invalid characters")
	}
	return nil
}

// safeJoin joins path elements under the storage root and verifies the
// resolved absolute path still lives inside it. Defense in depth: the
// component checks above should already make escapes impossible.
func (s *Store) safeJoin(elem ...string) (string, error) {
	path := filepath.Join(append([]string{s.root}, elem...)...)

	resolved, err := filepath.Abs(path)
	if err != nil {
		return "", validationErrorf("invalid path")
	}
	rootAbs, err := filepath.Abs(s.root)
	if err != nil {
		return "", validationErrorf("invalid storage root")
	}
	if resolved != rootAbs && !strings.HasPrefix(resolved, rootAbs+string(filepath.Separator)) {
		return "", validationErrorf("path traversal attempt detected")
	}

	return path, nil
}

// SafePath resolves a legacy media id to its absolute bucket path after
// validation
func (s *Store) SafePath(mediaID string) (string, error) {
	mediaType, filename, err := ParseMediaID(mediaID)
	if err != nil {
		return "", err
	}
	return s.safeJoin(string(mediaType), filename)
}

const maxCustomNameLength = 50

// SanitizeCustomName strips characters that are unsafe in filenames from a
// user-supplied display name, collapses whitespace and truncates the result.
// Returns an empty string when nothing usable remains; callers fall back to a
// fresh UUID in that case.
func SanitizeCustomName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			// dropped
		case '.':
			// dots are dropped to rule out ".." sequences; the original
			// extension is carried separately
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.Join(strings.Fields(b.String()), " ")
	if len(cleaned) > maxCustomNameLength {
		cleaned = strings.TrimSpace(cleaned[:maxCustomNameLength])
	}
	return cleaned
}
