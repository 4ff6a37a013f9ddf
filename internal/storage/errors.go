package storage

import (
	"errors"
	"fmt"

	"github.com/nocodemedia/media-server/internal/models"
)

// ErrNotFound is returned when a media id or folder does not resolve to an
// existing file or directory
var ErrNotFound = errors.New("not found")

// ValidationError indicates a malformed media id, extension, custom name or
// folder path. Handlers map it to HTTP 400.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidMediaTypeError builds the validation error for an unsupported media
// type value
func InvalidMediaTypeError(mediaType models.MediaType) error {
	return validationErrorf("invalid media type: %s", string(mediaType))
}
