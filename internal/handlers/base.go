// Package handlers implements the HTTP API surface
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nocodemedia/media-server/internal/admission"
	"github.com/nocodemedia/media-server/internal/storage"
)

// BaseHandler provides common handler functionality
type BaseHandler struct {
	Logger *zap.Logger
}

// RespondJSON sends a JSON response
func (h *BaseHandler) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// RespondError sends an error JSON response
func (h *BaseHandler) RespondError(w http.ResponseWriter, status int, message string) {
	h.RespondJSON(w, status, map[string]string{"error": message})
}

// RespondServiceError maps service-layer errors to HTTP statuses: validation
// failures become 400, missing media 404, admission denials 429 and anything
// else 500
func (h *BaseHandler) RespondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *storage.ValidationError
	switch {
	case errors.As(err, &verr):
		h.RespondError(w, http.StatusBadRequest, verr.Reason)
	case errors.Is(err, storage.ErrNotFound):
		h.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, admission.ErrDenied):
		h.RespondError(w, http.StatusTooManyRequests, err.Error())
	default:
		h.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
