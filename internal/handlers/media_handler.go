package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nocodemedia/media-server/internal/models"
	"github.com/nocodemedia/media-server/internal/services"
	"github.com/nocodemedia/media-server/internal/storage"
)

// MediaHandler handles media storage HTTP requests
type MediaHandler struct {
	BaseHandler
	mediaService *services.MediaService
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(mediaService *services.MediaService, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		BaseHandler:  BaseHandler{Logger: logger},
		mediaService: mediaService,
	}
}

// RegisterRoutes registers all media storage routes
func (h *MediaHandler) RegisterRoutes(r chi.Router) {
	r.Route("/storage", func(r chi.Router) {
		r.Post("/", h.Upload)
		r.Get("/list", h.List)
		r.Get("/stats", h.Stats)
		r.Get("/{id}/info", h.Info)
		r.Get("/{id}/status", h.Status)
		r.Get("/{id}", h.Download)
		r.Delete("/{id}", h.Delete)
	})
}

// Upload handles POST /storage
// @Summary Upload a media file
// @Description Upload a file directly or fetch it from a URL and return its ID
// @Tags storage
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Invalid media type, URL or file"
// @Router /storage [post]
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	mediaType := models.MediaType(r.FormValue("media_type"))
	customName := r.FormValue("name")

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		fileID, err := h.mediaService.Upload(r.Context(), mediaType, file, filepath.Ext(header.Filename), customName)
		if err != nil {
			h.RespondServiceError(w, r, err)
			return
		}
		h.RespondJSON(w, http.StatusOK, map[string]string{"file_id": fileID})
		return
	}

	rawURL := r.FormValue("url")
	if rawURL == "" {
		h.RespondError(w, http.StatusBadRequest, "either file or url is required")
		return
	}
	if !storage.IsValidURL(rawURL) {
		h.RespondError(w, http.StatusBadRequest, fmt.Sprintf("invalid URL: %s", rawURL))
		return
	}
	fileID, err := h.mediaService.UploadFromURL(r.Context(), mediaType, rawURL, customName)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]string{"file_id": fileID})
}

// List handles GET /storage/list
// @Summary List stored media
// @Description List stored files, optionally filtered by media type and limited
// @Tags storage
// @Produce json
// @Success 200 {object} map[string]any
// @Router /storage/list [get]
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	mediaType := models.MediaType(r.URL.Query().Get("media_type"))

	files, err := h.mediaService.List(r.Context(), mediaType)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit >= 0 && limit < len(files) {
			files = files[:limit]
		}
	}

	filter := "all"
	if mediaType != "" {
		filter = string(mediaType)
	}
	h.RespondJSON(w, http.StatusOK, map[string]any{
		"files":             files,
		"total":             len(files),
		"media_type_filter": filter,
	})
}

// Stats handles GET /storage/stats
// @Summary Storage statistics
// @Tags storage
// @Produce json
// @Success 200 {object} models.StorageStats
// @Router /storage/stats [get]
func (h *MediaHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.mediaService.Stats(r.Context())
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, stats)
}

// Info handles GET /storage/{id}/info
// @Summary File details
// @Tags storage
// @Produce json
// @Success 200 {object} models.MediaInfo
// @Failure 404 {object} map[string]string "File not found"
// @Router /storage/{id}/info [get]
func (h *MediaHandler) Info(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	info, err := h.mediaService.Info(r.Context(), id)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, info)
}

// Status handles GET /storage/{id}/status
// @Summary Background job status for a file
// @Tags storage
// @Produce json
// @Success 200 {object} map[string]string
// @Router /storage/{id}/status [get]
func (h *MediaHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	jobStatus := h.mediaService.Status(r.Context(), id)
	h.RespondJSON(w, http.StatusOK, map[string]string{"status": string(jobStatus)})
}

// Download handles GET /storage/{id}
// @Summary Download a file
// @Description Stream the file as an attachment. Range requests are supported.
// @Tags storage
// @Produce application/octet-stream
// @Success 200 "File content"
// @Failure 404 {object} map[string]string "File not found"
// @Router /storage/{id} [get]
func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	f, err := h.mediaService.OpenFile(r.Context(), id)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(f.Name())))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// Delete handles DELETE /storage/{id}
// @Summary Delete a file
// @Description Delete a file by id. Deleting an absent file still succeeds.
// @Tags storage
// @Produce json
// @Success 200 {object} map[string]string
// @Router /storage/{id} [delete]
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.mediaService.Exists(r.Context(), id) {
		if err := h.mediaService.Delete(r.Context(), id); err != nil {
			h.RespondServiceError(w, r, err)
			return
		}
	}
	h.RespondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
