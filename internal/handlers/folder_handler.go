package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nocodemedia/media-server/internal/models"
	"github.com/nocodemedia/media-server/internal/services"
)

// FolderHandler handles folder tree HTTP requests
type FolderHandler struct {
	BaseHandler
	folderService *services.FolderService
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(folderService *services.FolderService, logger *zap.Logger) *FolderHandler {
	return &FolderHandler{
		BaseHandler:   BaseHandler{Logger: logger},
		folderService: folderService,
	}
}

// RegisterRoutes registers all folder routes. Folder paths may contain
// slashes, so the nested routes use wildcards and dispatch on the trailing
// path segment.
func (h *FolderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/folders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/root/contents", h.RootContents)
		r.Get("/*", h.Contents)
		r.Post("/*", h.Upload)
		r.Delete("/*", h.Delete)
	})
}

// wildcardFolderPath extracts the folder path from a wildcard route, with the
// given trailing segment removed
func wildcardFolderPath(r *http.Request, trailing string) (string, bool) {
	raw := chi.URLParam(r, "*")
	if trailing == "" {
		return raw, raw != ""
	}
	if raw == trailing || !strings.HasSuffix(raw, "/"+trailing) {
		return "", false
	}
	return strings.TrimSuffix(raw, "/"+trailing), true
}

// List handles GET /folders
// @Summary List folders
// @Description List folders directly under a parent, or the root folders
// @Tags folders
// @Produce json
// @Success 200 {object} map[string]any
// @Router /folders [get]
func (h *FolderHandler) List(w http.ResponseWriter, r *http.Request) {
	parent := r.URL.Query().Get("parent_folder")

	folders, err := h.folderService.List(r.Context(), parent)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]any{
		"folders":       folders,
		"parent_folder": parent,
		"total":         len(folders),
	})
}

// Create handles POST /folders
// @Summary Create a folder
// @Tags folders
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string "Invalid name or duplicate folder"
// @Router /folders [post]
func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("folder_name")
	parent := r.FormValue("parent_folder")
	if name == "" {
		h.RespondError(w, http.StatusBadRequest, "folder_name is required")
		return
	}

	created, err := h.folderService.Create(r.Context(), name, parent)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}
	if !created {
		h.RespondError(w, http.StatusBadRequest, fmt.Sprintf("Folder '%s' already exists", name))
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       fmt.Sprintf("Folder '%s' created successfully", name),
		"folder_name":   name,
		"parent_folder": parent,
	})
}

// Delete handles DELETE /folders/{folderPath}
// @Summary Delete a folder and its contents
// @Tags folders
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string "Protected or invalid folder"
// @Failure 404 {object} map[string]string "Folder not found"
// @Router /folders/{folderPath} [delete]
func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	folderPath, ok := wildcardFolderPath(r, "")
	if !ok {
		h.RespondError(w, http.StatusBadRequest, "folder path is required")
		return
	}

	deleted, err := h.folderService.Delete(r.Context(), folderPath)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}
	if !deleted {
		h.RespondError(w, http.StatusNotFound, fmt.Sprintf("Folder '%s' not found", folderPath))
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Folder '%s' deleted successfully", folderPath),
	})
}

// RootContents handles GET /folders/root/contents
// @Summary Root folder contents
// @Tags folders
// @Produce json
// @Success 200 {object} models.FolderContents
// @Router /folders/root/contents [get]
func (h *FolderHandler) RootContents(w http.ResponseWriter, r *http.Request) {
	contents, err := h.folderService.Contents(r.Context(), "")
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, contents)
}

// Contents handles GET /folders/{folderPath}/contents
// @Summary Folder contents
// @Tags folders
// @Produce json
// @Success 200 {object} models.FolderContents
// @Router /folders/{folderPath}/contents [get]
func (h *FolderHandler) Contents(w http.ResponseWriter, r *http.Request) {
	folderPath, ok := wildcardFolderPath(r, "contents")
	if !ok {
		h.RespondError(w, http.StatusNotFound, "not found")
		return
	}

	contents, err := h.folderService.Contents(r.Context(), folderPath)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, contents)
}

// Upload handles POST /folders/{folderPath}/upload
// @Summary Upload a file into a folder
// @Tags folders
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Invalid media type or file"
// @Router /folders/{folderPath}/upload [post]
func (h *FolderHandler) Upload(w http.ResponseWriter, r *http.Request) {
	folderPath, ok := wildcardFolderPath(r, "upload")
	if !ok {
		h.RespondError(w, http.StatusNotFound, "not found")
		return
	}
	mediaType := models.MediaType(r.FormValue("media_type"))
	customName := r.FormValue("name")

	file, header, err := r.FormFile("file")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	fileID, err := h.folderService.Upload(r.Context(), mediaType, file,
		filepath.Ext(header.Filename), folderPath, header.Filename, customName)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]string{
		"file_id":     fileID,
		"filename":    header.Filename,
		"folder_path": folderPath,
		"media_type":  string(mediaType),
	})
}
