package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nocodemedia/media-server/internal/services"
)

// VideoHandler handles video tool HTTP requests
type VideoHandler struct {
	BaseHandler
	videoService *services.VideoService
}

// NewVideoHandler creates a new video handler
func NewVideoHandler(videoService *services.VideoService, logger *zap.Logger) *VideoHandler {
	return &VideoHandler{
		BaseHandler:  BaseHandler{Logger: logger},
		videoService: videoService,
	}
}

// RegisterRoutes registers all video tool routes
func (h *VideoHandler) RegisterRoutes(r chi.Router) {
	r.Route("/video-tools", func(r chi.Router) {
		r.Post("/merge", h.Merge)
		r.Post("/generate/tts-captioned-video", h.GenerateCaptionedVideo)
	})
}

// Merge handles POST /video-tools/merge
// @Summary Merge videos
// @Description Schedule a job that concatenates videos, optionally mixing in background music
// @Tags video-tools
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "No video ids given"
// @Failure 404 {object} map[string]string "Video or music not found"
// @Failure 429 {object} map[string]string "Server is busy"
// @Router /video-tools/merge [post]
func (h *VideoHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var videoIDs []string
	for _, id := range strings.Split(r.FormValue("video_ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			videoIDs = append(videoIDs, id)
		}
	}

	req := services.MergeRequest{
		VideoIDs:    videoIDs,
		MusicID:     r.FormValue("background_music_id"),
		MusicVolume: formFloat(r, "background_music_volume"),
		CustomName:  r.FormValue("name"),
	}

	fileID, err := h.videoService.Merge(r.Context(), req)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]string{"file_id": fileID})
}

// GenerateCaptionedVideo handles POST /video-tools/generate/tts-captioned-video
// @Summary Generate a captioned video
// @Description Schedule a job that narrates text (or uses an existing audio file), transcribes it and composes a subtitled video over a background image
// @Tags video-tools
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Invalid voice, audio id or background type"
// @Failure 404 {object} map[string]string "Background image not found"
// @Failure 429 {object} map[string]string "Server is busy"
// @Router /video-tools/generate/tts-captioned-video [post]
func (h *VideoHandler) GenerateCaptionedVideo(w http.ResponseWriter, r *http.Request) {
	req := services.CaptionedVideoRequest{
		BackgroundID: r.FormValue("background_id"),
		Text:         r.FormValue("text"),
		AudioID:      r.FormValue("audio_id"),
		Voice:        r.FormValue("kokoro_voice"),
		Speed:        formFloat(r, "kokoro_speed"),
		Width:        formInt(r, "width"),
		Height:       formInt(r, "height"),
		CustomName:   r.FormValue("name"),
	}

	fileID, err := h.videoService.GenerateCaptionedVideo(r.Context(), req)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]string{"file_id": fileID})
}

// formInt parses an optional integer form value, returning 0 when absent or
// malformed so services apply their defaults
func formInt(r *http.Request, name string) int {
	raw := r.FormValue(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
