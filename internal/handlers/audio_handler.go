package handlers

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nocodemedia/media-server/internal/services"
)

// AudioHandler handles speech synthesis HTTP requests
type AudioHandler struct {
	BaseHandler
	audioService *services.AudioService
}

// NewAudioHandler creates a new audio handler
func NewAudioHandler(audioService *services.AudioService, logger *zap.Logger) *AudioHandler {
	return &AudioHandler{
		BaseHandler:  BaseHandler{Logger: logger},
		audioService: audioService,
	}
}

// RegisterRoutes registers all audio tool routes
func (h *AudioHandler) RegisterRoutes(r chi.Router) {
	r.Route("/audio-tools/tts", func(r chi.Router) {
		r.Get("/kokoro/languages", h.KokoroLanguages)
		r.Get("/kokoro/voices", h.KokoroVoices)
		r.Post("/kokoro", h.GenerateKokoro)
		r.Post("/chatterbox", h.GenerateChatterbox)
	})
}

// KokoroLanguages handles GET /audio-tools/tts/kokoro/languages
// @Summary Supported synthesis languages
// @Tags audio-tools
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /audio-tools/tts/kokoro/languages [get]
func (h *AudioHandler) KokoroLanguages(w http.ResponseWriter, r *http.Request) {
	h.RespondJSON(w, http.StatusOK, map[string]any{
		"languages": h.audioService.Languages(),
	})
}

// KokoroVoices handles GET /audio-tools/tts/kokoro/voices
// @Summary Available synthesis voices
// @Tags audio-tools
// @Produce json
// @Success 200 {object} map[string]any
// @Router /audio-tools/tts/kokoro/voices [get]
func (h *AudioHandler) KokoroVoices(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang_code")
	language := lang
	if language == "" {
		language = "all"
	}
	h.RespondJSON(w, http.StatusOK, map[string]any{
		"voices":   h.audioService.Voices(lang),
		"language": language,
	})
}

// GenerateKokoro handles POST /audio-tools/tts/kokoro
// @Summary Generate speech with a catalog voice
// @Description Schedule a synthesis job and return the id the audio will appear under
// @Tags audio-tools
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Missing text or invalid voice"
// @Failure 429 {object} map[string]string "Server is busy"
// @Router /audio-tools/tts/kokoro [post]
func (h *AudioHandler) GenerateKokoro(w http.ResponseWriter, r *http.Request) {
	req := services.KokoroRequest{
		Text:       r.FormValue("text"),
		Voice:      r.FormValue("voice"),
		Speed:      formFloat(r, "speed"),
		CustomName: r.FormValue("name"),
	}

	fileID, err := h.audioService.GenerateKokoro(r.Context(), req)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]string{"file_id": fileID})
}

// GenerateChatterbox handles POST /audio-tools/tts/chatterbox
// @Summary Generate speech imitating a sample voice
// @Description Schedule a voice-cloning job. The sample is given by id or uploaded inline as a .wav file.
// @Tags audio-tools
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Missing text or invalid sample"
// @Failure 404 {object} map[string]string "Sample audio not found"
// @Failure 429 {object} map[string]string "Server is busy"
// @Router /audio-tools/tts/chatterbox [post]
func (h *AudioHandler) GenerateChatterbox(w http.ResponseWriter, r *http.Request) {
	sampleID := r.FormValue("sample_audio_id")

	sampleFile, sampleHeader, err := r.FormFile("sample_audio_file")
	if err == nil {
		defer sampleFile.Close()
		if !strings.HasSuffix(strings.ToLower(sampleHeader.Filename), ".wav") {
			h.RespondError(w, http.StatusBadRequest, "Sample audio file must be a .wav file.")
			return
		}
		sampleID, err = h.audioService.UploadSample(r.Context(), sampleFile, filepath.Ext(sampleHeader.Filename))
		if err != nil {
			h.RespondServiceError(w, r, err)
			return
		}
	}

	req := services.ChatterboxRequest{
		Text:         r.FormValue("text"),
		SampleID:     sampleID,
		Exaggeration: formFloat(r, "exaggeration"),
		CFGWeight:    formFloat(r, "cfg_weight"),
		Temperature:  formFloat(r, "temperature"),
		CustomName:   r.FormValue("name"),
	}

	fileID, err := h.audioService.GenerateChatterbox(r.Context(), req)
	if err != nil {
		h.RespondServiceError(w, r, err)
		return
	}
	h.RespondJSON(w, http.StatusOK, map[string]string{"file_id": fileID})
}

// formFloat parses an optional float form value, returning 0 when absent or
// malformed so services apply their defaults
func formFloat(r *http.Request, name string) float64 {
	raw := r.FormValue(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return value
}
