package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nocodemedia/media-server/internal/admission"
	"github.com/nocodemedia/media-server/internal/engine"
	"github.com/nocodemedia/media-server/internal/jobs"
	"github.com/nocodemedia/media-server/internal/metadata"
	"github.com/nocodemedia/media-server/internal/services"
	"github.com/nocodemedia/media-server/internal/storage"
)

// newAudioRouter wires the audio routes against a real store. The inference
// client points nowhere; these tests only cover paths that fail before any
// job is scheduled.
func newAudioRouter(t *testing.T, admit *admission.Controller) chi.Router {
	t.Helper()

	dir := t.TempDir()
	meta, err := metadata.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { meta.Close() })

	store, err := storage.New(dir, meta, zap.NewNop())
	require.NoError(t, err)

	queue := jobs.NewQueue(1, zap.NewNop())
	t.Cleanup(func() { queue.Shutdown(context.Background()) })

	inference := engine.NewClient("http://127.0.0.1:0", time.Second, zap.NewNop())
	audioService := services.NewAudioService(store, inference, admit, queue, zap.NewNop())

	r := chi.NewRouter()
	NewAudioHandler(audioService, zap.NewNop()).RegisterRoutes(r)
	return r
}

func TestKokoroCatalogEndpoints(t *testing.T) {
	router := newAudioRouter(t, admission.New(2, 1, 3))

	rec := doRequest(t, router, http.MethodGet, "/audio-tools/tts/kokoro/languages", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	langs, _ := decodeJSON(t, rec)["languages"].([]any)
	assert.Contains(t, langs, "en-us")

	rec = doRequest(t, router, http.MethodGet, "/audio-tools/tts/kokoro/voices?lang_code=pt", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON(t, rec)
	assert.Equal(t, "pt", got["language"])
	voices, _ := got["voices"].([]any)
	assert.Contains(t, voices, "pf_dora")

	rec = doRequest(t, router, http.MethodGet, "/audio-tools/tts/kokoro/voices", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "all", decodeJSON(t, rec)["language"])
}

func TestGenerateKokoroRejectsMissingText(t *testing.T) {
	router := newAudioRouter(t, admission.New(2, 1, 3))

	body, contentType := multipartBody(t, map[string]string{"voice": "af_heart"}, "", "")
	rec := doRequest(t, router, http.MethodPost, "/audio-tools/tts/kokoro", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeJSON(t, rec), "error")
}

func TestGenerateKokoroBusy(t *testing.T) {
	router := newAudioRouter(t, admission.New(0, 1, 1))

	body, contentType := multipartBody(t, map[string]string{"text": "hello"}, "", "")
	rec := doRequest(t, router, http.MethodPost, "/audio-tools/tts/kokoro", body, contentType)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, decodeJSON(t, rec), "error")
}

func TestGenerateChatterboxRejectsNonWavSample(t *testing.T) {
	router := newAudioRouter(t, admission.New(2, 1, 3))

	body, contentType := multipartFile(t, map[string]string{"text": "clone me"},
		"sample_audio_file", "sample.mp3", "mp3 bytes")
	rec := doRequest(t, router, http.MethodPost, "/audio-tools/tts/chatterbox", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeJSON(t, rec)["error"], ".wav")
}
