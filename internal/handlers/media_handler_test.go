package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nocodemedia/media-server/internal/metadata"
	"github.com/nocodemedia/media-server/internal/models"
	"github.com/nocodemedia/media-server/internal/services"
	"github.com/nocodemedia/media-server/internal/storage"
)

func newTestRouter(t *testing.T) (chi.Router, *storage.Store) {
	t.Helper()

	dir := t.TempDir()
	meta, err := metadata.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { meta.Close() })

	store, err := storage.New(dir, meta, zap.NewNop())
	require.NoError(t, err)

	r := chi.NewRouter()
	NewMediaHandler(services.NewMediaService(store), zap.NewNop()).RegisterRoutes(r)
	NewFolderHandler(services.NewFolderService(store), zap.NewNop()).RegisterRoutes(r)
	return r, store
}

// multipartBody builds a multipart form with the given fields and an optional
// file part named "file"
func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	return multipartFile(t, fields, "file", filename, content)
}

// multipartFile builds a multipart form with an arbitrary file field name
func multipartFile(t *testing.T, fields map[string]string, fieldName, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile(fieldName, filename)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doRequest(t *testing.T, r chi.Router, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got), "body: %s", rec.Body.String())
	return got
}

func TestUploadAndDownload(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartBody(t, map[string]string{"media_type": "video"}, "clip.mp4", "movie bytes")
	rec := doRequest(t, router, http.MethodPost, "/storage", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	fileID, _ := decodeJSON(t, rec)["file_id"].(string)
	assert.True(t, strings.HasPrefix(fileID, "video_"))
	assert.True(t, strings.HasSuffix(fileID, ".mp4"))

	rec = doRequest(t, router, http.MethodGet, "/storage/"+fileID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "movie bytes", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
}

func TestUploadRejectsBadRequests(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("invalid media type", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{"media_type": "hologram"}, "clip.mp4", "x")
		rec := doRequest(t, router, http.MethodPost, "/storage", body, contentType)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("scratch bucket not uploadable", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{"media_type": "tmp"}, "scratch.bin", "x")
		rec := doRequest(t, router, http.MethodPost, "/storage", body, contentType)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("neither file nor url", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{"media_type": "video"}, "", "")
		rec := doRequest(t, router, http.MethodPost, "/storage", body, contentType)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed url", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{
			"media_type": "video",
			"url":        "not-a-url",
		}, "", "")
		rec := doRequest(t, router, http.MethodPost, "/storage", body, contentType)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListFiltersAndLimits(t *testing.T) {
	router, store := newTestRouter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Upload(ctx, models.MediaTypeVideo, strings.NewReader("v"), ".mp4", "")
		require.NoError(t, err)
	}
	_, err := store.Upload(ctx, models.MediaTypeImage, strings.NewReader("i"), ".png", "")
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/storage/list?media_type=video", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON(t, rec)
	assert.Equal(t, float64(3), got["total"])
	assert.Equal(t, "video", got["media_type_filter"])

	rec = doRequest(t, router, http.MethodGet, "/storage/list?limit=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeJSON(t, rec)
	assert.Equal(t, float64(2), got["total"])
	assert.Equal(t, "all", got["media_type_filter"])
}

func TestStatusEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	ctx := context.Background()

	id, err := store.Upload(ctx, models.MediaTypeAudio, strings.NewReader("wav"), ".wav", "")
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/storage/"+id+"/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decodeJSON(t, rec)["status"])

	rec = doRequest(t, router, http.MethodGet, "/storage/audio_missing.wav/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "not_found", decodeJSON(t, rec)["status"])
}

func TestInfoNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/storage/video_missing.mp4/info", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteIsIdempotent(t *testing.T) {
	router, store := newTestRouter(t)
	ctx := context.Background()

	id, err := store.Upload(ctx, models.MediaTypeImage, strings.NewReader("img"), ".png", "")
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodDelete, "/storage/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", decodeJSON(t, rec)["status"])
	assert.False(t, store.Exists(ctx, id))

	// deleting the same id again still reports success
	rec = doRequest(t, router, http.MethodDelete, "/storage/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", decodeJSON(t, rec)["status"])
}

func TestStatsEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	ctx := context.Background()

	_, err := store.Upload(ctx, models.MediaTypeVideo, strings.NewReader("vvvv"), ".mp4", "")
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/storage/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON(t, rec)
	assert.Equal(t, float64(1), got["total_files"])
}
