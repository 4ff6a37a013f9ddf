package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nocodemedia/media-server/internal/metadata"
	"github.com/nocodemedia/media-server/internal/models"
)

// newTestStore creates a store over a temp directory with a fresh metadata
// index
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dir := t.TempDir()
	meta, err := metadata.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { meta.Close() })

	s, err := New(dir, meta, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestUploadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Upload(ctx, models.MediaTypeImage, strings.NewReader("fake image bytes"), ".png", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "image_"))
	assert.True(t, strings.HasSuffix(id, ".png"))

	data, err := s.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "fake image bytes", string(data))

	assert.True(t, s.Exists(ctx, id))
}

func TestUploadWithCustomName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Upload(ctx, models.MediaTypeVideo, strings.NewReader("clip"), ".mp4", "My Great: Video?")
	require.NoError(t, err)
	assert.Equal(t, "video_My Great Video.mp4", id)

	info, err := s.MediaInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeVideo, info.MediaType)
	assert.Equal(t, "My Great Video.mp4", info.Filename)
}

func TestUploadRejectsInvalidInput(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upload(ctx, "document", strings.NewReader("x"), ".pdf", "")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = s.Upload(ctx, models.MediaTypeImage, strings.NewReader("x"), "../evil", "")
	assert.ErrorAs(t, err, &verr)

	_, err = s.Upload(ctx, models.MediaTypeImage, strings.NewReader("x"), ".png", "../../escape")
	assert.ErrorAs(t, err, &verr)
}

func TestUploadFromURL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("remote image bytes"))
	}))
	defer srv.Close()

	id, err := s.UploadFromURL(ctx, models.MediaTypeImage, srv.URL+"/pic.png", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "image_"))
	assert.True(t, strings.HasSuffix(id, ".png"))

	data, err := s.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "remote image bytes", string(data))

	var verr *ValidationError
	_, err = s.UploadFromURL(ctx, models.MediaTypeImage, "not-a-url", "")
	assert.ErrorAs(t, err, &verr)
}

func TestConcurrentUploadsProduceDistinctIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 1000
	ids := make([]string, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			id, err := s.Upload(ctx, models.MediaTypeAudio, strings.NewReader(fmt.Sprintf("chunk-%d", i)), ".wav", "")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Upload(ctx, models.MediaTypeImage, strings.NewReader("img"), ".jpg", "")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))
	assert.False(t, s.Exists(ctx, id))

	err = s.Delete(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenMissingFile(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Open(context.Background(), "image_nope.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upload(ctx, models.MediaTypeImage, strings.NewReader("a"), ".png", "first")
	require.NoError(t, err)
	_, err = s.Upload(ctx, models.MediaTypeImage, strings.NewReader("bb"), ".jpg", "second")
	require.NoError(t, err)
	_, err = s.Upload(ctx, models.MediaTypeAudio, strings.NewReader("ccc"), ".mp3", "")
	require.NoError(t, err)

	images, err := s.List(ctx, models.MediaTypeImage)
	require.NoError(t, err)
	assert.Len(t, images, 2)
	for _, info := range images {
		assert.Equal(t, models.MediaTypeImage, info.MediaType)
		assert.True(t, strings.HasPrefix(info.MediaID, "image_"))
	}

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = s.List(ctx, "document")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestUploadToFolderUsesUUIDKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.UploadToFolder(ctx, models.MediaTypeImage, strings.NewReader("img"), ".jpg", "Projects/Thumbs", "original.jpg", "cover")
	require.NoError(t, err)
	assert.NotContains(t, id, "_", "folder uploads are keyed by bare UUID")

	assert.True(t, s.Exists(ctx, id))

	data, err := s.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))

	mt, err := s.MediaType(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeImage, mt)
}

func TestReindexRecoversLostIndex(t *testing.T) {
	dir := t.TempDir()
	meta, err := metadata.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { meta.Close() })

	s, err := New(dir, meta, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	folderID, err := s.UploadToFolder(ctx, models.MediaTypeAudio, strings.NewReader("wav"), ".wav", "Samples", "", "")
	require.NoError(t, err)
	bucketID, err := s.Upload(ctx, models.MediaTypeImage, strings.NewReader("img"), ".png", "")
	require.NoError(t, err)

	// wipe the index and rebuild it from the filesystem
	require.NoError(t, meta.Delete(ctx, folderID))
	require.NoError(t, meta.Delete(ctx, bucketID))
	require.NoError(t, s.Reindex(ctx))

	assert.True(t, s.Exists(ctx, folderID))
	assert.True(t, s.Exists(ctx, bucketID))

	record, err := meta.Get(ctx, folderID)
	require.NoError(t, err)
	assert.Equal(t, "Samples", record.FolderPath)
}
