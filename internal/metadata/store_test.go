package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocodemedia/media-server/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	record := &models.Metadata{
		MediaID:          "image_photo.jpg",
		MediaType:        models.MediaTypeImage,
		Filename:         "photo.jpg",
		CustomName:       "Holiday",
		OriginalFilename: "IMG_2041.jpg",
		FileExtension:    ".jpg",
	}
	require.NoError(t, s.Put(ctx, record))

	got, err := s.Get(ctx, "image_photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, record.MediaID, got.MediaID)
	assert.Equal(t, models.MediaTypeImage, got.MediaType)
	assert.Equal(t, "Holiday", got.CustomName)
	assert.Equal(t, "IMG_2041.jpg", got.OriginalFilename)
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
}

func TestPutReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &models.Metadata{MediaID: "a", MediaType: models.MediaTypeAudio, Filename: "a.wav"}))
	require.NoError(t, s.Put(ctx, &models.Metadata{MediaID: "a", MediaType: models.MediaTypeAudio, Filename: "a.wav", CustomName: "renamed"}))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.CustomName)
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &models.Metadata{MediaID: "x", MediaType: models.MediaTypeImage, Filename: "x.png"}))
	require.NoError(t, s.Delete(ctx, "x"))
	require.NoError(t, s.Delete(ctx, "x"))

	_, err := s.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByFolder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &models.Metadata{MediaID: "1", MediaType: models.MediaTypeImage, Filename: "b.png", FolderPath: "Gallery"}))
	require.NoError(t, s.Put(ctx, &models.Metadata{MediaID: "2", MediaType: models.MediaTypeImage, Filename: "a.png", FolderPath: "Gallery"}))
	require.NoError(t, s.Put(ctx, &models.Metadata{MediaID: "3", MediaType: models.MediaTypeImage, Filename: "c.png", FolderPath: "Gallery/Sub"}))
	require.NoError(t, s.Put(ctx, &models.Metadata{MediaID: "4", MediaType: models.MediaTypeImage, Filename: "d.png"}))

	records, err := s.ListByFolder(ctx, "Gallery")
	require.NoError(t, err)
	require.Len(t, records, 2, "subfolder and bucket records are excluded")
	assert.Equal(t, "a.png", records[0].Filename, "sorted by filename")
	assert.Equal(t, "b.png", records[1].Filename)
}

func TestDeleteByFolderPrefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &models.Metadata{MediaID: "1", MediaType: models.MediaTypeImage, Filename: "a.png", FolderPath: "Gallery"}))
	require.NoError(t, s.Put(ctx, &models.Metadata{MediaID: "2", MediaType: models.MediaTypeImage, Filename: "b.png", FolderPath: "Gallery/Sub"}))
	require.NoError(t, s.Put(ctx, &models.Metadata{MediaID: "3", MediaType: models.MediaTypeImage, Filename: "c.png", FolderPath: "GalleryTwo"}))

	require.NoError(t, s.DeleteByFolderPrefix(ctx, "Gallery"))

	_, err := s.Get(ctx, "1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "2")
	assert.ErrorIs(t, err, ErrNotFound)

	// sibling with a shared name prefix survives
	_, err = s.Get(ctx, "3")
	assert.NoError(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, &models.Metadata{MediaID: "persist", MediaType: models.MediaTypeAudio, Filename: "p.wav"}))
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, "persist")
	require.NoError(t, err)
	assert.Equal(t, "p.wav", got.Filename)
}
