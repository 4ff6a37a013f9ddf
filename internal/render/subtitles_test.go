package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocodemedia/media-server/internal/engine"
)

func TestBuildSegments(t *testing.T) {
	captions := []engine.Caption{
		{Text: "hello", StartTS: 0.0, EndTS: 0.4},
		{Text: "brave", StartTS: 0.4, EndTS: 0.9},
		{Text: "new", StartTS: 0.9, EndTS: 1.1},
		{Text: "world", StartTS: 1.1, EndTS: 1.6},
	}

	t.Run("one word per cue", func(t *testing.T) {
		segments := BuildSegments(captions, 1)
		require.Len(t, segments, 4)
		assert.Equal(t, "hello", segments[0].Text)
		assert.Equal(t, 0.0, segments[0].StartTS)
		assert.Equal(t, 0.4, segments[0].EndTS)
	})

	t.Run("grouped cues span their words", func(t *testing.T) {
		segments := BuildSegments(captions, 3)
		require.Len(t, segments, 2)
		assert.Equal(t, "hello brave new", segments[0].Text)
		assert.Equal(t, 0.0, segments[0].StartTS)
		assert.Equal(t, 1.1, segments[0].EndTS)
		assert.Equal(t, "world", segments[1].Text)
	})

	t.Run("blank captions dropped", func(t *testing.T) {
		segments := BuildSegments([]engine.Caption{
			{Text: "  ", StartTS: 0, EndTS: 1},
			{Text: "word", StartTS: 1, EndTS: 2},
		}, 1)
		require.Len(t, segments, 1)
		assert.Equal(t, "word", segments[0].Text)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, BuildSegments(nil, 1))
	})
}

func TestASSTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00:00.00"},
		{1.5, "0:00:01.50"},
		{61.25, "0:01:01.25"},
		{3723.4, "1:02:03.40"},
		{-2, "0:00:00.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, assTimestamp(tt.seconds), "%.2f", tt.seconds)
	}
}

func TestWriteASS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.ass")
	segments := []Segment{
		{Text: "hello", StartTS: 0, EndTS: 0.5},
		{Text: "{evil} tag", StartTS: 0.5, EndTS: 1},
	}

	require.NoError(t, WriteASS(path, segments, DefaultSubtitleStyle(1080, 1920)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "PlayResX: 1080")
	assert.Contains(t, content, "PlayResY: 1920")
	assert.Contains(t, content, "Dialogue: 0,0:00:00.00,0:00:00.50,Default,,0,0,0,,hello")
	assert.Contains(t, content, "(evil) tag", "override braces are neutralized")
	assert.NotContains(t, content, "{evil}")
}
