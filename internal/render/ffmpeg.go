// Package render assembles video output with ffmpeg. The heavy lifting stays
// in the ffmpeg binary; this package only builds argument lists and temp
// inputs.
package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Renderer shells out to ffmpeg for video assembly
type Renderer struct {
	ffmpegPath string
	logger     *zap.Logger
}

// New creates a renderer using the given ffmpeg binary path
func New(ffmpegPath string, logger *zap.Logger) *Renderer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Renderer{ffmpegPath: ffmpegPath, logger: logger}
}

// MergeRequest concatenates videos in order, optionally mixing a background
// music track under the combined audio
type MergeRequest struct {
	VideoPaths  []string
	MusicPath   string
	MusicVolume float64
	OutputPath  string
}

// Merge concatenates the input videos into a single file. With a music path
// set, the music is volume-scaled, trimmed to the video duration and mixed
// under the original audio.
func (r *Renderer) Merge(ctx context.Context, req MergeRequest) error {
	if len(req.VideoPaths) == 0 {
		return fmt.Errorf("merge requires at least one input video")
	}

	listFile, err := writeConcatList(req.VideoPaths, filepath.Dir(req.OutputPath))
	if err != nil {
		return err
	}
	defer os.Remove(listFile)

	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listFile}
	if req.MusicPath != "" {
		args = append(args,
			"-stream_loop", "-1", "-i", req.MusicPath,
			"-filter_complex",
			fmt.Sprintf("[1:a]volume=%.2f[music];[0:a][music]amix=inputs=2:duration=first:dropout_transition=2[aout]", req.MusicVolume),
			"-map", "0:v", "-map", "[aout]",
			"-c:v", "copy", "-c:a", "aac", "-shortest",
		)
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args, req.OutputPath)

	return r.run(ctx, args)
}

// ComposeRequest builds a still-image video with a voice track and burned-in
// subtitles
type ComposeRequest struct {
	ImagePath    string
	AudioPath    string
	SubtitlePath string
	Width        int
	Height       int
	OutputPath   string
}

// Compose loops the background image for the duration of the audio, burns the
// subtitle track in and encodes the result
func (r *Renderer) Compose(ctx context.Context, req ComposeRequest) error {
	scale := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
		req.Width, req.Height, req.Width, req.Height)
	filter := scale
	if req.SubtitlePath != "" {
		filter = fmt.Sprintf("%s,ass=%s", scale, escapeFilterPath(req.SubtitlePath))
	}

	args := []string{
		"-y",
		"-loop", "1", "-i", req.ImagePath,
		"-i", req.AudioPath,
		"-vf", filter,
		"-c:v", "libx264", "-preset", "medium", "-tune", "stillimage",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "192k",
		"-shortest",
		req.OutputPath,
	}
	return r.run(ctx, args)
}

func (r *Renderer) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	r.logger.Debug("running ffmpeg", zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tailLines(stderr.String(), 5))
	}
	return nil
}

// writeConcatList writes an ffmpeg concat demuxer list next to the output so
// relative path resolution stays inside the storage root
func writeConcatList(paths []string, dir string) (string, error) {
	f, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat list: %w", err)
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("resolve input path: %w", err)
		}
		fmt.Fprintf(f, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close concat list: %w", err)
	}
	return f.Name(), nil
}

// escapeFilterPath quotes a path for use inside an ffmpeg filter expression
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, `\`, `\\`)
	path = strings.ReplaceAll(path, ":", `\:`)
	path = strings.ReplaceAll(path, "'", `\'`)
	return path
}

func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
