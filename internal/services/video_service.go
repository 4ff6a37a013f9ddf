package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nocodemedia/media-server/internal/admission"
	"github.com/nocodemedia/media-server/internal/engine"
	"github.com/nocodemedia/media-server/internal/jobs"
	"github.com/nocodemedia/media-server/internal/models"
	"github.com/nocodemedia/media-server/internal/render"
	"github.com/nocodemedia/media-server/internal/storage"
)

// tempFolder receives intermediate job files. It is one of the protected
// folders created at startup.
const tempFolder = "temp"

// VideoService handles business logic for video assembly
type VideoService struct {
	store    *storage.Store
	engine   InferenceEngine
	renderer VideoRenderer
	admit    *admission.Controller
	queue    *jobs.Queue
	logger   *zap.Logger
}

// NewVideoService creates a new video service
func NewVideoService(store *storage.Store, eng InferenceEngine, renderer VideoRenderer, admit *admission.Controller, queue *jobs.Queue, logger *zap.Logger) *VideoService {
	return &VideoService{
		store:    store,
		engine:   eng,
		renderer: renderer,
		admit:    admit,
		queue:    queue,
		logger:   logger,
	}
}

// MergeRequest describes a video concatenation job
type MergeRequest struct {
	VideoIDs    []string
	MusicID     string
	MusicVolume float64
	CustomName  string
}

// Merge validates the request, allocates the output id and schedules the
// concatenation job
func (s *VideoService) Merge(ctx context.Context, req MergeRequest) (string, error) {
	if len(req.VideoIDs) == 0 {
		return "", &storage.ValidationError{Reason: "at least one video id is required"}
	}

	videoPaths := make([]string, 0, len(req.VideoIDs))
	for _, videoID := range req.VideoIDs {
		if !s.store.Exists(ctx, videoID) {
			return "", fmt.Errorf("video %s: %w", videoID, storage.ErrNotFound)
		}
		path, err := s.store.Path(ctx, videoID)
		if err != nil {
			return "", err
		}
		videoPaths = append(videoPaths, path)
	}

	var musicPath string
	if req.MusicID != "" {
		if !s.store.Exists(ctx, req.MusicID) {
			return "", fmt.Errorf("background music %s: %w", req.MusicID, storage.ErrNotFound)
		}
		path, err := s.store.Path(ctx, req.MusicID)
		if err != nil {
			return "", err
		}
		musicPath = path
	}
	volume := req.MusicVolume
	if volume <= 0 {
		volume = 0.5
	}

	if !s.admit.Admit(admission.Video) {
		return "", admission.ErrDenied
	}

	videoID, videoPath, err := s.store.AllocateID(ctx, models.MediaTypeVideo, ".mp4", req.CustomName)
	if err != nil {
		return "", err
	}
	if _, err := s.store.CreateMarker(ctx, videoID); err != nil {
		return "", err
	}

	_, err = s.queue.Submit("video-merge", func(jobCtx context.Context) error {
		return s.runMarked(jobCtx, videoID, []admission.Category{admission.Video}, func() error {
			return s.renderer.Merge(jobCtx, render.MergeRequest{
				VideoPaths:  videoPaths,
				MusicPath:   musicPath,
				MusicVolume: volume,
				OutputPath:  videoPath,
			})
		})
	})
	if err != nil {
		s.cleanupAborted(ctx, videoID)
		return "", err
	}
	return videoID, nil
}

// CaptionedVideoRequest describes a captioned still-image video job. Either
// Text is synthesized with Voice, or AudioID supplies the narration directly.
type CaptionedVideoRequest struct {
	BackgroundID string
	Text         string
	AudioID      string
	Voice        string
	Speed        float64
	Width        int
	Height       int
	CustomName   string
}

// GenerateCaptionedVideo validates the request, allocates the output id and
// schedules the full narrate-transcribe-compose pipeline
func (s *VideoService) GenerateCaptionedVideo(ctx context.Context, req CaptionedVideoRequest) (string, error) {
	if req.AudioID != "" && !s.store.Exists(ctx, req.AudioID) {
		return "", &storage.ValidationError{Reason: fmt.Sprintf("audio with id %s not found", req.AudioID)}
	}
	voice := req.Voice
	if voice == "" {
		voice = engine.DefaultVoice
	}
	lang, validVoice := engine.VoiceLanguage(voice)
	if req.AudioID == "" {
		if !validVoice {
			return "", &storage.ValidationError{Reason: fmt.Sprintf("invalid voice: %s", voice)}
		}
		if req.Text == "" {
			return "", &storage.ValidationError{Reason: "text is required when no audio id is given"}
		}
	}
	mediaType, err := s.store.MediaType(ctx, req.BackgroundID)
	if err != nil {
		return "", err
	}
	if mediaType != models.MediaTypeImage {
		return "", &storage.ValidationError{Reason: fmt.Sprintf("invalid media type: %s", mediaType)}
	}
	if !s.store.Exists(ctx, req.BackgroundID) {
		return "", fmt.Errorf("background image %s: %w", req.BackgroundID, storage.ErrNotFound)
	}
	backgroundPath, err := s.store.Path(ctx, req.BackgroundID)
	if err != nil {
		return "", err
	}

	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}
	width := req.Width
	if width <= 0 {
		width = 1080
	}
	height := req.Height
	if height <= 0 {
		height = 1920
	}

	if !s.admit.Admit(admission.TTS, admission.Video) {
		return "", admission.ErrDenied
	}

	outputID, outputPath, err := s.store.AllocateID(ctx, models.MediaTypeVideo, ".mp4", req.CustomName)
	if err != nil {
		return "", err
	}
	if _, err := s.store.CreateMarker(ctx, outputID); err != nil {
		return "", err
	}

	text := req.Text
	audioID := req.AudioID
	_, err = s.queue.Submit("tts-captioned-video", func(jobCtx context.Context) error {
		return s.runMarked(jobCtx, outputID, []admission.Category{admission.TTS, admission.Video}, func() error {
			return s.buildCaptionedVideo(jobCtx, captionedJob{
				text:           text,
				audioID:        audioID,
				voice:          voice,
				language:       lang,
				speed:          speed,
				width:          width,
				height:         height,
				backgroundPath: backgroundPath,
				outputPath:     outputPath,
			})
		})
	})
	if err != nil {
		s.cleanupAborted(ctx, outputID)
		return "", err
	}
	return outputID, nil
}

type captionedJob struct {
	text           string
	audioID        string
	voice          string
	language       string
	speed          float64
	width          int
	height         int
	backgroundPath string
	outputPath     string
}

// buildCaptionedVideo runs the pipeline: obtain narration audio, transcribe
// it into timed captions, render them into a subtitle file and compose the
// final video. Intermediate files live in the temp folder and are removed
// whether or not the pipeline succeeds.
func (s *VideoService) buildCaptionedVideo(ctx context.Context, job captionedJob) error {
	var intermediates []string
	defer func() {
		for _, id := range intermediates {
			if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
				s.logger.Warn("delete intermediate file",
					zap.String("media_id", id), zap.Error(err))
			}
		}
	}()

	audioPath := ""
	if job.audioID != "" {
		path, err := s.store.Path(ctx, job.audioID)
		if err != nil {
			return err
		}
		audioPath = path
	} else {
		ttsID, ttsPath, err := s.store.AllocateInFolder(ctx, models.MediaTypeAudio, ".wav", tempFolder, "", "")
		if err != nil {
			return err
		}
		intermediates = append(intermediates, ttsID)
		if err := s.engine.Synthesize(ctx, engine.SynthesizeRequest{
			Text:       job.text,
			Voice:      job.voice,
			Language:   job.language,
			Speed:      job.speed,
			OutputPath: ttsPath,
		}); err != nil {
			return err
		}
		audioPath = ttsPath
	}

	captions, err := s.engine.Transcribe(ctx, engine.TranscribeRequest{
		InputPath: audioPath,
		Language:  engine.TranscriptionLanguage(job.voice),
	})
	if err != nil {
		return err
	}

	subtitleID, subtitlePath, err := s.store.AllocateInFolder(ctx, models.MediaTypeTmp, ".ass", tempFolder, "", "")
	if err != nil {
		return err
	}
	intermediates = append(intermediates, subtitleID)

	segments := render.BuildSegments(captions, 1)
	if err := render.WriteASS(subtitlePath, segments, render.DefaultSubtitleStyle(job.width, job.height)); err != nil {
		return err
	}

	return s.renderer.Compose(ctx, render.ComposeRequest{
		ImagePath:    job.backgroundPath,
		AudioPath:    audioPath,
		SubtitlePath: subtitlePath,
		Width:        job.width,
		Height:       job.height,
		OutputPath:   job.outputPath,
	})
}

// runMarked settles the temp marker on every exit path, converting panics in
// the job body to errors so the marker never outlives its job
func (s *VideoService) runMarked(ctx context.Context, mediaID string, categories []admission.Category, work func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
		if err != nil {
			if markErr := s.store.FailMarker(ctx, mediaID); markErr != nil {
				s.logger.Warn("failed to mark job as failed",
					zap.String("media_id", mediaID), zap.Error(markErr))
			}
			return
		}
		err = s.store.ReleaseMarker(ctx, mediaID)
	}()
	return s.admit.Run(ctx, categories, work)
}

func (s *VideoService) cleanupAborted(ctx context.Context, mediaID string) {
	if err := s.store.ReleaseMarker(ctx, mediaID); err != nil {
		s.logger.Warn("cleanup after aborted submit",
			zap.String("media_id", mediaID), zap.Error(err))
	}
	if err := s.store.Delete(ctx, mediaID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("cleanup after aborted submit",
			zap.String("media_id", mediaID), zap.Error(err))
	}
}
