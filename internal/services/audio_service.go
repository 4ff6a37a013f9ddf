package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/nocodemedia/media-server/internal/admission"
	"github.com/nocodemedia/media-server/internal/engine"
	"github.com/nocodemedia/media-server/internal/jobs"
	"github.com/nocodemedia/media-server/internal/models"
	"github.com/nocodemedia/media-server/internal/storage"
)

// AudioService handles business logic for speech synthesis
type AudioService struct {
	store  *storage.Store
	engine InferenceEngine
	admit  *admission.Controller
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAudioService creates a new audio service
func NewAudioService(store *storage.Store, eng InferenceEngine, admit *admission.Controller, queue *jobs.Queue, logger *zap.Logger) *AudioService {
	return &AudioService{
		store:  store,
		engine: eng,
		admit:  admit,
		queue:  queue,
		logger: logger,
	}
}

// Languages returns the supported synthesis languages
func (s *AudioService) Languages() []string {
	return engine.Languages()
}

// Voices returns the catalog voices for a language, or all voices when lang
// is empty
func (s *AudioService) Voices(lang string) []string {
	return engine.Voices(lang)
}

// UploadSample stores an uploaded voice-cloning reference sample in the
// scratch bucket and returns its media id
func (s *AudioService) UploadSample(ctx context.Context, r io.Reader, ext string) (string, error) {
	return s.store.Upload(ctx, models.MediaTypeTmp, r, ext, "")
}

// KokoroRequest describes a catalog-voice synthesis job
type KokoroRequest struct {
	Text       string
	Voice      string
	Speed      float64
	CustomName string
}

// GenerateKokoro validates the request, allocates the output id and schedules
// the synthesis job. The returned id is immediately usable for status polling;
// the audio file appears when the job finishes.
func (s *AudioService) GenerateKokoro(ctx context.Context, req KokoroRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", &storage.ValidationError{Reason: "text is required"}
	}
	voice := req.Voice
	if voice == "" {
		voice = engine.DefaultVoice
	}
	lang, ok := engine.VoiceLanguage(voice)
	if !ok {
		return "", &storage.ValidationError{Reason: fmt.Sprintf("invalid voice: %s", voice)}
	}
	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}

	if !s.admit.Admit(admission.TTS) {
		return "", admission.ErrDenied
	}

	audioID, audioPath, err := s.store.AllocateID(ctx, models.MediaTypeAudio, ".wav", req.CustomName)
	if err != nil {
		return "", err
	}
	if _, err := s.store.CreateMarker(ctx, audioID); err != nil {
		return "", err
	}

	text := req.Text
	_, err = s.queue.Submit("tts-kokoro", func(jobCtx context.Context) error {
		return s.runMarked(jobCtx, audioID, []admission.Category{admission.TTS}, func() error {
			return s.engine.Synthesize(jobCtx, engine.SynthesizeRequest{
				Text:       text,
				Voice:      voice,
				Language:   lang,
				Speed:      speed,
				OutputPath: audioPath,
			})
		})
	})
	if err != nil {
		s.cleanupAborted(ctx, audioID)
		return "", err
	}
	return audioID, nil
}

// ChatterboxRequest describes a voice-cloning synthesis job. SampleID is
// optional; without it the model uses its built-in voice.
type ChatterboxRequest struct {
	Text         string
	SampleID     string
	Exaggeration float64
	CFGWeight    float64
	Temperature  float64
	CustomName   string
}

// GenerateChatterbox validates the request, allocates the output id and
// schedules the cloning job
func (s *AudioService) GenerateChatterbox(ctx context.Context, req ChatterboxRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", &storage.ValidationError{Reason: "text is required"}
	}

	var samplePath string
	if req.SampleID != "" {
		path, err := s.store.Path(ctx, req.SampleID)
		if err != nil {
			return "", fmt.Errorf("sample audio %s: %w", req.SampleID, err)
		}
		if !s.store.Exists(ctx, req.SampleID) {
			return "", fmt.Errorf("sample audio %s: %w", req.SampleID, storage.ErrNotFound)
		}
		samplePath = path
	}

	exaggeration := req.Exaggeration
	if exaggeration <= 0 {
		exaggeration = 0.5
	}
	cfgWeight := req.CFGWeight
	if cfgWeight <= 0 {
		cfgWeight = 0.5
	}
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = 0.8
	}

	if !s.admit.Admit(admission.TTS) {
		return "", admission.ErrDenied
	}

	audioID, audioPath, err := s.store.AllocateID(ctx, models.MediaTypeAudio, ".wav", req.CustomName)
	if err != nil {
		return "", err
	}
	if _, err := s.store.CreateMarker(ctx, audioID); err != nil {
		return "", err
	}

	text := req.Text
	_, err = s.queue.Submit("tts-chatterbox", func(jobCtx context.Context) error {
		return s.runMarked(jobCtx, audioID, []admission.Category{admission.TTS}, func() error {
			return s.engine.CloneVoice(jobCtx, engine.CloneVoiceRequest{
				Text:          text,
				ReferencePath: samplePath,
				Exaggeration:  exaggeration,
				CFGWeight:     cfgWeight,
				Temperature:   temperature,
				OutputPath:    audioPath,
			})
		})
	})
	if err != nil {
		s.cleanupAborted(ctx, audioID)
		return "", err
	}
	return audioID, nil
}

// runMarked runs work under admission control and settles the temp marker on
// every exit path: released on success, failed on error or panic. Panics are
// converted to errors here so the marker never outlives its job.
func (s *AudioService) runMarked(ctx context.Context, mediaID string, categories []admission.Category, work func() error) (err error) {
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

// cleanupAborted removes the marker and allocation for a job that was never
// scheduled
func (s *AudioService) cleanupAborted(ctx context.Context, mediaID string) {
	if err := s.store.ReleaseMarker(ctx, mediaID); err != nil {
		s.logger.Warn("cleanup after aborted submit",
			zap.String("media_id", mediaID), zap.Error(err))
	}
	if err := s.store.Delete(ctx, mediaID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("cleanup after aborted submit",
			zap.String("media_id", mediaID), zap.Error(err))
	}
}
