package services

import (
	"context"

	"github.com/nocodemedia/media-server/internal/engine"
	"github.com/nocodemedia/media-server/internal/render"
)

// InferenceEngine defines the speech model operations the services need
type InferenceEngine interface {
	Synthesize(ctx context.Context, req engine.SynthesizeRequest) error
	CloneVoice(ctx context.Context, req engine.CloneVoiceRequest) error
	Transcribe(ctx context.Context, req engine.TranscribeRequest) ([]engine.Caption, error)
}

// VideoRenderer defines the video assembly operations the services need
type VideoRenderer interface {
	Merge(ctx context.Context, req render.MergeRequest) error
	Compose(ctx context.Context, req render.ComposeRequest) error
}
