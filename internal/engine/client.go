// Package engine talks to the local inference sidecar that hosts the speech
// models. The sidecar shares the media filesystem with this process, so
// requests carry output paths and responses reference files instead of
// streaming payloads.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Caption is one timed span of transcribed speech
type Caption struct {
	Text    string  `json:"text"`
	StartTS float64 `json:"start_ts"`
	EndTS   float64 `json:"end_ts"`
}

// SynthesizeRequest asks the sidecar to render speech into OutputPath
type SynthesizeRequest struct {
	Text       string  `json:"text"`
	Voice      string  `json:"voice"`
	Language   string  `json:"language"`
	Speed      float64 `json:"speed"`
	OutputPath string  `json:"output_path"`
}

// CloneVoiceRequest asks the sidecar to synthesize speech that imitates the
// speaker in ReferencePath
type CloneVoiceRequest struct {
	Text          string  `json:"text"`
	ReferencePath string  `json:"reference_path"`
	Exaggeration  float64 `json:"exaggeration"`
	CFGWeight     float64 `json:"cfg_weight"`
	Temperature   float64 `json:"temperature"`
	OutputPath    string  `json:"output_path"`
}

// TranscribeRequest asks the sidecar to produce word-level captions for the
// audio file at InputPath
type TranscribeRequest struct {
	InputPath string `json:"input_path"`
	Language  string `json:"language"`
}

type transcribeResponse struct {
	Captions []Caption `json:"captions"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Client is an HTTP client for the inference sidecar
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a sidecar client. Inference calls are slow; timeout
// should allow for full model runs, not request round-trips.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Synthesize renders text to speech with a catalog voice. The sidecar writes
// the result to req.OutputPath.
func (c *Client) Synthesize(ctx context.Context, req SynthesizeRequest) error {
	return c.post(ctx, "/tts/kokoro", req, nil)
}

// CloneVoice renders text to speech imitating a reference sample
func (c *Client) CloneVoice(ctx context.Context, req CloneVoiceRequest) error {
	return c.post(ctx, "/tts/chatterbox", req, nil)
}

// Transcribe runs speech recognition and returns timed captions
func (c *Client) Transcribe(ctx context.Context, req TranscribeRequest) ([]Caption, error) {
	var resp transcribeResponse
	if err := c.post(ctx, "/stt/whisper", req, &resp); err != nil {
		return nil, err
	}
	return resp.Captions, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("inference call %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("inference call finished",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var errResp errorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Detail != "" {
			return fmt.Errorf("inference call %s: %s", path, errResp.Detail)
		}
		return fmt.Errorf("inference call %s: status %d", path, resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode inference response: %w", err)
	}
	return nil
}
