// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Storage   StorageConfig
	Server    ServerConfig
	Logging   LoggingConfig
	CORS      CORSConfig
	Jobs      JobsConfig
	Inference InferenceConfig
	Render    RenderConfig
}

// StorageConfig holds media storage settings
type StorageConfig struct {
	Path string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port           int
	MaxRequestSize int64
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// JobsConfig holds background job and admission settings
type JobsConfig struct {
	Workers            int
	MaxConcurrentTTS   int
	MaxConcurrentVideo int
	MaxConcurrentHeavy int
}

// InferenceConfig holds inference sidecar settings
type InferenceConfig struct {
	URL     string
	Timeout time.Duration
}

// RenderConfig holds video rendering settings
type RenderConfig struct {
	FFmpegPath string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}

	storagePath := os.Getenv("STORAGE_PATH")
	if storagePath == "" {
		return nil, fmt.Errorf("STORAGE_PATH is required")
	}
	cfg.Storage.Path = storagePath

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.Server.Port = serverPort

	maxRequestSize, err := intEnv("MAX_REQUEST_SIZE_MB", 100)
	if err != nil {
		return nil, err
	}
	cfg.Server.MaxRequestSize = int64(maxRequestSize) * 1024 * 1024

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info" // default level
	}
	cfg.Logging.Level = logLevel

	cfg.CORS.AllowedOrigins = originsEnv("CORS_ALLOWED_ORIGINS")

	if cfg.Jobs.Workers, err = intEnv("JOB_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.Jobs.MaxConcurrentTTS, err = intEnv("MAX_CONCURRENT_TTS", 2); err != nil {
		return nil, err
	}
	if cfg.Jobs.MaxConcurrentVideo, err = intEnv("MAX_CONCURRENT_VIDEO", 1); err != nil {
		return nil, err
	}
	if cfg.Jobs.MaxConcurrentHeavy, err = intEnv("MAX_CONCURRENT_HEAVY", 3); err != nil {
		return nil, err
	}

	inferenceURL := os.Getenv("INFERENCE_URL")
	if inferenceURL == "" {
		inferenceURL = "http://localhost:8001"
	}
	cfg.Inference.URL = strings.TrimRight(inferenceURL, "/")

	inferenceTimeoutStr := os.Getenv("INFERENCE_TIMEOUT")
	if inferenceTimeoutStr == "" {
		inferenceTimeoutStr = "10m"
	}
	inferenceTimeout, err := time.ParseDuration(inferenceTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid INFERENCE_TIMEOUT: %w", err)
	}
	cfg.Inference.Timeout = inferenceTimeout

	ffmpegPath := os.Getenv("FFMPEG_PATH")
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	cfg.Render.FFmpegPath = ffmpegPath

	return cfg, nil
}

// intEnv reads an integer environment variable with a default
func intEnv(name string, defaultValue int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return value, nil
}

// originsEnv parses a comma-separated origin list, defaulting to allow all
func originsEnv(name string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		// Default to allow all origins if not specified (for development)
		return []string{"*"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, origin := range parts {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
