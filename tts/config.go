package tts

import (
	"errors"
	"fmt"
	"time"
)

// Config holds settings for the synthesis and playback pipeline.
type Config struct {
	// Provider selects the synthesis backend: "elevenlabs", "openai",
	// "local", or "auto" for fallback selection.
	Provider string `env:"LISTENLATER_PROVIDER"`

	// VoiceID is the provider voice used for narration.
	VoiceID string `env:"LISTENLATER_VOICE"`

	// MaxChunkChars bounds chunk size; provider limits typically sit
	// between 1000 and 4500 characters.
	MaxChunkChars int `env:"LISTENLATER_MAX_CHUNK_CHARS"`

	// RequestsPerMinute caps synthesis calls; 0 disables limiting.
	RequestsPerMinute float64 `env:"LISTENLATER_REQUESTS_PER_MINUTE"`

	// SkipSeconds is the skip-forward/backward distance.
	SkipSeconds int `env:"LISTENLATER_SKIP_SECONDS"`

	// Cache settings.
	CacheDir         string `env:"LISTENLATER_CACHE_DIR"`
	MemoryCacheMB    int    `env:"LISTENLATER_MEMORY_CACHE_MB"`
	DiskCacheMB      int    `env:"LISTENLATER_DISK_CACHE_MB"`
	CompressionLevel int    `env:"LISTENLATER_COMPRESSION_LEVEL"`

	// Provider credentials and knobs.
	ElevenLabs ElevenLabsConfig
	OpenAI     OpenAIConfig
	Local      LocalConfig
}

// ElevenLabsConfig configures the ElevenLabs provider.
type ElevenLabsConfig struct {
	APIKey  string `env:"ELEVENLABS_API_KEY"`
	ModelID string `env:"ELEVENLABS_MODEL_ID"`
	BaseURL string `env:"ELEVENLABS_BASE_URL"`
}

// OpenAIConfig configures the OpenAI speech provider.
type OpenAIConfig struct {
	APIKey string `env:"OPENAI_API_KEY"`
	Model  string `env:"LISTENLATER_OPENAI_TTS_MODEL"`
}

// LocalConfig configures the offline subprocess engine.
type LocalConfig struct {
	Binary    string `env:"LISTENLATER_LOCAL_BINARY"`
	ModelPath string `env:"LISTENLATER_LOCAL_MODEL"`
	// WordsPerMinute drives duration estimation for the offline engine,
	// which reports no timing data.
	WordsPerMinute int `env:"LISTENLATER_LOCAL_WPM"`
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Provider:          "auto",
		MaxChunkChars:     3000,
		RequestsPerMinute: 0,
		SkipSeconds:       10,
		MemoryCacheMB:     100,
		DiskCacheMB:       1024,
		CompressionLevel:  3,
		ElevenLabs: ElevenLabsConfig{
			ModelID: "eleven_multilingual_v2",
		},
		OpenAI: OpenAIConfig{
			Model: "tts-1",
		},
		Local: LocalConfig{
			Binary:         "piper",
			WordsPerMinute: 150,
		},
	}
}

// Validate checks the configuration for contract violations.
func (c Config) Validate() error {
	if c.MaxChunkChars <= 0 {
		return fmt.Errorf("max chunk chars must be positive, got %d", c.MaxChunkChars)
	}
	if c.MaxChunkChars > 10000 {
		return fmt.Errorf("max chunk chars %d exceeds any provider limit", c.MaxChunkChars)
	}
	if c.RequestsPerMinute < 0 {
		return errors.New("requests per minute cannot be negative")
	}
	if c.SkipSeconds <= 0 {
		return errors.New("skip seconds must be positive")
	}
	if c.MemoryCacheMB < 0 || c.DiskCacheMB < 0 {
		return errors.New("cache sizes cannot be negative")
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 22 {
		return fmt.Errorf("compression level %d out of range 0-22", c.CompressionLevel)
	}
	switch c.Provider {
	case "auto", "elevenlabs", "openai", "local", "mock":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	return nil
}

// Skip returns the configured skip distance.
func (c Config) Skip() time.Duration {
	return time.Duration(c.SkipSeconds) * time.Second
}
