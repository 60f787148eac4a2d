package tts

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadConfig builds the pipeline configuration: defaults, then values from
// the Viper config file, then environment overrides.
func LoadConfig() (Config, error) {
	cfg := loadFromViper()

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFromViper() Config {
	cfg := DefaultConfig()

	if viper.IsSet("tts.provider") {
		cfg.Provider = viper.GetString("tts.provider")
	}
	if viper.IsSet("tts.voice") {
		cfg.VoiceID = viper.GetString("tts.voice")
	}
	if viper.IsSet("tts.max_chunk_chars") {
		cfg.MaxChunkChars = viper.GetInt("tts.max_chunk_chars")
	}
	if viper.IsSet("tts.requests_per_minute") {
		cfg.RequestsPerMinute = viper.GetFloat64("tts.requests_per_minute")
	}
	if viper.IsSet("tts.skip_seconds") {
		cfg.SkipSeconds = viper.GetInt("tts.skip_seconds")
	}

	if viper.IsSet("cache.dir") {
		cfg.CacheDir = viper.GetString("cache.dir")
	}
	if viper.IsSet("cache.memory_mb") {
		cfg.MemoryCacheMB = viper.GetInt("cache.memory_mb")
	}
	if viper.IsSet("cache.disk_mb") {
		cfg.DiskCacheMB = viper.GetInt("cache.disk_mb")
	}
	if viper.IsSet("cache.compression_level") {
		cfg.CompressionLevel = viper.GetInt("cache.compression_level")
	}

	if viper.IsSet("elevenlabs.api_key") {
		cfg.ElevenLabs.APIKey = viper.GetString("elevenlabs.api_key")
	}
	if viper.IsSet("elevenlabs.model_id") {
		cfg.ElevenLabs.ModelID = viper.GetString("elevenlabs.model_id")
	}
	if viper.IsSet("elevenlabs.base_url") {
		cfg.ElevenLabs.BaseURL = viper.GetString("elevenlabs.base_url")
	}

	if viper.IsSet("openai.api_key") {
		cfg.OpenAI.APIKey = viper.GetString("openai.api_key")
	}
	if viper.IsSet("openai.model") {
		cfg.OpenAI.Model = viper.GetString("openai.model")
	}

	if viper.IsSet("local.binary") {
		cfg.Local.Binary = viper.GetString("local.binary")
	}
	if viper.IsSet("local.model_path") {
		cfg.Local.ModelPath = viper.GetString("local.model_path")
	}
	if viper.IsSet("local.words_per_minute") {
		cfg.Local.WordsPerMinute = viper.GetInt("local.words_per_minute")
	}

	return cfg
}
