package tts

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"zero chunk size", func(c *Config) { c.MaxChunkChars = 0 }, true},
		{"negative chunk size", func(c *Config) { c.MaxChunkChars = -5 }, true},
		{"huge chunk size", func(c *Config) { c.MaxChunkChars = 50000 }, true},
		{"negative rate limit", func(c *Config) { c.RequestsPerMinute = -1 }, true},
		{"zero skip", func(c *Config) { c.SkipSeconds = 0 }, true},
		{"negative cache", func(c *Config) { c.DiskCacheMB = -1 }, true},
		{"compression out of range", func(c *Config) { c.CompressionLevel = 23 }, true},
		{"unknown provider", func(c *Config) { c.Provider = "siri" }, true},
		{"explicit provider", func(c *Config) { c.Provider = "openai" }, false},
		{"mock provider allowed", func(c *Config) { c.Provider = "mock" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigSkip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SkipSeconds = 15
	if got := cfg.Skip(); got != 15*time.Second {
		t.Errorf("Skip() = %v, want 15s", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != "auto" {
		t.Errorf("Provider = %q, want auto", cfg.Provider)
	}
	if cfg.MaxChunkChars != 3000 {
		t.Errorf("MaxChunkChars = %d, want 3000", cfg.MaxChunkChars)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}
