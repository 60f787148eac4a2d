package engines

import (
	"context"
	"errors"
	"testing"

	"github.com/listenlater/listenlater/tts"
	"github.com/listenlater/listenlater/tts/engines/mock"
)

func TestFallbackUsesFirstProvider(t *testing.T) {
	primary := mock.New()
	secondary := mock.New()
	chain := NewFallback(primary, secondary)

	if _, err := chain.Synthesize(context.Background(), "hello", "v"); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if primary.Calls() != 1 || secondary.Calls() != 0 {
		t.Errorf("calls = %d/%d, want 1/0", primary.Calls(), secondary.Calls())
	}
}

// Quota exhaustion advances the chain permanently; later calls go
// straight to the next provider.
func TestFallbackAdvancesOnQuota(t *testing.T) {
	primary := mock.FailWith(tts.SynthesisQuotaExceeded)
	secondary := mock.New()
	chain := NewFallback(primary, secondary)

	res, err := chain.Synthesize(context.Background(), "hello", "v")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if res == nil || len(res.Audio) == 0 {
		t.Fatal("no result from the secondary provider")
	}

	if _, err := chain.Synthesize(context.Background(), "again", "v"); err != nil {
		t.Fatalf("second Synthesize failed: %v", err)
	}
	if primary.Calls() != 1 {
		t.Errorf("exhausted provider called %d times, want 1", primary.Calls())
	}
	if secondary.Calls() != 2 {
		t.Errorf("secondary called %d times, want 2", secondary.Calls())
	}
	if chain.Name() != "mock" {
		t.Errorf("Name() = %q after advance", chain.Name())
	}
}

// Rejected credentials cannot heal within a session, so they advance
// the chain just like quota exhaustion.
func TestFallbackAdvancesOnAuthFailure(t *testing.T) {
	primary := mock.FailWith(tts.SynthesisAuthFailed)
	secondary := mock.New()
	chain := NewFallback(primary, secondary)

	if _, err := chain.Synthesize(context.Background(), "hello", "v"); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if _, err := chain.Synthesize(context.Background(), "again", "v"); err != nil {
		t.Fatalf("second Synthesize failed: %v", err)
	}
	if primary.Calls() != 1 {
		t.Errorf("rejected provider called %d times, want 1", primary.Calls())
	}
	if secondary.Calls() != 2 {
		t.Errorf("secondary called %d times, want 2", secondary.Calls())
	}
}

// Transient failures are the caller's retry decision; the chain must
// not advance and the classification must survive.
func TestFallbackPropagatesTransient(t *testing.T) {
	primary := mock.FailWith(tts.SynthesisTransient)
	secondary := mock.New()
	chain := NewFallback(primary, secondary)

	_, err := chain.Synthesize(context.Background(), "hello", "v")
	if !tts.IsTransient(err) {
		t.Fatalf("error kind = %v, want transient", tts.SynthesisKind(err))
	}
	if secondary.Calls() != 0 {
		t.Error("transient failure advanced the chain")
	}

	// The same provider serves the retry.
	primary.Err = nil
	if _, err := chain.Synthesize(context.Background(), "hello", "v"); err != nil {
		t.Errorf("retry after transient failed: %v", err)
	}
	if primary.Calls() != 2 {
		t.Errorf("primary called %d times, want 2", primary.Calls())
	}
}

func TestFallbackPropagatesInvalidVoice(t *testing.T) {
	chain := NewFallback(mock.FailWith(tts.SynthesisInvalidVoice), mock.New())

	_, err := chain.Synthesize(context.Background(), "hello", "bad-voice")
	if tts.SynthesisKind(err) != tts.SynthesisInvalidVoice {
		t.Errorf("error kind = %v, want invalid_voice", tts.SynthesisKind(err))
	}
}

func TestFallbackSkipsUnavailable(t *testing.T) {
	down := mock.New()
	down.Unavailable = true
	up := mock.New()
	chain := NewFallback(down, up)

	if _, err := chain.Synthesize(context.Background(), "hello", "v"); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if down.Calls() != 0 || up.Calls() != 1 {
		t.Errorf("calls = %d/%d, want 0/1", down.Calls(), up.Calls())
	}
}

func TestFallbackExhausted(t *testing.T) {
	primary := mock.FailWith(tts.SynthesisQuotaExceeded)
	chain := NewFallback(primary)

	_, err := chain.Synthesize(context.Background(), "hello", "v")
	if !tts.IsQuotaExceeded(err) {
		t.Errorf("error kind = %v, want quota_exceeded from the last provider", tts.SynthesisKind(err))
	}
	if chain.Available() {
		t.Error("exhausted chain reports available")
	}

	chain.Reset()
	if !chain.Available() {
		t.Error("Reset did not restore the chain")
	}
}

func TestFallbackNoProviders(t *testing.T) {
	chain := NewFallback()

	_, err := chain.Synthesize(context.Background(), "hello", "v")
	if !errors.Is(err, tts.ErrProviderUnavailable) {
		t.Errorf("Synthesize = %v, want ErrProviderUnavailable", err)
	}
	if _, err := chain.Voices(context.Background()); !errors.Is(err, tts.ErrProviderUnavailable) {
		t.Errorf("Voices = %v, want ErrProviderUnavailable", err)
	}
}

func TestBuildNamedProviders(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
	}{
		{"elevenlabs", "elevenlabs"},
		{"openai", "openai"},
		{"local", "local"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := tts.DefaultConfig()
			cfg.Provider = tt.provider

			p, err := Build(cfg)
			if err != nil {
				t.Fatalf("Build(%q) failed: %v", tt.provider, err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.wantName)
			}
		})
	}

	cfg := tts.DefaultConfig()
	cfg.Provider = "bogus"
	if _, err := Build(cfg); err == nil {
		t.Error("Build accepted an unknown provider")
	}
}
