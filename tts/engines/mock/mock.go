// Package mock provides a configurable in-memory synthesis provider for
// tests and offline development.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/listenlater/listenlater/tts"
)

// Provider is a deterministic fake synthesis backend. By default it
// fabricates audio bytes sized from the text and a uniform alignment so
// both timing paths can be exercised.
type Provider struct {
	mu sync.Mutex

	// WithAlignment controls whether results carry alignment data.
	WithAlignment bool

	// BytesPerChar sizes the fabricated audio.
	BytesPerChar int

	// MsPerChar paces the fabricated alignment.
	MsPerChar int64

	// Unavailable makes Available report false.
	Unavailable bool

	// Err, when set, is returned by every Synthesize call.
	Err error

	// ErrAtCall fails the n-th Synthesize call (1-based) with Err.
	ErrAtCall int

	calls int
	texts []string
}

// New creates a mock provider with alignment enabled.
func New() *Provider {
	return &Provider{
		WithAlignment: true,
		BytesPerChar:  64,
		MsPerChar:     50,
	}
}

// Name identifies the provider.
func (p *Provider) Name() string { return "mock" }

// Available reports readiness.
func (p *Provider) Available() bool { return !p.Unavailable }

// Synthesize fabricates a deterministic result for the text.
func (p *Provider) Synthesize(_ context.Context, text, voiceID string) (*tts.SynthesisResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	p.texts = append(p.texts, text)

	if p.Err != nil && (p.ErrAtCall == 0 || p.calls == p.ErrAtCall) {
		return nil, p.Err
	}

	res := &tts.SynthesisResult{
		Audio: []byte(strings.Repeat("a", len(text)*p.BytesPerChar)),
	}
	if p.WithAlignment {
		res.Alignment = p.alignmentFor(text)
	}
	_ = voiceID
	return res, nil
}

// Voices returns a fixed test voice set.
func (p *Provider) Voices(context.Context) ([]tts.Voice, error) {
	return []tts.Voice{
		{ID: "mock-1", Name: "Mock One", Category: "test"},
		{ID: "mock-2", Name: "Mock Two", Category: "test"},
	}, nil
}

// Calls returns how many Synthesize calls the provider has served.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Texts returns the chunk texts synthesized so far, in call order.
func (p *Provider) Texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.texts))
	copy(out, p.texts)
	return out
}

// alignmentFor paces every character uniformly at MsPerChar.
func (p *Provider) alignmentFor(text string) *tts.Alignment {
	runes := []rune(text)
	a := &tts.Alignment{
		Chars:    make([]string, len(runes)),
		StartSec: make([]float64, len(runes)),
		EndSec:   make([]float64, len(runes)),
	}
	for i, r := range runes {
		a.Chars[i] = string(r)
		a.StartSec[i] = float64(int64(i)*p.MsPerChar) / 1000
		a.EndSec[i] = float64(int64(i+1)*p.MsPerChar) / 1000
	}
	return a
}

var _ tts.Provider = (*Provider)(nil)

// FailWith returns a provider that always fails with a classified error.
func FailWith(kind tts.SynthesisErrorKind) *Provider {
	p := New()
	p.Err = tts.NewSynthesisError(kind, "mock", fmt.Errorf("injected %s failure", kind))
	return p
}
