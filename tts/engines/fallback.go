package engines

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/listenlater/listenlater/tts"
	"github.com/listenlater/listenlater/tts/engines/mock"
)

// Fallback chains providers in preference order with an explicit selection
// policy above the backends: quota exhaustion or rejected credentials on
// the active provider move permanently to the next one, transient errors
// propagate for the caller to retry, and an unavailable provider is
// skipped outright. Individual backends stay policy-free.
type Fallback struct {
	providers []tts.Provider
	active    int
	mu        sync.Mutex
	logger    *log.Logger
}

// NewFallback creates a fallback chain over the given providers, tried in
// order.
func NewFallback(providers ...tts.Provider) *Fallback {
	return &Fallback{
		providers: providers,
		logger:    log.WithPrefix("fallback"),
	}
}

// Name identifies the active provider.
func (f *Fallback) Name() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p := f.activeProvider(); p != nil {
		return p.Name()
	}
	return "fallback"
}

// Available reports whether any provider in the chain is usable.
func (f *Fallback) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.providers[f.active:] {
		if p.Available() {
			return true
		}
	}
	return false
}

// Synthesize delegates to the active provider, advancing down the chain
// on quota exhaustion or rejected credentials.
func (f *Fallback) Synthesize(ctx context.Context, text, voiceID string) (*tts.SynthesisResult, error) {
	for {
		f.mu.Lock()
		provider := f.activeProvider()
		f.mu.Unlock()

		if provider == nil {
			return nil, tts.ErrProviderUnavailable
		}

		res, err := provider.Synthesize(ctx, text, voiceID)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		if tts.IsQuotaExceeded(err) || tts.IsAuthFailed(err) {
			f.mu.Lock()
			if f.activeProvider() == provider {
				f.logger.Warn("provider unusable, switching",
					"from", provider.Name(), "kind", tts.SynthesisKind(err))
				f.active++
			}
			more := f.activeProvider() != nil
			f.mu.Unlock()
			if more {
				continue
			}
			return nil, err
		}

		// Transient, invalid-voice, and unknown failures are the
		// caller's decision, with the kind intact.
		return nil, err
	}
}

// Voices lists the active provider's voices.
func (f *Fallback) Voices(ctx context.Context) ([]tts.Voice, error) {
	f.mu.Lock()
	provider := f.activeProvider()
	f.mu.Unlock()

	if provider == nil {
		return nil, tts.ErrProviderUnavailable
	}
	return provider.Voices(ctx)
}

// Reset returns selection to the front of the chain.
func (f *Fallback) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = 0
}

// activeProvider returns the first usable provider at or after the active
// position. Callers must hold the lock.
func (f *Fallback) activeProvider() tts.Provider {
	for i := f.active; i < len(f.providers); i++ {
		if f.providers[i].Available() {
			return f.providers[i]
		}
	}
	return nil
}

var _ tts.Provider = (*Fallback)(nil)

// ErrNoProviders is returned by Build when nothing is configured.
var ErrNoProviders = errors.New("no synthesis providers configured")

// Build constructs the provider named by cfg.Provider, or the full
// fallback chain for "auto".
func Build(cfg tts.Config) (tts.Provider, error) {
	switch cfg.Provider {
	case "elevenlabs":
		return NewElevenLabs(cfg.ElevenLabs), nil
	case "openai":
		return NewOpenAI(cfg.OpenAI), nil
	case "local":
		return NewLocal(cfg.Local), nil
	case "mock":
		// Offline development without provider credentials.
		return mock.New(), nil
	case "auto":
		chain := NewFallback(
			NewElevenLabs(cfg.ElevenLabs),
			NewOpenAI(cfg.OpenAI),
			NewLocal(cfg.Local),
		)
		if !chain.Available() {
			return nil, ErrNoProviders
		}
		return chain, nil
	default:
		return nil, errors.New("unknown provider " + cfg.Provider)
	}
}
