package tts

import (
	"context"
	"time"
)

// Provider defines the contract for speech synthesis backends.
// Providers are constructed explicitly and passed in; there is no shared
// global client.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string

	// Synthesize converts chunk text to audio, optionally with
	// character-level alignment. Failures are reported as *SynthesisError
	// so callers can distinguish quota exhaustion from transient faults.
	Synthesize(ctx context.Context, text, voiceID string) (*SynthesisResult, error)

	// Voices returns the voices this provider offers.
	Voices(ctx context.Context) ([]Voice, error)

	// Available reports whether the provider is ready for use.
	Available() bool
}

// AudioEngine is the playback device abstraction the Sequencer drives.
// An engine holds at most one loaded chunk at a time.
type AudioEngine interface {
	// Load prepares a chunk's audio for playback, replacing any loaded
	// chunk. Loading resets engine-level rate state; the Sequencer
	// re-applies the playback rate after every Load.
	Load(audio *ChunkAudio) error

	// Play starts or resumes playback of the loaded chunk.
	Play() error

	// Pause halts playback keeping position.
	Pause() error

	// Stop halts playback and releases the loaded chunk.
	Stop() error

	// Seek moves the intra-chunk position.
	Seek(offset time.Duration) error

	// Position returns the intra-chunk playback position.
	Position() time.Duration

	// SetRate applies a playback speed multiplier to the loaded chunk.
	SetRate(rate float64) error

	// OnComplete registers the callback invoked when the loaded chunk
	// finishes playing naturally.
	OnComplete(fn func())

	// Close releases the underlying audio device.
	Close() error
}

// ChunkStore is the keyed cache for generated chunk audio. Entries are
// immutable once written; concurrent puts for the same key are
// last-write-wins.
type ChunkStore interface {
	// Get returns the cached audio for (article, voice, index), if any.
	Get(articleID, voiceID string, index int) (*ChunkAudio, bool)

	// Put stores the audio for (article, voice, index), replacing any
	// existing entry whole.
	Put(articleID, voiceID string, index int, audio *ChunkAudio) error

	// GeneratedIndices returns the sorted chunk indices already stored
	// for (article, voice).
	GeneratedIndices(articleID, voiceID string) []int
}

// ArticleSource supplies narration-ready article Markdown. The relational
// store behind it is out of scope here.
type ArticleSource interface {
	NormalizableText(ctx context.Context, articleID string) (string, error)
}
