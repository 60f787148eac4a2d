package tts

import (
	"errors"
	"fmt"
)

// Common errors for the synthesis and playback pipeline.
var (
	// ErrProviderUnavailable is returned when no synthesis provider is
	// ready for use.
	ErrProviderUnavailable = errors.New("synthesis provider is not available")

	// ErrNothingToSynthesize is returned when normalized text yields zero
	// chunks.
	ErrNothingToSynthesize = errors.New("no text to synthesize")

	// ErrChunkOutOfRange is returned for a chunk index outside the
	// article's chunk list.
	ErrChunkOutOfRange = errors.New("chunk index out of range")

	// ErrNoChunkLoaded is returned by playback operations that require a
	// loaded chunk.
	ErrNoChunkLoaded = errors.New("no chunk loaded")

	// ErrSequencerStopped is returned for commands issued after Stop.
	ErrSequencerStopped = errors.New("sequencer has been stopped")

	// ErrInvalidTransition is returned when a playback state transition
	// is not permitted.
	ErrInvalidTransition = errors.New("invalid playback state transition")
)

// SynthesisErrorKind classifies provider failures. The kind survives the
// whole call chain so the UI can distinguish "switch provider" from "try
// again in a moment".
type SynthesisErrorKind int

const (
	// SynthesisUnknown is an unclassified provider failure.
	SynthesisUnknown SynthesisErrorKind = iota
	// SynthesisQuotaExceeded means the provider refused for quota or
	// billing reasons. Retrying immediately will fail again.
	SynthesisQuotaExceeded
	// SynthesisTransient means a network or temporary provider fault.
	SynthesisTransient
	// SynthesisInvalidVoice means the requested voice does not exist.
	SynthesisInvalidVoice
	// SynthesisAuthFailed means the provider rejected the credentials.
	// Like quota exhaustion it will not heal mid-session, but the user
	// remedy is fixing the key, not waiting for a billing cycle.
	SynthesisAuthFailed
)

// String returns the string representation of the kind.
func (k SynthesisErrorKind) String() string {
	switch k {
	case SynthesisQuotaExceeded:
		return "quota_exceeded"
	case SynthesisTransient:
		return "transient"
	case SynthesisInvalidVoice:
		return "invalid_voice"
	case SynthesisAuthFailed:
		return "auth_failed"
	default:
		return "unknown"
	}
}

// SynthesisError is a classified provider failure.
type SynthesisError struct {
	Kind     SynthesisErrorKind
	Provider string // Provider name
	Err      error  // Underlying error
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: synthesis failed (%s): %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: synthesis failed (%s)", e.Provider, e.Kind)
}

// Unwrap returns the underlying error.
func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// NewSynthesisError creates a classified synthesis error.
func NewSynthesisError(kind SynthesisErrorKind, provider string, err error) *SynthesisError {
	return &SynthesisError{Kind: kind, Provider: provider, Err: err}
}

// SynthesisKind extracts the kind from an error chain, or SynthesisUnknown
// if the chain carries no *SynthesisError.
func SynthesisKind(err error) SynthesisErrorKind {
	var se *SynthesisError
	if errors.As(err, &se) {
		return se.Kind
	}
	return SynthesisUnknown
}

// IsQuotaExceeded reports whether err is a quota-class synthesis failure.
func IsQuotaExceeded(err error) bool {
	return SynthesisKind(err) == SynthesisQuotaExceeded
}

// IsTransient reports whether err is a transient-class synthesis failure.
func IsTransient(err error) bool {
	return SynthesisKind(err) == SynthesisTransient
}

// IsAuthFailed reports whether err is a rejected-credentials synthesis
// failure.
func IsAuthFailed(err error) bool {
	return SynthesisKind(err) == SynthesisAuthFailed
}

// EngineError is a recoverable audio engine failure isolated to one chunk.
// The Sequencer stops forward progress at the affected chunk but keeps the
// session alive so the load can be retried.
type EngineError struct {
	ChunkIndex int
	Err        error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("audio engine failed on chunk %d: %v", e.ChunkIndex, e.Err)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}
