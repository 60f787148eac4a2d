// Package tts provides chunked speech synthesis and gapless sequential
// playback for listenlater articles.
package tts

import "fmt"

// WordTiming is the derived start/end time for a single spoken word.
// Times are chunk-relative unless explicitly offset onto the global
// timeline by the Sequencer.
type WordTiming struct {
	Word    string // The word as spoken
	StartMs int64  // Start time in milliseconds
	EndMs   int64  // End time in milliseconds
}

// Chunk is a bounded-length slice of narration text synthesized as one
// independent audio unit. Character offsets are derivable by re-splitting
// the normalized text, so they are not stored.
type Chunk struct {
	Index int    // 0-based, dense, no gaps
	Text  string // Trimmed chunk text
}

// ChunkAudio is the synthesis result for one chunk.
type ChunkAudio struct {
	ChunkIndex  int          // Index of the chunk this audio belongs to
	Audio       []byte       // Opaque audio bytes, passed through unmodified
	WordTimings []WordTiming // Chunk-relative word timings
	DurationMs  int64        // Provider-reported or estimated duration
}

// Alignment is provider-supplied character-level timing data. The three
// slices are parallel: Chars[i] spans [StartSec[i], EndSec[i]].
type Alignment struct {
	Chars    []string
	StartSec []float64
	EndSec   []float64
}

// SynthesisResult is the raw output of a provider call. A nil Alignment
// means the provider gave no timing data and word timings must be
// estimated.
type SynthesisResult struct {
	Audio     []byte
	Alignment *Alignment
}

// Voice represents a provider voice.
type Voice struct {
	ID         string // Provider voice identifier
	Name       string // Human-readable name
	PreviewURL string // Optional sample URL
	Category   string // Optional provider category
}

// Progress reports how much of an article's audio has been generated for
// one voice.
type Progress struct {
	TotalChunks      int   // Chunk count for the article text
	GeneratedIndices []int // Sorted indices already present in the cache
}

// Status is the Sequencer's UI-facing observable state.
type Status struct {
	State            SequencerState
	IsPlaying        bool
	PositionMs       int64
	DurationMs       int64 // Sum of known chunk durations; grows as chunks arrive
	CurrentWordIndex int   // Index into the global word sequence, -1 if none
	ChunksLoaded     int
	TotalChunks      int // -1 while unknown
	IsWaiting        bool
	PlaybackRate     float64
}

// mp3BytesPerMs approximates the byte rate of the compressed speech audio
// providers return (roughly 128 kbit/s MPEG audio). Used only when a
// provider reports no duration. Revisit if the provider codec or bitrate
// changes.
const mp3BytesPerMs = 16

// EstimateDurationMs estimates audio duration from compressed byte size.
func EstimateDurationMs(audio []byte) int64 {
	if len(audio) == 0 {
		return 0
	}
	return int64(len(audio)) / mp3BytesPerMs
}

func (w WordTiming) String() string {
	return fmt.Sprintf("%q[%d-%dms]", w.Word, w.StartMs, w.EndMs)
}
