package tts

import (
	"context"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/listenlater/listenlater/tts/chunk"
)

// Orchestrator drives chunk-by-chunk synthesis: cache lookups first, then
// provider calls, word-timing extraction, and cache writes. Generation is
// sequential by index so playback can start after one chunk's synthesis
// latency while the rest keeps arriving in the background.
type Orchestrator struct {
	provider Provider
	store    ChunkStore
	limiter  *rate.Limiter
	maxChars int
	logger   *log.Logger
}

// OrchestratorConfig holds orchestrator tuning.
type OrchestratorConfig struct {
	MaxChunkChars     int     // Maximum chunk size in characters
	RequestsPerMinute float64 // Provider call budget; 0 disables limiting
}

// DefaultOrchestratorConfig returns sensible defaults.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxChunkChars:     3000,
		RequestsPerMinute: 0,
	}
}

// NewOrchestrator creates an orchestrator around an explicitly constructed
// provider and store.
func NewOrchestrator(provider Provider, store ChunkStore, cfg OrchestratorConfig) *Orchestrator {
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = DefaultOrchestratorConfig().MaxChunkChars
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), 1)
	}

	return &Orchestrator{
		provider: provider,
		store:    store,
		limiter:  limiter,
		maxChars: cfg.MaxChunkChars,
		logger:   log.WithPrefix("tts"),
	}
}

// ChunkCount returns the number of chunks the given normalized text splits
// into. Pure; clients use it to know how many chunks to expect. Splitting
// depends only on the text, never on the voice.
func (o *Orchestrator) ChunkCount(text string) int {
	return chunk.Count(text, o.maxChars)
}

// GetChunk returns the audio for one chunk, from cache when present. On a
// miss the chunk text is re-derived from the article text with the same
// deterministic split, synthesized, timed, cached, and returned. Provider
// failures are not cached and propagate with their kind intact.
func (o *Orchestrator) GetChunk(ctx context.Context, articleID, text, voiceID string, index int) (*ChunkAudio, error) {
	chunks := chunk.Split(text, o.maxChars)
	if index < 0 || index >= len(chunks) {
		return nil, ErrChunkOutOfRange
	}

	if cached, ok := o.store.Get(articleID, voiceID, index); ok {
		o.logger.Debug("chunk cache hit", "article", articleID, "voice", voiceID, "chunk", index)
		return cached, nil
	}

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	o.logger.Debug("synthesizing chunk",
		"article", articleID, "voice", voiceID, "chunk", index,
		"chars", len(chunks[index]), "provider", o.provider.Name())

	res, err := o.provider.Synthesize(ctx, chunks[index], voiceID)
	if err != nil {
		return nil, err
	}

	audio := buildChunkAudio(index, chunks[index], res)

	// Cache failures degrade to always-regenerate; they never fail the
	// request.
	if err := o.store.Put(articleID, voiceID, index, audio); err != nil {
		o.logger.Warn("chunk cache write failed", "chunk", index, "err", err)
	}

	return audio, nil
}

// Progress reports the chunk total and the cached indices for an
// article+voice pair, so a client can show "3 of 10 chunks ready" without
// re-requesting audio.
func (o *Orchestrator) Progress(articleID, voiceID, text string) Progress {
	return Progress{
		TotalChunks:      o.ChunkCount(text),
		GeneratedIndices: o.store.GeneratedIndices(articleID, voiceID),
	}
}

// GenerateAll synthesizes every chunk in index order, delivering each to
// the callback as it becomes available. It stops at the first failure or
// when ctx is canceled, so abandoning playback stops spending provider
// quota. Zero chunks is reported as ErrNothingToSynthesize.
func (o *Orchestrator) GenerateAll(ctx context.Context, articleID, text, voiceID string, deliver func(*ChunkAudio)) error {
	total := o.ChunkCount(text)
	if total == 0 {
		return ErrNothingToSynthesize
	}

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		audio, err := o.GetChunk(ctx, articleID, text, voiceID, i)
		if err != nil {
			return err
		}
		if deliver != nil {
			deliver(audio)
		}
	}

	return nil
}

// buildChunkAudio assembles a ChunkAudio from a provider result, picking
// the alignment or estimation timing path.
func buildChunkAudio(index int, text string, res *SynthesisResult) *ChunkAudio {
	var (
		timings    []WordTiming
		durationMs int64
	)

	if res.Alignment != nil {
		timings = WordTimingsFromAlignment(res.Alignment)
		if n := len(timings); n > 0 {
			durationMs = timings[n-1].EndMs
		}
	}
	if durationMs == 0 {
		durationMs = EstimateDurationMs(res.Audio)
	}
	if timings == nil {
		timings = EstimateWordTimings(text, durationMs)
	}

	return &ChunkAudio{
		ChunkIndex:  index,
		Audio:       res.Audio,
		WordTimings: timings,
		DurationMs:  durationMs,
	}
}
