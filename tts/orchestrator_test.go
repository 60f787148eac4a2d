package tts_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/listenlater/listenlater/internal/cache"
	"github.com/listenlater/listenlater/tts"
	"github.com/listenlater/listenlater/tts/engines/mock"
)

func newTestStore() *cache.Store {
	return cache.NewStore(cache.StoreConfig{MemoryBytes: 16 << 20})
}

func newTestOrchestrator(provider tts.Provider, store tts.ChunkStore, maxChars int) *tts.Orchestrator {
	return tts.NewOrchestrator(provider, store, tts.OrchestratorConfig{MaxChunkChars: maxChars})
}

func TestOrchestratorGetChunkCaches(t *testing.T) {
	provider := mock.New()
	orch := newTestOrchestrator(provider, newTestStore(), 100)
	text := "A short article that fits in a single chunk."

	first, err := orch.GetChunk(context.Background(), "art-1", text, "voice-1", 0)
	if err != nil {
		t.Fatalf("GetChunk failed: %v", err)
	}
	if first.ChunkIndex != 0 || len(first.Audio) == 0 {
		t.Fatalf("unexpected chunk: %+v", first)
	}
	if len(first.WordTimings) == 0 {
		t.Error("chunk has no word timings")
	}

	// Second request must come from cache, not the provider.
	provider.Err = errors.New("provider must not be called again")
	second, err := orch.GetChunk(context.Background(), "art-1", text, "voice-1", 0)
	if err != nil {
		t.Fatalf("cached GetChunk failed: %v", err)
	}
	if second.DurationMs != first.DurationMs || len(second.Audio) != len(first.Audio) {
		t.Error("cached chunk differs from generated chunk")
	}
	if provider.Calls() != 1 {
		t.Errorf("provider called %d times, want 1", provider.Calls())
	}
}

func TestOrchestratorCacheKeyedByVoice(t *testing.T) {
	provider := mock.New()
	orch := newTestOrchestrator(provider, newTestStore(), 100)
	text := "Same text, two voices."

	if _, err := orch.GetChunk(context.Background(), "art-1", text, "alice", 0); err != nil {
		t.Fatalf("GetChunk(alice) failed: %v", err)
	}
	if _, err := orch.GetChunk(context.Background(), "art-1", text, "bob", 0); err != nil {
		t.Fatalf("GetChunk(bob) failed: %v", err)
	}
	if provider.Calls() != 2 {
		t.Errorf("provider called %d times, want 2 (one per voice)", provider.Calls())
	}
}

func TestOrchestratorChunkOutOfRange(t *testing.T) {
	orch := newTestOrchestrator(mock.New(), newTestStore(), 100)

	_, err := orch.GetChunk(context.Background(), "art-1", "short text", "v", 5)
	if !errors.Is(err, tts.ErrChunkOutOfRange) {
		t.Errorf("GetChunk(5) = %v, want ErrChunkOutOfRange", err)
	}
	_, err = orch.GetChunk(context.Background(), "art-1", "short text", "v", -1)
	if !errors.Is(err, tts.ErrChunkOutOfRange) {
		t.Errorf("GetChunk(-1) = %v, want ErrChunkOutOfRange", err)
	}
}

// A quota failure mid-generation must keep its classification through
// the whole call chain, and the chunks generated before it stay cached.
func TestOrchestratorQuotaFailureSurvivesChain(t *testing.T) {
	provider := mock.New()
	provider.Err = tts.NewSynthesisError(tts.SynthesisQuotaExceeded, "mock", errors.New("credits exhausted"))
	provider.ErrAtCall = 3

	store := newTestStore()
	orch := newTestOrchestrator(provider, store, 60)
	// Three sentences of ~50 chars force three chunks at maxChars 60.
	text := strings.TrimSpace(strings.Repeat(strings.Repeat("w", 44)+" end. ", 3))

	var delivered []int
	err := orch.GenerateAll(context.Background(), "art-1", text, "v", func(a *tts.ChunkAudio) {
		delivered = append(delivered, a.ChunkIndex)
	})

	if !tts.IsQuotaExceeded(err) {
		t.Fatalf("error kind = %v, want quota_exceeded (err: %v)", tts.SynthesisKind(err), err)
	}
	var se *tts.SynthesisError
	if !errors.As(err, &se) || se.Provider != "mock" {
		t.Errorf("provider name lost from error chain: %v", err)
	}

	if len(delivered) != 2 {
		t.Fatalf("delivered %v, want chunks 0 and 1", delivered)
	}

	// The failure is not cached; successful chunks are.
	progress := orch.Progress("art-1", "v", text)
	if progress.TotalChunks != 3 {
		t.Errorf("TotalChunks = %d, want 3", progress.TotalChunks)
	}
	if len(progress.GeneratedIndices) != 2 {
		t.Errorf("GeneratedIndices = %v, want [0 1]", progress.GeneratedIndices)
	}

	// Resuming after the quota clears only synthesizes the missing chunk.
	provider.Err = nil
	calls := provider.Calls()
	if err := orch.GenerateAll(context.Background(), "art-1", text, "v", nil); err != nil {
		t.Fatalf("resumed GenerateAll failed: %v", err)
	}
	if got := provider.Calls() - calls; got != 1 {
		t.Errorf("resume made %d provider calls, want 1", got)
	}
}

func TestOrchestratorEstimationFallback(t *testing.T) {
	provider := mock.New()
	provider.WithAlignment = false
	orch := newTestOrchestrator(provider, newTestStore(), 200)

	audio, err := orch.GetChunk(context.Background(), "art-1", "three little words", "v", 0)
	if err != nil {
		t.Fatalf("GetChunk failed: %v", err)
	}

	if audio.DurationMs != tts.EstimateDurationMs(audio.Audio) {
		t.Errorf("DurationMs = %d, want byte-rate estimate %d",
			audio.DurationMs, tts.EstimateDurationMs(audio.Audio))
	}
	if len(audio.WordTimings) != 3 {
		t.Fatalf("got %d estimated timings, want 3", len(audio.WordTimings))
	}
	last := audio.WordTimings[2]
	if last.EndMs >= audio.DurationMs {
		t.Errorf("last word ends at %d, beyond duration %d", last.EndMs, audio.DurationMs)
	}
}

func TestOrchestratorAlignmentPath(t *testing.T) {
	provider := mock.New() // alignment on
	orch := newTestOrchestrator(provider, newTestStore(), 200)

	audio, err := orch.GetChunk(context.Background(), "art-1", "hi yo", "v", 0)
	if err != nil {
		t.Fatalf("GetChunk failed: %v", err)
	}

	// 5 chars at 50ms each: "hi" spans chars 0-1, "yo" chars 3-4.
	want := []tts.WordTiming{
		{Word: "hi", StartMs: 0, EndMs: 100},
		{Word: "yo", StartMs: 150, EndMs: 250},
	}
	if len(audio.WordTimings) != len(want) {
		t.Fatalf("got %d timings, want %d", len(audio.WordTimings), len(want))
	}
	for i := range want {
		if audio.WordTimings[i] != want[i] {
			t.Errorf("timing %d = %v, want %v", i, audio.WordTimings[i], want[i])
		}
	}
	if audio.DurationMs != 250 {
		t.Errorf("DurationMs = %d, want last word end 250", audio.DurationMs)
	}
}

func TestOrchestratorGenerateAllEmpty(t *testing.T) {
	orch := newTestOrchestrator(mock.New(), newTestStore(), 100)

	err := orch.GenerateAll(context.Background(), "art-1", "   \n  ", "v", nil)
	if !errors.Is(err, tts.ErrNothingToSynthesize) {
		t.Errorf("GenerateAll on blank text = %v, want ErrNothingToSynthesize", err)
	}
}

func TestOrchestratorGenerateAllCancellation(t *testing.T) {
	provider := mock.New()
	orch := newTestOrchestrator(provider, newTestStore(), 60)
	text := strings.TrimSpace(strings.Repeat(strings.Repeat("w", 44)+" end. ", 3))

	ctx, cancel := context.WithCancel(context.Background())
	err := orch.GenerateAll(ctx, "art-1", text, "v", func(a *tts.ChunkAudio) {
		if a.ChunkIndex == 0 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("GenerateAll = %v, want context.Canceled", err)
	}
	if provider.Calls() != 1 {
		t.Errorf("provider called %d times after cancel, want 1", provider.Calls())
	}
}
