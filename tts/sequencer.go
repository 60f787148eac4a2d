package tts

import (
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultPlaybackRates is the speed cycle applied by CyclePlaybackRate.
var DefaultPlaybackRates = []float64{1.0, 1.2, 1.5, 1.7, 2.0}

// DefaultSkip is the fixed skip distance for SkipForward/SkipBackward.
const DefaultSkip = 10 * time.Second

// Sequencer plays chunk audio in index order as one continuous timeline.
// It owns the playback timeline and the loaded engine handle exclusively.
// Chunks may arrive while earlier ones are already playing; each arriving
// chunk's word timings are offset by the cumulative duration of all prior
// chunks so the UI sees a single global (position, duration, word) view.
//
// The "next chunk not ready" stall is an explicit state (StateWaiting)
// left by the chunk-arrival event, not by polling. The sequencer has no
// timeout for a chunk that never arrives; surfacing that is the caller's
// job.
type Sequencer struct {
	engine  AudioEngine
	machine *stateMachine
	logger  *log.Logger

	byIndex map[int]*ChunkAudio

	// Derived timeline over the dense chunk prefix 0..contiguous-1.
	// Offsets for chunk i depend on every prior chunk's duration, so
	// these are recomputed from scratch on each arrival.
	contiguous int
	offsets    []int64
	totalKnown int64
	words      []WordTiming

	totalChunks int // -1 while unknown
	current     int // loaded chunk index, -1 if none

	rates   []float64
	rateIdx int
	skip    time.Duration

	lastErr error

	onStateChange func(SequencerState)
	onError       func(error)

	stopped bool

	mu sync.Mutex
}

// NewSequencer creates a sequencer around the given engine. totalChunks is
// the expected chunk count, or -1 if not yet known.
func NewSequencer(engine AudioEngine, totalChunks int) *Sequencer {
	s := &Sequencer{
		engine:      engine,
		machine:     newStateMachine(),
		logger:      log.WithPrefix("sequencer"),
		byIndex:     make(map[int]*ChunkAudio),
		totalChunks: totalChunks,
		current:     -1,
		rates:       DefaultPlaybackRates,
		skip:        DefaultSkip,
	}
	return s
}

// OnStateChange registers a callback invoked on every state transition.
// The callback runs with the sequencer locked and must not call back in.
func (s *Sequencer) OnStateChange(fn func(SequencerState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = fn
}

// OnError registers a callback for recoverable playback errors.
func (s *Sequencer) OnError(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// Start begins a playback session: the sequencer enters Priming and plays
// as soon as chunk 0 arrives.
func (s *Sequencer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSequencerStopped
	}
	if !s.transition(StatePriming) {
		return ErrInvalidTransition
	}
	s.engine.OnComplete(s.handleChunkComplete)
	return nil
}

// AddChunk makes a generated chunk available for playback. Arrival order
// does not matter; chunks are kept sorted by index and only the dense
// prefix starting at 0 joins the timeline. Arrivals that unblock Priming
// or Waiting start playback immediately.
func (s *Sequencer) AddChunk(audio *ChunkAudio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSequencerStopped
	}
	if audio == nil || audio.ChunkIndex < 0 {
		return ErrChunkOutOfRange
	}
	if s.totalChunks >= 0 && audio.ChunkIndex >= s.totalChunks {
		return ErrChunkOutOfRange
	}

	s.byIndex[audio.ChunkIndex] = audio
	s.recomputeTimeline()
	s.logger.Debug("chunk added", "chunk", audio.ChunkIndex,
		"contiguous", s.contiguous, "known_ms", s.totalKnown)

	s.resumeIfUnblocked()
	return nil
}

// SetTotalChunks informs the sequencer how many chunks to expect. A
// sequencer parked in Waiting past the final chunk completes immediately.
func (s *Sequencer) SetTotalChunks(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalChunks = n
	if s.machine.state() == StateWaiting && n >= 0 && s.current+1 >= n {
		s.transition(StateComplete)
	}
}

// SetSkip overrides the skip distance for SkipForward/SkipBackward.
func (s *Sequencer) SetSkip(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d > 0 {
		s.skip = d
	}
}

// Play starts or resumes playback. While Waiting it is a no-op: the next
// chunk is not loaded, so there is nothing to play yet.
func (s *Sequencer) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSequencerStopped
	}

	switch s.machine.state() {
	case StateWaiting, StatePriming:
		return nil
	case StatePaused:
		if s.current < 0 {
			// Paused before any chunk was loaded; go back to waiting for
			// chunk 0. Arrival starts playback.
			s.transition(StatePriming)
			s.resumeIfUnblocked()
			return nil
		}
		if err := s.engine.Play(); err != nil {
			return err
		}
		s.transition(StatePlaying)
		return nil
	case StateComplete:
		return s.restartLocked()
	case StatePlaying:
		return nil
	default:
		return ErrNoChunkLoaded
	}
}

// Pause stops the engine and cancels any pending Waiting state.
func (s *Sequencer) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSequencerStopped
	}

	switch s.machine.state() {
	case StatePlaying:
		if err := s.engine.Pause(); err != nil {
			return err
		}
		s.transition(StatePaused)
	case StateWaiting, StatePriming:
		s.transition(StatePaused)
	}
	return nil
}

// Seek moves the global playback position, crossing chunk boundaries as
// needed and preserving the play/pause state.
func (s *Sequencer) Seek(targetMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSequencerStopped
	}
	return s.seekLocked(targetMs)
}

// SkipForward seeks ahead by the fixed skip distance.
func (s *Sequencer) SkipForward() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSequencerStopped
	}
	return s.seekLocked(s.positionLocked() + s.skip.Milliseconds())
}

// SkipBackward seeks back by the fixed skip distance.
func (s *Sequencer) SkipBackward() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSequencerStopped
	}
	return s.seekLocked(s.positionLocked() - s.skip.Milliseconds())
}

// CyclePlaybackRate advances to the next speed multiplier, wrapping after
// the last, and applies it to the engine immediately. The rate is
// re-applied on every chunk load because loading a fresh audio handle
// resets engine rate state.
func (s *Sequencer) CyclePlaybackRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rateIdx = (s.rateIdx + 1) % len(s.rates)
	rate := s.rates[s.rateIdx]
	if s.current >= 0 {
		if err := s.engine.SetRate(rate); err != nil {
			s.logger.Warn("set rate failed", "rate", rate, "err", err)
		}
	}
	return rate
}

// RetryChunk retries the pending chunk load after a recoverable engine
// failure. Harmless when nothing is pending.
func (s *Sequencer) RetryChunk() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSequencerStopped
	}
	s.lastErr = nil
	s.resumeIfUnblocked()
	return s.lastErr
}

// Stop ends the playback session: the engine is halted and the timeline is
// destroyed. The sequencer cannot be reused afterwards; generation
// cancellation and engine Close are the session owner's responsibility.
func (s *Sequencer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	err := s.engine.Stop()
	s.byIndex = make(map[int]*ChunkAudio)
	s.contiguous = 0
	s.offsets = nil
	s.words = nil
	s.totalKnown = 0
	s.current = -1
	s.transition(StateIdle)
	return err
}

// State returns the current playback state.
func (s *Sequencer) State() SequencerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.state()
}

// LastError returns the most recent recoverable playback error.
func (s *Sequencer) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Words returns the word timings offset onto the global timeline, covering
// every chunk that has joined it.
func (s *Sequencer) Words() []WordTiming {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]WordTiming, len(s.words))
	copy(out, s.words)
	return out
}

// Snapshot returns the UI-facing observable state.
func (s *Sequencer) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.machine.state()
	pos := s.positionLocked()
	return Status{
		State:            state,
		IsPlaying:        state == StatePlaying,
		PositionMs:       pos,
		DurationMs:       s.totalKnown,
		CurrentWordIndex: s.wordAtLocked(pos),
		ChunksLoaded:     s.contiguous,
		TotalChunks:      s.totalChunks,
		IsWaiting:        state == StateWaiting,
		PlaybackRate:     s.rates[s.rateIdx],
	}
}

// CurrentWordIndex returns the index of the word spoken at the current
// global position, or -1 when no word applies.
func (s *Sequencer) CurrentWordIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wordAtLocked(s.positionLocked())
}

// Internal machinery. All helpers below require the lock.

func (s *Sequencer) transition(to SequencerState) bool {
	if !s.machine.transition(to) {
		return false
	}
	s.logger.Debug("state", "state", to)
	if s.onStateChange != nil {
		s.onStateChange(to)
	}
	return true
}

// recomputeTimeline rebuilds chunk offsets, the known duration, and the
// globally offset word sequence over the dense prefix. Chunk i+1's offsets
// depend on chunk i's duration, so this is inherently sequential even when
// generation is not.
func (s *Sequencer) recomputeTimeline() {
	s.contiguous = 0
	for {
		if _, ok := s.byIndex[s.contiguous]; !ok {
			break
		}
		s.contiguous++
	}

	s.offsets = s.offsets[:0]
	s.words = s.words[:0]
	var cum int64
	for i := 0; i < s.contiguous; i++ {
		s.offsets = append(s.offsets, cum)
		ca := s.byIndex[i]
		for _, w := range ca.WordTimings {
			s.words = append(s.words, WordTiming{
				Word:    w.Word,
				StartMs: w.StartMs + cum,
				EndMs:   w.EndMs + cum,
			})
		}
		cum += ca.DurationMs
	}
	s.totalKnown = cum
}

// resumeIfUnblocked starts playback when an arrival satisfies Priming
// (chunk 0) or Waiting (chunk current+1).
func (s *Sequencer) resumeIfUnblocked() {
	switch s.machine.state() {
	case StatePriming:
		if s.contiguous == 0 {
			return
		}
		if err := s.loadChunk(0); err != nil {
			s.reportEngineError(0, err)
			return
		}
		if err := s.engine.Play(); err != nil {
			s.reportEngineError(0, err)
			return
		}
		s.transition(StatePlaying)
	case StateWaiting:
		next := s.current + 1
		if next >= s.contiguous {
			return
		}
		if err := s.loadChunk(next); err != nil {
			s.reportEngineError(next, err)
			return
		}
		if err := s.engine.Play(); err != nil {
			s.reportEngineError(next, err)
			s.current = next - 1
			return
		}
		s.transition(StatePlaying)
	}
}

// loadChunk loads a chunk into the engine and re-applies the playback
// rate, which a fresh load resets.
func (s *Sequencer) loadChunk(index int) error {
	if err := s.engine.Load(s.byIndex[index]); err != nil {
		return err
	}
	s.current = index
	if rate := s.rates[s.rateIdx]; rate != 1.0 {
		if err := s.engine.SetRate(rate); err != nil {
			s.logger.Warn("set rate failed after load", "chunk", index, "err", err)
		}
	}
	return nil
}

// handleChunkComplete runs when the engine reports natural end-of-chunk.
// With the next chunk already available it chains directly into it with no
// intervening state, which is what makes the transition gapless: offsets
// were precomputed when the chunk arrived, not discovered now.
func (s *Sequencer) handleChunkComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.machine.state() != StatePlaying {
		return
	}

	next := s.current + 1
	if s.totalChunks >= 0 && next >= s.totalChunks {
		s.transition(StateComplete)
		return
	}

	if next < s.contiguous {
		if err := s.loadChunk(next); err != nil {
			s.reportEngineError(next, err)
			// Park in Waiting so RetryChunk or the next arrival can
			// reattempt the load instead of stalling in Playing.
			s.transition(StateWaiting)
			return
		}
		if err := s.engine.Play(); err != nil {
			s.reportEngineError(next, err)
			// loadChunk already advanced current; step back so the retry
			// reloads and plays this chunk rather than skipping it.
			s.current = next - 1
			s.transition(StateWaiting)
			return
		}
		// Still Playing; no transition, no gap.
		return
	}

	s.transition(StateWaiting)
}

func (s *Sequencer) seekLocked(targetMs int64) error {
	if s.contiguous == 0 {
		return ErrNoChunkLoaded
	}

	if targetMs < 0 {
		targetMs = 0
	}
	if targetMs > s.totalKnown {
		targetMs = s.totalKnown
	}

	// Find the chunk whose interval contains the target; a target on the
	// last known boundary belongs to the last chunk.
	idx := sort.Search(s.contiguous, func(i int) bool {
		return s.offsets[i] > targetMs
	}) - 1
	if idx < 0 {
		idx = 0
	}

	wasPlaying := s.machine.state() == StatePlaying

	if idx != s.current {
		if err := s.loadChunk(idx); err != nil {
			s.reportEngineError(idx, err)
			return s.lastErr
		}
	}
	if err := s.engine.Seek(time.Duration(targetMs-s.offsets[idx]) * time.Millisecond); err != nil {
		s.reportEngineError(idx, err)
		return s.lastErr
	}

	if wasPlaying {
		if err := s.engine.Play(); err != nil {
			s.reportEngineError(idx, err)
			return s.lastErr
		}
	} else {
		// Seeking out of Waiting or Complete lands in Paused; the target
		// chunk is loaded and holds position until Play.
		switch s.machine.state() {
		case StateWaiting, StateComplete:
			s.transition(StatePaused)
		}
	}
	return nil
}

func (s *Sequencer) restartLocked() error {
	if s.contiguous == 0 {
		return ErrNoChunkLoaded
	}
	if err := s.loadChunk(0); err != nil {
		s.reportEngineError(0, err)
		return s.lastErr
	}
	if err := s.engine.Seek(0); err != nil {
		s.reportEngineError(0, err)
		return s.lastErr
	}
	if err := s.engine.Play(); err != nil {
		s.reportEngineError(0, err)
		return s.lastErr
	}
	s.transition(StatePlaying)
	return nil
}

// positionLocked computes the global playback position in milliseconds.
func (s *Sequencer) positionLocked() int64 {
	if s.current < 0 {
		return 0
	}
	switch s.machine.state() {
	case StateWaiting:
		// The current chunk has finished; position parks at its end.
		return s.offsets[s.current] + s.byIndex[s.current].DurationMs
	case StateComplete:
		return s.totalKnown
	default:
		return s.offsets[s.current] + s.engine.Position().Milliseconds()
	}
}

// wordAtLocked maps a global position to a word index: the entry whose
// interval contains p, the previous word while p sits in an inter-word
// gap, the last word once p passes its end, and -1 with nothing to report.
func (s *Sequencer) wordAtLocked(p int64) int {
	if len(s.words) == 0 {
		return -1
	}
	idx := sort.Search(len(s.words), func(i int) bool {
		return s.words[i].StartMs > p
	}) - 1
	return idx
}

func (s *Sequencer) reportEngineError(chunkIndex int, err error) {
	engineErr := &EngineError{ChunkIndex: chunkIndex, Err: err}
	s.lastErr = engineErr
	s.logger.Error("engine error", "chunk", chunkIndex, "err", err)
	if s.onError != nil {
		s.onError(engineErr)
	}
}
