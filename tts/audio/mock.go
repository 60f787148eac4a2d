package audio

import (
	"sync"
	"time"

	"github.com/listenlater/listenlater/tts"
)

// MockEngine is a controllable in-memory engine for tests. Time does
// not advance on its own; tests set positions and trigger chunk
// completion explicitly.
type MockEngine struct {
	mu sync.Mutex

	loaded     *tts.ChunkAudio
	playing    bool
	pos        time.Duration
	rate       float64
	onComplete func()
	closed     bool

	// LoadErr, when set, is returned by every Load call.
	LoadErr error

	loads []int // chunk indices in load order
	rates []float64
	seeks []time.Duration
}

func NewMockEngine() *MockEngine {
	return &MockEngine{rate: 1.0}
}

func (m *MockEngine) Load(audio *tts.ChunkAudio) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return m.LoadErr
	}
	m.loaded = audio
	m.playing = false
	m.pos = 0
	m.rate = 1.0
	m.loads = append(m.loads, audio.ChunkIndex)
	return nil
}

func (m *MockEngine) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded == nil {
		return tts.ErrNoChunkLoaded
	}
	m.playing = true
	return nil
}

func (m *MockEngine) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded == nil {
		return tts.ErrNoChunkLoaded
	}
	m.playing = false
	return nil
}

func (m *MockEngine) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loaded = nil
	m.playing = false
	m.pos = 0
	return nil
}

func (m *MockEngine) Seek(offset time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded == nil {
		return tts.ErrNoChunkLoaded
	}
	m.pos = offset
	m.seeks = append(m.seeks, offset)
	return nil
}

func (m *MockEngine) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

func (m *MockEngine) SetRate(rate float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded == nil {
		return tts.ErrNoChunkLoaded
	}
	m.rate = rate
	m.rates = append(m.rates, rate)
	return nil
}

func (m *MockEngine) OnComplete(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onComplete = fn
}

func (m *MockEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// CompleteChunk simulates the loaded chunk finishing naturally,
// invoking the completion callback on the caller's goroutine.
func (m *MockEngine) CompleteChunk() {
	m.mu.Lock()
	fn := m.onComplete
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// SetPosition moves the reported intra-chunk position without going
// through Seek, as real playback would.
func (m *MockEngine) SetPosition(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = pos
}

func (m *MockEngine) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *MockEngine) Loaded() *tts.ChunkAudio {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Loads returns chunk indices in the order they were loaded.
func (m *MockEngine) Loads() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.loads...)
}

// Rates returns every rate applied via SetRate, in order.
func (m *MockEngine) Rates() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.rates...)
}

// Seeks returns every offset passed to Seek, in order.
func (m *MockEngine) Seeks() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seeks...)
}

var _ tts.AudioEngine = (*MockEngine)(nil)
