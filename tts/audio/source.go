package audio

import (
	"io"
	"sync"
	"time"
)

// pcmSource serves decoded 16-bit stereo PCM to the oto player at the
// device sample rate, resampling by nearest-neighbor frame selection to
// cover both the decoder/device rate mismatch and user speed changes.
// oto reads from its own goroutine, so all state is mutex-guarded.
type pcmSource struct {
	mu sync.Mutex

	data       []byte
	sampleRate int // source rate from the decoder

	pos  int     // source byte offset, frame-aligned
	frac float64 // fractional source frames carried between reads
	rate float64 // user playback rate
}

func newPCMSource(data []byte, sampleRate int) *pcmSource {
	return &pcmSource{
		data:       data[:len(data)-len(data)%bytesPerFrame],
		sampleRate: sampleRate,
		rate:       1.0,
	}
}

func (s *pcmSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.data) {
		return 0, io.EOF
	}

	step := s.rate * float64(s.sampleRate) / float64(contextSampleRate)
	n := 0
	for n+bytesPerFrame <= len(p) && s.pos+bytesPerFrame <= len(s.data) {
		copy(p[n:n+bytesPerFrame], s.data[s.pos:s.pos+bytesPerFrame])
		n += bytesPerFrame

		s.frac += step
		advance := int(s.frac)
		s.frac -= float64(advance)
		s.pos += advance * bytesPerFrame
	}
	return n, nil
}

func (s *pcmSource) seekTo(offset time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := int(offset.Seconds() * float64(s.sampleRate))
	pos := frame * bytesPerFrame
	if pos < 0 {
		pos = 0
	}
	if pos > len(s.data) {
		pos = len(s.data)
	}
	s.pos = pos
	s.frac = 0
}

func (s *pcmSource) position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := s.pos / bytesPerFrame
	return time.Duration(frames) * time.Second / time.Duration(s.sampleRate)
}

func (s *pcmSource) setRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
}

func (s *pcmSource) exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos >= len(s.data)
}
