package audio

import (
	"io"
	"testing"
	"time"
)

func pcmFrames(n int) []byte {
	data := make([]byte, n*bytesPerFrame)
	for i := 0; i < n; i++ {
		// Distinct sample value per frame, little-endian in both channels.
		data[i*bytesPerFrame] = byte(i)
		data[i*bytesPerFrame+2] = byte(i)
	}
	return data
}

func TestPCMSourceReadAtUnityRate(t *testing.T) {
	src := newPCMSource(pcmFrames(contextSampleRate), contextSampleRate)

	buf := make([]byte, 1024*bytesPerFrame)
	n, err := src.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("read %d bytes, want %d", n, len(buf))
	}
	// Unity rate consumes exactly one source frame per output frame.
	if got := src.position(); got != time.Second*1024/contextSampleRate {
		t.Errorf("position = %v", got)
	}
}

func TestPCMSourceDoubleRateConsumesTwice(t *testing.T) {
	src := newPCMSource(pcmFrames(contextSampleRate), contextSampleRate)
	src.setRate(2.0)

	buf := make([]byte, 1000*bytesPerFrame)
	if _, err := src.Read(buf); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	want := time.Second * 2000 / contextSampleRate
	got := src.position()
	diff := got - want
	if diff < -time.Millisecond || diff > time.Millisecond {
		t.Errorf("position at 2x = %v, want ~%v", got, want)
	}
}

func TestPCMSourceSeekAndEOF(t *testing.T) {
	src := newPCMSource(pcmFrames(1000), contextSampleRate)

	// Seek near the end, then drain.
	src.seekTo(time.Second * 990 / contextSampleRate)
	buf := make([]byte, 4096*bytesPerFrame)
	if _, err := src.Read(buf); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !src.exhausted() {
		t.Error("source not exhausted after draining")
	}
	if _, err := src.Read(buf); err != io.EOF {
		t.Errorf("Read at end = %v, want io.EOF", err)
	}

	// Seek past the end clamps; seek negative clamps to zero.
	src.seekTo(time.Hour)
	if !src.exhausted() {
		t.Error("seek past end did not clamp to end")
	}
	src.seekTo(-time.Second)
	if src.position() != 0 {
		t.Errorf("negative seek landed at %v", src.position())
	}
}

func TestMockEngineContract(t *testing.T) {
	m := NewMockEngine()

	if err := m.Play(); err == nil {
		t.Error("Play with no chunk loaded succeeded")
	}

	completed := false
	m.OnComplete(func() { completed = true })
	m.CompleteChunk()
	if !completed {
		t.Error("completion callback not invoked")
	}
}
