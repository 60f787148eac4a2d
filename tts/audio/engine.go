// Package audio provides playback engines for synthesized chunk audio.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/listenlater/listenlater/tts"
)

const (
	contextSampleRate = 44100
	channelCount      = 2
	bytesPerFrame     = channelCount * 2 // 16-bit samples
)

// Engine plays MP3 chunk audio through the system audio device via oto.
// One chunk is loaded at a time; the whole chunk is decoded to PCM up
// front so seeking and rate changes are sample-accurate.
type Engine struct {
	ctx    *oto.Context
	logger *log.Logger

	mu         sync.Mutex
	player     *oto.Player
	src        *pcmSource
	onComplete func()
	generation int
	closed     bool
}

// NewEngine initializes the audio device. The device is a process-wide
// resource; create one engine per process.
func NewEngine() (*Engine, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   contextSampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}
	<-ready

	return &Engine{
		ctx:    ctx,
		logger: log.WithPrefix("audio"),
	}, nil
}

// Load decodes a chunk's audio and prepares it for playback, replacing
// any loaded chunk. Loading resets the playback rate to 1.0.
func (e *Engine) Load(audio *tts.ChunkAudio) error {
	if audio == nil || len(audio.Audio) == 0 {
		return errors.New("no audio data")
	}

	dec, err := mp3.NewDecoder(bytes.NewReader(audio.Audio))
	if err != nil {
		return fmt.Errorf("decoding chunk %d: %w", audio.ChunkIndex, err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return fmt.Errorf("decoding chunk %d: %w", audio.ChunkIndex, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.New("engine closed")
	}

	e.unloadLocked()

	e.src = newPCMSource(pcm, dec.SampleRate())
	e.player = e.ctx.NewPlayer(e.src)
	e.generation++
	go e.watchCompletion(e.generation)

	e.logger.Debug("chunk loaded", "chunk", audio.ChunkIndex,
		"pcm_bytes", len(pcm), "sample_rate", dec.SampleRate())
	return nil
}

// Play starts or resumes playback of the loaded chunk.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.player == nil {
		return tts.ErrNoChunkLoaded
	}
	e.player.Play()
	return nil
}

// Pause halts playback keeping position.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.player == nil {
		return tts.ErrNoChunkLoaded
	}
	e.player.Pause()
	return nil
}

// Stop halts playback and releases the loaded chunk.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.unloadLocked()
	return nil
}

// Seek moves the intra-chunk position.
func (e *Engine) Seek(offset time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.src == nil {
		return tts.ErrNoChunkLoaded
	}
	// Drop whatever the player buffered at the old position.
	wasPlaying := e.player.IsPlaying()
	e.player.Pause()
	e.src.seekTo(offset)
	if wasPlaying {
		e.player.Play()
	}
	return nil
}

// Position returns the intra-chunk playback position.
func (e *Engine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.src == nil {
		return 0
	}
	pos := e.src.position()
	if e.player != nil {
		// Subtract what oto has pulled ahead of the speaker.
		buffered := time.Duration(e.player.BufferedSize()/bytesPerFrame) *
			time.Second / contextSampleRate
		if pos > buffered {
			pos -= buffered
		} else {
			pos = 0
		}
	}
	return pos
}

// SetRate changes playback speed by resampling. Naive frame skipping
// shifts pitch with speed, which matches how the rest of the pipeline
// treats rate as a plain multiplier.
func (e *Engine) SetRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("invalid playback rate %v", rate)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.src == nil {
		return tts.ErrNoChunkLoaded
	}
	e.src.setRate(rate)
	return nil
}

// OnComplete registers the natural end-of-chunk callback.
func (e *Engine) OnComplete(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onComplete = fn
}

// Close releases the audio device.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.unloadLocked()
	e.closed = true
	return nil
}

func (e *Engine) unloadLocked() {
	if e.player != nil {
		e.player.Pause()
		_ = e.player.Close()
		e.player = nil
	}
	e.src = nil
	e.generation++ // invalidates any running watcher
}

// watchCompletion fires the completion callback once the source is
// exhausted and the device buffer has drained.
func (e *Engine) watchCompletion(generation int) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		e.mu.Lock()
		if e.generation != generation {
			e.mu.Unlock()
			return
		}
		done := e.src != nil && e.src.exhausted() &&
			e.player != nil && e.player.BufferedSize() == 0
		fn := e.onComplete
		e.mu.Unlock()

		if done {
			if fn != nil {
				fn()
			}
			return
		}
	}
}

var _ tts.AudioEngine = (*Engine)(nil)
