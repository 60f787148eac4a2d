package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/listenlater/listenlater/tts"
)

const localName = "local"

// Local synthesizes speech offline through a piper-style subprocess that
// reads text on stdin and writes audio to stdout. It cannot produce word
// alignment, so highlighting for this backend relies on uniform per-word
// estimation.
type Local struct {
	binary    string
	modelPath string
	logger    *log.Logger
}

// NewLocal creates the offline subprocess provider.
func NewLocal(cfg tts.LocalConfig) *Local {
	return &Local{
		binary:    cfg.Binary,
		modelPath: cfg.ModelPath,
		logger:    log.WithPrefix(localName),
	}
}

// Name identifies the provider.
func (l *Local) Name() string { return localName }

// Available reports whether the synthesis binary is on PATH.
func (l *Local) Available() bool {
	if l.binary == "" {
		return false
	}
	_, err := exec.LookPath(l.binary)
	return err == nil
}

// Synthesize runs the subprocess for one chunk. The voiceID selects a
// model file when it names one; otherwise the configured model is used.
func (l *Local) Synthesize(ctx context.Context, text, voiceID string) (*tts.SynthesisResult, error) {
	if !l.Available() {
		return nil, tts.NewSynthesisError(tts.SynthesisUnknown, localName,
			fmt.Errorf("binary %q not found", l.binary))
	}

	model := l.modelPath
	if strings.HasSuffix(voiceID, ".onnx") {
		model = voiceID
	}
	if model == "" {
		return nil, tts.NewSynthesisError(tts.SynthesisInvalidVoice, localName,
			errors.New("no voice model configured"))
	}

	args := []string{"--model", model, "--output-raw"}
	cmd := exec.CommandContext(ctx, l.binary, args...)
	cmd.Stdin = strings.NewReader(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	l.logger.Debug("running synthesis subprocess", "model", model, "chars", len(text))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, tts.NewSynthesisError(tts.SynthesisTransient, localName, errors.New(msg))
	}

	if stdout.Len() == 0 {
		return nil, tts.NewSynthesisError(tts.SynthesisUnknown, localName,
			errors.New("subprocess produced no audio"))
	}

	return &tts.SynthesisResult{Audio: stdout.Bytes()}, nil
}

// Voices returns the configured model as the single offline voice.
func (l *Local) Voices(context.Context) ([]tts.Voice, error) {
	if l.modelPath == "" {
		return nil, nil
	}
	return []tts.Voice{{
		ID:       l.modelPath,
		Name:     strings.TrimSuffix(strings.TrimSuffix(l.modelPath, ".onnx"), ".model"),
		Category: "offline",
	}}, nil
}
