// Package engines provides speech synthesis provider implementations.
package engines

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/listenlater/listenlater/tts"
)

const (
	defaultElevenLabsBaseURL = "https://api.elevenlabs.io"
	elevenLabsName           = "elevenlabs"
)

// ElevenLabs synthesizes speech through the ElevenLabs HTTP API using the
// with-timestamps endpoint, which returns character-level alignment next
// to the audio.
type ElevenLabs struct {
	apiKey  string
	modelID string
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

// NewElevenLabs creates an ElevenLabs provider.
func NewElevenLabs(cfg tts.ElevenLabsConfig) *ElevenLabs {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultElevenLabsBaseURL
	}
	return &ElevenLabs{
		apiKey:  cfg.APIKey,
		modelID: cfg.ModelID,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  log.WithPrefix(elevenLabsName),
	}
}

// Name identifies the provider.
func (e *ElevenLabs) Name() string { return elevenLabsName }

// Available reports whether the provider is configured.
func (e *ElevenLabs) Available() bool { return e.apiKey != "" }

type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

type elevenLabsAlignment struct {
	Characters         []string  `json:"characters"`
	CharacterStartSecs []float64 `json:"character_start_times_seconds"`
	CharacterEndSecs   []float64 `json:"character_end_times_seconds"`
}

type elevenLabsResponse struct {
	AudioBase64 string               `json:"audio_base64"`
	Alignment   *elevenLabsAlignment `json:"alignment"`
}

type elevenLabsError struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// Synthesize converts text to audio with character alignment.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, voiceID string) (*tts.SynthesisResult, error) {
	if !e.Available() {
		return nil, tts.NewSynthesisError(tts.SynthesisUnknown, elevenLabsName, errors.New("missing API key"))
	}

	body, err := json.Marshal(elevenLabsRequest{Text: text, ModelID: e.modelID})
	if err != nil {
		return nil, tts.NewSynthesisError(tts.SynthesisUnknown, elevenLabsName, err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s/with-timestamps", e.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, tts.NewSynthesisError(tts.SynthesisUnknown, elevenLabsName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		// DNS failures, timeouts, resets: worth retrying later.
		return nil, tts.NewSynthesisError(tts.SynthesisTransient, elevenLabsName, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, e.classifyHTTPError(resp)
	}

	var decoded elevenLabsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, tts.NewSynthesisError(tts.SynthesisTransient, elevenLabsName, fmt.Errorf("decoding response: %w", err))
	}

	audio, err := base64.StdEncoding.DecodeString(decoded.AudioBase64)
	if err != nil {
		return nil, tts.NewSynthesisError(tts.SynthesisUnknown, elevenLabsName, fmt.Errorf("decoding audio: %w", err))
	}

	result := &tts.SynthesisResult{Audio: audio}
	if a := decoded.Alignment; a != nil && len(a.Characters) > 0 {
		result.Alignment = &tts.Alignment{
			Chars:    a.Characters,
			StartSec: a.CharacterStartSecs,
			EndSec:   a.CharacterEndSecs,
		}
	} else {
		e.logger.Debug("no alignment in response, timings will be estimated", "voice", voiceID)
	}

	return result, nil
}

// classifyHTTPError maps provider status codes onto the synthesis error
// taxonomy so quota exhaustion and bad voices stay distinguishable from
// network blips all the way up the call chain.
func (e *ElevenLabs) classifyHTTPError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var detail elevenLabsError
	_ = json.Unmarshal(raw, &detail)
	status := detail.Detail.Status
	message := detail.Detail.Message
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}

	err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, message)

	switch {
	case status == "quota_exceeded" || resp.StatusCode == http.StatusTooManyRequests:
		return tts.NewSynthesisError(tts.SynthesisQuotaExceeded, elevenLabsName, err)
	case status == "voice_not_found" || resp.StatusCode == http.StatusNotFound:
		return tts.NewSynthesisError(tts.SynthesisInvalidVoice, elevenLabsName, err)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// A rejected key is permanent for this session; the fallback
		// chain treats it like quota and moves on, but the message must
		// say auth, not billing.
		return tts.NewSynthesisError(tts.SynthesisAuthFailed, elevenLabsName, err)
	case resp.StatusCode >= 500:
		return tts.NewSynthesisError(tts.SynthesisTransient, elevenLabsName, err)
	default:
		return tts.NewSynthesisError(tts.SynthesisUnknown, elevenLabsName, err)
	}
}

type elevenLabsVoice struct {
	VoiceID    string `json:"voice_id"`
	Name       string `json:"name"`
	PreviewURL string `json:"preview_url"`
	Category   string `json:"category"`
}

type elevenLabsVoicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

// Voices lists the account's available voices.
func (e *ElevenLabs) Voices(ctx context.Context) ([]tts.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, tts.NewSynthesisError(tts.SynthesisUnknown, elevenLabsName, err)
	}
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, tts.NewSynthesisError(tts.SynthesisTransient, elevenLabsName, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, e.classifyHTTPError(resp)
	}

	var decoded elevenLabsVoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, tts.NewSynthesisError(tts.SynthesisTransient, elevenLabsName, err)
	}

	voices := make([]tts.Voice, 0, len(decoded.Voices))
	for _, v := range decoded.Voices {
		voices = append(voices, tts.Voice{
			ID:         v.VoiceID,
			Name:       v.Name,
			PreviewURL: v.PreviewURL,
			Category:   v.Category,
		})
	}
	return voices, nil
}
