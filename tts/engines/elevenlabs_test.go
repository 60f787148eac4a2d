package engines

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/listenlater/listenlater/tts"
)

func newElevenLabsServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *ElevenLabs) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider := NewElevenLabs(tts.ElevenLabsConfig{
		APIKey:  "test-key",
		ModelID: "eleven_multilingual_v2",
		BaseURL: server.URL,
	})
	return server, provider
}

func TestElevenLabsSynthesize(t *testing.T) {
	audioBytes := []byte("fake mp3 bytes")

	_, provider := newElevenLabsServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if !strings.HasSuffix(r.URL.Path, "/v1/text-to-speech/voice-1/with-timestamps") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req elevenLabsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Text != "hi yo" || req.ModelID != "eleven_multilingual_v2" {
			t.Errorf("request = %+v", req)
		}

		_ = json.NewEncoder(w).Encode(elevenLabsResponse{
			AudioBase64: base64.StdEncoding.EncodeToString(audioBytes),
			Alignment: &elevenLabsAlignment{
				Characters:         []string{"h", "i", " ", "y", "o"},
				CharacterStartSecs: []float64{0, 0.1, 0.2, 0.3, 0.4},
				CharacterEndSecs:   []float64{0.1, 0.2, 0.3, 0.4, 0.5},
			},
		})
	})

	res, err := provider.Synthesize(context.Background(), "hi yo", "voice-1")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if string(res.Audio) != string(audioBytes) {
		t.Error("audio bytes corrupted in transit")
	}
	if res.Alignment == nil || len(res.Alignment.Chars) != 5 {
		t.Fatalf("alignment = %+v", res.Alignment)
	}
	if res.Alignment.EndSec[4] != 0.5 {
		t.Errorf("EndSec[4] = %v, want 0.5", res.Alignment.EndSec[4])
	}
}

func TestElevenLabsNoAlignment(t *testing.T) {
	_, provider := newElevenLabsServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(elevenLabsResponse{
			AudioBase64: base64.StdEncoding.EncodeToString([]byte("audio")),
		})
	})

	res, err := provider.Synthesize(context.Background(), "text", "v")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if res.Alignment != nil {
		t.Error("alignment should be nil when the response omits it")
	}
}

func TestElevenLabsErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		detail     string
		wantKind   tts.SynthesisErrorKind
	}{
		{
			name:       "quota status in body",
			statusCode: http.StatusUnprocessableEntity,
			detail:     `{"detail":{"status":"quota_exceeded","message":"out of credits"}}`,
			wantKind:   tts.SynthesisQuotaExceeded,
		},
		{
			name:       "rate limited",
			statusCode: http.StatusTooManyRequests,
			wantKind:   tts.SynthesisQuotaExceeded,
		},
		{
			name:       "unauthorized",
			statusCode: http.StatusUnauthorized,
			wantKind:   tts.SynthesisAuthFailed,
		},
		{
			name:       "forbidden",
			statusCode: http.StatusForbidden,
			wantKind:   tts.SynthesisAuthFailed,
		},
		{
			name:       "voice not found",
			statusCode: http.StatusNotFound,
			wantKind:   tts.SynthesisInvalidVoice,
		},
		{
			name:       "voice status in body",
			statusCode: http.StatusBadRequest,
			detail:     `{"detail":{"status":"voice_not_found","message":"no such voice"}}`,
			wantKind:   tts.SynthesisInvalidVoice,
		},
		{
			name:       "server error",
			statusCode: http.StatusBadGateway,
			wantKind:   tts.SynthesisTransient,
		},
		{
			name:       "unclassified client error",
			statusCode: http.StatusBadRequest,
			wantKind:   tts.SynthesisUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, provider := newElevenLabsServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
				if tt.detail != "" {
					_, _ = w.Write([]byte(tt.detail))
				}
			})

			_, err := provider.Synthesize(context.Background(), "text", "v")
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := tts.SynthesisKind(err); got != tt.wantKind {
				t.Errorf("kind = %v, want %v", got, tt.wantKind)
			}
			var se *tts.SynthesisError
			if !errors.As(err, &se) || se.Provider != elevenLabsName {
				t.Errorf("provider lost from error: %v", err)
			}
		})
	}
}

func TestElevenLabsUnavailableWithoutKey(t *testing.T) {
	provider := NewElevenLabs(tts.ElevenLabsConfig{})
	if provider.Available() {
		t.Error("provider without key reports available")
	}
	if _, err := provider.Synthesize(context.Background(), "text", "v"); err == nil {
		t.Error("Synthesize without key succeeded")
	}
}

func TestElevenLabsVoices(t *testing.T) {
	_, provider := newElevenLabsServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/voices" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(elevenLabsVoicesResponse{
			Voices: []elevenLabsVoice{
				{VoiceID: "v1", Name: "Rachel", Category: "premade"},
				{VoiceID: "v2", Name: "Adam", Category: "premade"},
			},
		})
	})

	voices, err := provider.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices failed: %v", err)
	}
	if len(voices) != 2 || voices[0].ID != "v1" || voices[1].Name != "Adam" {
		t.Errorf("voices = %+v", voices)
	}
}
