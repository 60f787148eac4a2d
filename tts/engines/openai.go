package engines

import (
	"context"
	"errors"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/listenlater/listenlater/tts"
)

const openAIName = "openai"

// openAIVoices is the fixed voice set the OpenAI speech endpoint offers.
var openAIVoices = []tts.Voice{
	{ID: string(openai.VoiceAlloy), Name: "Alloy"},
	{ID: string(openai.VoiceEcho), Name: "Echo"},
	{ID: string(openai.VoiceFable), Name: "Fable"},
	{ID: string(openai.VoiceOnyx), Name: "Onyx"},
	{ID: string(openai.VoiceNova), Name: "Nova"},
	{ID: string(openai.VoiceShimmer), Name: "Shimmer"},
}

// OpenAI synthesizes speech through the OpenAI audio API. The endpoint
// returns no alignment data, so word timings are always estimated.
type OpenAI struct {
	client *openai.Client
	model  string
	apiKey string
}

// NewOpenAI creates an OpenAI speech provider.
func NewOpenAI(cfg tts.OpenAIConfig) *OpenAI {
	model := cfg.Model
	if model == "" {
		model = string(openai.TTSModel1)
	}
	return &OpenAI{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
		apiKey: cfg.APIKey,
	}
}

// Name identifies the provider.
func (o *OpenAI) Name() string { return openAIName }

// Available reports whether the provider is configured.
func (o *OpenAI) Available() bool { return o.apiKey != "" }

// Synthesize converts text to MP3 audio. No alignment is available.
func (o *OpenAI) Synthesize(ctx context.Context, text, voiceID string) (*tts.SynthesisResult, error) {
	if !o.Available() {
		return nil, tts.NewSynthesisError(tts.SynthesisUnknown, openAIName, errors.New("missing API key"))
	}
	if !validOpenAIVoice(voiceID) {
		return nil, tts.NewSynthesisError(tts.SynthesisInvalidVoice, openAIName,
			errors.New("unknown voice "+voiceID))
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voiceID),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	defer resp.Close() //nolint:errcheck

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, tts.NewSynthesisError(tts.SynthesisTransient, openAIName, err)
	}

	return &tts.SynthesisResult{Audio: audio}, nil
}

// Voices lists the fixed OpenAI voice set.
func (o *OpenAI) Voices(context.Context) ([]tts.Voice, error) {
	out := make([]tts.Voice, len(openAIVoices))
	copy(out, openAIVoices)
	return out, nil
}

func validOpenAIVoice(voiceID string) bool {
	for _, v := range openAIVoices {
		if v.ID == voiceID {
			return true
		}
	}
	return false
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests,
			apiErr.HTTPStatusCode == http.StatusPaymentRequired:
			return tts.NewSynthesisError(tts.SynthesisQuotaExceeded, openAIName, err)
		case apiErr.HTTPStatusCode == http.StatusUnauthorized,
			apiErr.HTTPStatusCode == http.StatusForbidden:
			return tts.NewSynthesisError(tts.SynthesisAuthFailed, openAIName, err)
		case apiErr.HTTPStatusCode >= 500:
			return tts.NewSynthesisError(tts.SynthesisTransient, openAIName, err)
		default:
			return tts.NewSynthesisError(tts.SynthesisUnknown, openAIName, err)
		}
	}
	// Non-API errors are network-level.
	return tts.NewSynthesisError(tts.SynthesisTransient, openAIName, err)
}
