package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// SpeechService turns recommendation text into mp3 audio through an
// OpenAI-compatible /audio/speech endpoint.
type SpeechService struct {
	client   *resty.Client
	model    string
	voice    string
	endpoint string
}

// SpeechConfig holds configuration for the speech service.
type SpeechConfig struct {
	Model   string
	Voice   string
	APIKey  string
	BaseURL string
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// NewSpeechService creates a new speech service.
func NewSpeechService(cfg *SpeechConfig) *SpeechService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetTimeout(60 * time.Second)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	voice := cfg.Voice
	if voice == "" {
		voice = "alloy"
	}

	return &SpeechService{
		client:   client,
		model:    cfg.Model,
		voice:    voice,
		endpoint: baseURL + "/audio/speech",
	}
}

// Synthesize returns mp3 audio of text.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - text: narration to speak; must not be blank.
// Returns:
//   - []byte: mp3 bytes.
//   - error: non-nil if the request fails or returns no audio.
func (s *SpeechService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("nothing to synthesize")
	}

	httpResp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(speechRequest{
			Model:          s.model,
			Voice:          s.voice,
			Input:          text,
			ResponseFormat: "mp3",
		}).
		Post(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call speech API: %w", err)
	}
	if httpResp.IsError() {
		return nil, fmt.Errorf("speech API returned error: HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
	}

	audio := httpResp.Body()
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech API returned no audio")
	}
	return audio, nil
}
