package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jayascript1/menubot/internal/prompts"
	"github.com/jayascript1/menubot/internal/recommend"
)

const (
	defaultVLMMaxTokens = 2000
	defaultVLMTimeout   = 90 * time.Second
)

// VLMService reads menu photos with an OpenAI-compatible vision model.
type VLMService struct {
	client    *resty.Client
	model     string
	endpoint  string
	maxTokens int
}

// VLMConfig holds configuration for VLM service.
type VLMConfig struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// NewVLMService creates a new VLM service.
// Parameters:
//   - cfg: VLM configuration including model, API key and base URL.
//
// Returns:
//   - *VLMService: initialized VLM client wrapper.
func NewVLMService(cfg *VLMConfig) *VLMService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultVLMTimeout
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultVLMMaxTokens
	}

	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &VLMService{
		client:    client,
		model:     cfg.Model,
		endpoint:  baseURL + "/chat/completions",
		maxTokens: maxTokens,
	}
}

// GetModel returns the model name being used.
func (s *VLMService) GetModel() string {
	return s.model
}

// OpenAI-compatible Chat Completion API request/response structures
type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openAIMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string for system, []interface{} for user with images
}

type openAITextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openAIImageContent struct {
	Type     string         `json:"type"`
	ImageURL openAIImageURL `json:"image_url"`
}

type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *openAIError `json:"error,omitempty"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ExtractMenu asks the model for the menu JSON of a photo.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageData: raw image bytes.
//   - format: image format (jpeg, png, gif, webp).
//   - hunger: appetite used to size the suggested combos.
//
// Returns:
//   - string: raw model reply, to be parsed with recommend.ParseRaw.
//   - error: non-nil if the API request fails or returns no choices.
func (s *VLMService) ExtractMenu(ctx context.Context, imageData []byte, format string, hunger recommend.HungerLevel) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", getContentType(format), base64.StdEncoding.EncodeToString(imageData))
	return s.complete(ctx, dataURL, hunger)
}

// ExtractMenuFromURL is ExtractMenu for an image the model can fetch itself.
func (s *VLMService) ExtractMenuFromURL(ctx context.Context, imageURL string, hunger recommend.HungerLevel) (string, error) {
	return s.complete(ctx, imageURL, hunger)
}

func (s *VLMService) complete(ctx context.Context, imageURL string, hunger recommend.HungerLevel) (string, error) {
	req := openAIRequest{
		Model: s.model,
		Messages: []openAIMessage{
			{
				Role:    "system",
				Content: prompts.MenuSystemPrompt,
			},
			{
				Role: "user",
				Content: []interface{}{
					openAITextContent{
						Type: "text",
						Text: fmt.Sprintf(prompts.MenuUserPromptTemplate, hunger),
					},
					openAIImageContent{
						Type: "image_url",
						ImageURL: openAIImageURL{
							URL:    imageURL,
							Detail: "high", // small menu print needs full resolution
						},
					},
				},
			},
		},
		MaxTokens:      s.maxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	var resp openAIResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call VLM API: %w", err)
	}

	if httpResp.IsError() {
		if resp.Error != nil && resp.Error.Message != "" {
			return "", fmt.Errorf("VLM API returned error: HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return "", fmt.Errorf("VLM API returned error: HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
	}

	if resp.Error != nil {
		return "", fmt.Errorf("VLM API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from VLM API: no choices in response, body: %s", string(httpResp.Body()))
	}

	return resp.Choices[0].Message.Content, nil
}
