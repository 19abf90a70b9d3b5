package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/dungeon-master/pkg/chat"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// AnthropicService implements LLMService for Anthropic Claude. Output is
// treated as prose.
type AnthropicService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type AnthropicChatRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []chat.ChatMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
}

type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicChatResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []AnthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewAnthropicService(apiKey string, logger *slog.Logger) *AnthropicService {
	return &AnthropicService{
		apiKey:     apiKey,
		baseURL:    anthropicBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logger,
	}
}

// WithBaseURL points the client at another endpoint.
func (a *AnthropicService) WithBaseURL(url string) *AnthropicService {
	a.baseURL = strings.TrimRight(url, "/")
	return a
}

func (a *AnthropicService) Name() string { return "anthropic" }

func (a *AnthropicService) Mode() Mode { return ModeFreeform }

// Generate makes a messages request. System messages are lifted into the
// top-level system prompt.
func (a *AnthropicService) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	system, conversation := splitChatMessages(req.Messages)

	temperature := req.Temperature
	body := AnthropicChatRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: &temperature,
		Messages:    conversation,
		System:      system,
	}

	var resp AnthropicChatResponse
	err := postJSON(ctx, a.httpClient, a.baseURL+"/messages", map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}, body, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyCompletion
	}

	if a.logger != nil {
		a.logger.Debug("Anthropic completion received",
			"model", resp.Model,
			"stop_reason", resp.StopReason,
			"output_tokens", resp.Usage.OutputTokens)
	}
	return sb.String(), nil
}
