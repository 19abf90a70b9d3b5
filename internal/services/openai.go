package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/dungeon-master/pkg/chat"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIService implements LLMService with OpenAI chat completions. Turn
// requests use JSON mode.
type OpenAIService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type OpenAIResponseFormat struct {
	Type string `json:"type"`
}

// OpenAIChatRequest represents the request structure for chat completions
type OpenAIChatRequest struct {
	Model          string                `json:"model"`
	Messages       []chat.ChatMessage    `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *OpenAIResponseFormat `json:"response_format,omitempty"`
}

// OpenAIChatResponse represents the response structure for chat completions
type OpenAIChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIService creates a new OpenAI service
func NewOpenAIService(apiKey string, logger *slog.Logger) *OpenAIService {
	return &OpenAIService{
		apiKey:     apiKey,
		baseURL:    openAIBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logger,
	}
}

// WithBaseURL points the client at another endpoint.
func (o *OpenAIService) WithBaseURL(url string) *OpenAIService {
	o.baseURL = strings.TrimRight(url, "/")
	return o
}

func (o *OpenAIService) Name() string { return "openai" }

func (o *OpenAIService) Mode() Mode { return ModeStructured }

// Generate makes a chat completion request.
func (o *OpenAIService) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	body := OpenAIChatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.Structured {
		body.ResponseFormat = &OpenAIResponseFormat{Type: "json_object"}
	}

	var resp OpenAIChatResponse
	err := postJSON(ctx, o.httpClient, o.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + o.apiKey}, body, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}

	if o.logger != nil {
		o.logger.Debug("OpenAI completion received",
			"model", resp.Model,
			"finish_reason", resp.Choices[0].FinishReason,
			"completion_tokens", resp.Usage.CompletionTokens)
	}
	return resp.Choices[0].Message.Content, nil
}
