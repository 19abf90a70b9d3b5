package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/dungeon-master/pkg/chat"
)

const veniceBaseURL = "https://api.venice.ai/api/v1"

// VeniceService implements LLMService for Venice AI. Turn requests are
// constrained by a JSON schema of the response contract.
type VeniceService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type VeniceResponseFormat struct {
	Type       string           `json:"type"`
	JSONSchema VeniceJSONSchema `json:"json_schema"`
}

type VeniceJSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type VeniceParameters struct {
	IncludeVeniceSystemPrompt bool   `json:"include_venice_system_prompt"`
	EnableWebSearch           string `json:"enable_web_search"`
}

// VeniceChatRequest represents the request structure for Venice AI chat completions
type VeniceChatRequest struct {
	Model            string                `json:"model"`
	Messages         []chat.ChatMessage    `json:"messages"`
	Temperature      float64               `json:"temperature"`
	MaxTokens        int                   `json:"max_tokens,omitempty"`
	Stream           bool                  `json:"stream"`
	ResponseFormat   *VeniceResponseFormat `json:"response_format,omitempty"`
	VeniceParameters VeniceParameters      `json:"venice_parameters"`
}

// VeniceChatResponse represents the response structure for Venice AI chat completions
type VeniceChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewVeniceService creates a new Venice AI service
func NewVeniceService(apiKey string, logger *slog.Logger) *VeniceService {
	return &VeniceService{
		apiKey:     apiKey,
		baseURL:    veniceBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logger,
	}
}

// WithBaseURL points the client at another endpoint.
func (v *VeniceService) WithBaseURL(url string) *VeniceService {
	v.baseURL = strings.TrimRight(url, "/")
	return v
}

func (v *VeniceService) Name() string { return "venice" }

func (v *VeniceService) Mode() Mode { return ModeStructured }

// Generate makes a chat completion request to Venice AI.
func (v *VeniceService) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	body := VeniceChatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		VeniceParameters: VeniceParameters{
			IncludeVeniceSystemPrompt: false,
			EnableWebSearch:           "off",
		},
	}
	if req.Structured {
		body.ResponseFormat = dmResponseFormat()
	}

	var resp VeniceChatResponse
	err := postJSON(ctx, v.httpClient, v.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + v.apiKey}, body, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}

	if v.logger != nil {
		v.logger.Debug("Venice completion received",
			"model", resp.Model,
			"finish_reason", resp.Choices[0].FinishReason,
			"structured", req.Structured)
	}
	return resp.Choices[0].Message.Content, nil
}

// dmResponseFormat returns the JSON schema for a dungeon master turn.
func dmResponseFormat() *VeniceResponseFormat {
	stringList := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
	return &VeniceResponseFormat{
		Type: "json_schema",
		JSONSchema: VeniceJSONSchema{
			Name:   "dm_response",
			Strict: true,
			Schema: map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"content": map[string]any{
						"type": "string",
					},
					"type": map[string]any{
						"type": "string",
						"enum": []string{"narrative", "dialogue", "combat", "system"},
					},
					"game_state_updates": map[string]any{
						"type": []string{"object", "null"},
					},
					"npc_responses": map[string]any{
						"type": []string{"object", "null"},
						"additionalProperties": map[string]any{
							"type": "string",
						},
					},
					"sound_effects":  stringList,
					"visual_effects": stringList,
				},
				"required": []string{"content", "type", "sound_effects", "visual_effects"},
			},
		},
	}
}
