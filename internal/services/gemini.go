package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jwebster45206/dungeon-master/pkg/chat"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiService implements LLMService for Google Gemini. Output is prose;
// the caller derives metadata from the text.
type GeminiService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type GeminiPart struct {
	Text string `json:"text"`
}

type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

type GeminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

// GeminiRequest represents the generateContent request body
type GeminiRequest struct {
	SystemInstruction *GeminiContent         `json:"systemInstruction,omitempty"`
	Contents          []GeminiContent        `json:"contents"`
	GenerationConfig  GeminiGenerationConfig `json:"generationConfig"`
}

// GeminiResponse represents the generateContent response body
type GeminiResponse struct {
	Candidates []struct {
		Content      GeminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// NewGeminiService creates a new Gemini service
func NewGeminiService(apiKey string, logger *slog.Logger) *GeminiService {
	return &GeminiService{
		apiKey:     apiKey,
		baseURL:    geminiBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logger,
	}
}

// WithBaseURL points the client at another endpoint.
func (g *GeminiService) WithBaseURL(u string) *GeminiService {
	g.baseURL = strings.TrimRight(u, "/")
	return g
}

func (g *GeminiService) Name() string { return "gemini" }

func (g *GeminiService) Mode() Mode { return ModeFreeform }

// Generate calls generateContent. The Structured flag is ignored.
func (g *GeminiService) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	system, rest := splitChatMessages(req.Messages)

	body := GeminiRequest{
		Contents: make([]GeminiContent, 0, len(rest)),
		GenerationConfig: GeminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if system != "" {
		body.SystemInstruction = &GeminiContent{Parts: []GeminiPart{{Text: system}}}
	}
	for _, msg := range rest {
		role := "user"
		if msg.Role == chat.ChatRoleAgent {
			role = "model"
		}
		body.Contents = append(body.Contents, GeminiContent{Role: role, Parts: []GeminiPart{{Text: msg.Content}}})
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(req.Model))
	var resp GeminiResponse
	err := postJSON(ctx, g.httpClient, endpoint, map[string]string{"x-goog-api-key": g.apiKey}, body, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}

	var sb strings.Builder
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyCompletion
	}

	if g.logger != nil {
		g.logger.Debug("Gemini completion received",
			"model", req.Model,
			"finish_reason", resp.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}
