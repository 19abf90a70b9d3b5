package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jwebster45206/dungeon-master/pkg/chat"
)

// ErrEmptyCompletion is returned when a backend answers without any text.
var ErrEmptyCompletion = errors.New("empty completion")

// Mode tells the caller how to read a backend's output.
type Mode string

const (
	// ModeStructured backends return JSON that follows the response contract.
	ModeStructured Mode = "structured"
	// ModeFreeform backends return prose.
	ModeFreeform Mode = "freeform"
)

const defaultHTTPTimeout = 120 * time.Second

// GenerationRequest is one call to a generation backend.
type GenerationRequest struct {
	Model       string
	Messages    []chat.ChatMessage
	Temperature float64
	MaxTokens   int
	Structured  bool // ask for JSON output when the backend supports it
}

// LLMService defines the interface for interacting with a generation backend
type LLMService interface {
	// Generate returns the completion text for the request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)

	// Mode reports whether the backend emits structured JSON or prose.
	Mode() Mode

	// Name identifies the backend in logs and health output.
	Name() string
}

// postJSON sends body as JSON and decodes a 200 response into out.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// splitChatMessages joins all system messages into one prompt and returns
// the remaining messages in order.
func splitChatMessages(messages []chat.ChatMessage) (string, []chat.ChatMessage) {
	var system string
	rest := make([]chat.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}
		rest = append(rest, msg)
	}
	return system, rest
}
