package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jwebster45206/dungeon-master/internal/dungeonmaster"
	"github.com/jwebster45206/dungeon-master/internal/handlers"
	"github.com/jwebster45206/dungeon-master/pkg/chat"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

// APIError is a non-2xx reply from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Warning string              `json:"warning"`
	Error   *handlers.ErrorBody `json:"error"`
}

// do sends body as JSON and decodes the envelope's data into out.
// It returns the envelope warning.
func do(ctx context.Context, client *http.Client, method, url string, body, out any) (string, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("failed to marshal request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return "", fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("failed to decode response (%d): %s", resp.StatusCode, string(raw))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return "", apiErr
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return env.Warning, nil
}

// CreateGame stores gs as a new game and returns its id.
func CreateGame(ctx context.Context, client *http.Client, baseURL string, gs *state.GameState) (uuid.UUID, error) {
	var game handlers.GameResponse
	if _, err := do(ctx, client, http.MethodPost, baseURL+"/v1/games", handlers.GameBody{GameState: gs}, &game); err != nil {
		return uuid.Nil, err
	}
	return game.ID, nil
}

// ReplaceGame overwrites a stored game's state.
func ReplaceGame(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID, gs *state.GameState) error {
	_, err := do(ctx, client, http.MethodPut, baseURL+"/v1/games/"+id.String(), handlers.GameBody{GameState: gs}, nil)
	return err
}

// GetGameState retrieves the current game state.
func GetGameState(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID) (*state.GameState, error) {
	var game handlers.GameResponse
	if _, err := do(ctx, client, http.MethodGet, baseURL+"/v1/games/"+id.String(), nil, &game); err != nil {
		return nil, err
	}
	return game.GameState, nil
}

// DeleteGame removes a game and its message log.
func DeleteGame(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID) error {
	_, err := do(ctx, client, http.MethodDelete, baseURL+"/v1/games/"+id.String(), nil, nil)
	return err
}

// ListMessages returns up to limit of the game's most recent messages.
func ListMessages(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID, limit int) ([]chat.Message, error) {
	var msgs []chat.Message
	url := baseURL + "/v1/games/" + id.String() + "/messages?limit=" + strconv.Itoa(limit)
	if _, err := do(ctx, client, http.MethodGet, url, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// PlayTurn posts a turn and returns the result and any fallback warning.
func PlayTurn(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID, req dungeonmaster.TurnRequest) (*dungeonmaster.TurnResult, string, error) {
	var res dungeonmaster.TurnResult
	warning, err := do(ctx, client, http.MethodPost, baseURL+"/v1/games/"+id.String()+"/turns", req, &res)
	if err != nil {
		return nil, "", err
	}
	return &res, warning, nil
}
