package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/dungeon-master/internal/dungeonmaster"
	"github.com/jwebster45206/dungeon-master/internal/services"
)

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Warning string          `json:"warning"`
	Error   *ErrorBody      `json:"error"`
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDispatcher(t *testing.T, llm services.LLMService) *dungeonmaster.Dispatcher {
	t.Helper()
	d, err := dungeonmaster.New(dungeonmaster.Config{
		LLM:     llm,
		Timeout: time.Second,
		Logger:  testLogger(),
	})
	require.NoError(t, err)
	return d
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env testEnvelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

const validProcessBody = `{
  "action": "generate_combat",
  "game_state": {
    "scene": "A damp cave mouth",
    "npcs": [],
    "enemies": [{
      "id": "goblin-1", "name": "Goblin", "type": "goblin",
      "health": 10, "max_health": 10, "armor_class": 15,
      "attacks": [{"name": "Scimitar", "damage": "1d6+2", "type": "melee", "bonus": 4}],
      "loot": {"gold": {"min": 1, "max": 6}, "items": [], "experience": 50}
    }],
    "environment": {"name": "Cave", "description": "Dripping walls", "lighting": "dim", "terrain": "rock", "obstacles": []},
    "turn_order": [{"player_id": "p1", "initiative": 15, "name": "Korga"}],
    "current_turn": "p1",
    "round_number": 1
  },
  "player_action": "I swing at the goblin",
  "player_id": "p1"
}`

func TestDMHandler_Process(t *testing.T) {
	llm := services.NewMockLLMAPI()
	h := NewDMHandler(newDispatcher(t, llm), testLogger())

	rec, env := doRequest(t, h, http.MethodPost, "/v1/dm/process", validProcessBody)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Empty(t, env.Warning)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "Mock response", data["content"])
	assert.Equal(t, "narrative", data["type"])
	assert.Len(t, llm.GetCalls(), 1)
}

func TestDMHandler_ProcessFallback(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.SetError(errors.New("backend down"))
	h := NewDMHandler(newDispatcher(t, llm), testLogger())

	rec, env := doRequest(t, h, http.MethodPost, "/v1/dm/process", validProcessBody)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, dungeonmaster.FallbackWarning, env.Warning)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "system", data["type"])
	assert.Equal(t, []any{"mysterious_wind"}, data["sound_effects"])
}

func TestDMHandler_ProcessRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown action", `{"action":"dance","game_state":{"scene":"x"}}`},
		{"not json", `{{{`},
		{"unknown field", `{"action":"generate_scene","game_state":null,"mood":"grim"}`},
		{"missing state", `{"action":"generate_scene"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := services.NewMockLLMAPI()
			h := NewDMHandler(newDispatcher(t, llm), testLogger())

			rec, env := doRequest(t, h, http.MethodPost, "/v1/dm/process", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, CodeValidation, env.Error.Code)
			assert.NotNil(t, env.Error.Details)
			assert.Empty(t, llm.GetCalls())
		})
	}
}

func TestDMHandler_ProcessPanic(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.GenerateFunc = func(ctx context.Context, req services.GenerationRequest) (string, error) {
		panic("boom")
	}
	h := NewDMHandler(newDispatcher(t, llm), testLogger())

	rec, env := doRequest(t, h, http.MethodPost, "/v1/dm/process", validProcessBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeDMProcess, env.Error.Code)
}

func TestDMHandler_Backstory(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.SetResponse("Once a temple guard, now a wanderer.")
	h := NewDMHandler(newDispatcher(t, llm), testLogger())

	rec, env := doRequest(t, h, http.MethodPost, "/v1/dm/backstory", `{"characterClass":"paladin","characterName":"Ser Ada"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "Once a temple guard, now a wanderer.", data["backstory"])
}

func TestDMHandler_BackstoryMissingName(t *testing.T) {
	llm := services.NewMockLLMAPI()
	h := NewDMHandler(newDispatcher(t, llm), testLogger())

	rec, env := doRequest(t, h, http.MethodPost, "/v1/dm/backstory", `{"characterClass":"paladin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeMissingParameters, env.Error.Code)
	assert.Empty(t, llm.GetCalls())
}

func TestDMHandler_AdventureHook(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.SetError(errors.New("timeout"))
	h := NewDMHandler(newDispatcher(t, llm), testLogger())

	rec, env := doRequest(t, h, http.MethodPost, "/v1/dm/adventure-hook", `{"level":4,"playerClasses":["bard","rogue"]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dungeonmaster.FallbackWarning, env.Warning)

	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, dungeonmaster.FallbackAdventureHook, data["adventureHook"])

	rec, env = doRequest(t, h, http.MethodPost, "/v1/dm/adventure-hook", `{"level":4,"playerClasses":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeMissingParameters, env.Error.Code)
}

func TestDMHandler_BodyTooLarge(t *testing.T) {
	huge := `{"characterClass":"` + strings.Repeat("a", maxBodyBytes) + `"}`

	for _, path := range []string{"/v1/dm/process", "/v1/dm/backstory", "/v1/dm/adventure-hook"} {
		t.Run(path, func(t *testing.T) {
			llm := services.NewMockLLMAPI()
			h := NewDMHandler(newDispatcher(t, llm), testLogger())

			rec, env := doRequest(t, h, http.MethodPost, path, huge)
			assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, CodePayloadTooLarge, env.Error.Code)
			assert.Empty(t, llm.GetCalls())
		})
	}
}

func TestDMHandler_AuxRejectsUnknownFields(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"backstory extra field", "/v1/dm/backstory", `{"characterClass":"paladin","characterName":"Ser Ada","alignment":"lawful"}`},
		{"backstory misspelled field", "/v1/dm/backstory", `{"character_class":"paladin","characterName":"Ser Ada"}`},
		{"backstory trailing data", "/v1/dm/backstory", `{"characterClass":"paladin","characterName":"Ser Ada"} {}`},
		{"hook extra field", "/v1/dm/adventure-hook", `{"level":4,"playerClasses":["bard"],"tone":"grim"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := services.NewMockLLMAPI()
			h := NewDMHandler(newDispatcher(t, llm), testLogger())

			rec, env := doRequest(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, CodeInvalidRequestPayload, env.Error.Code)
			assert.Empty(t, llm.GetCalls())
		})
	}
}

func TestDMHandler_Routing(t *testing.T) {
	h := NewDMHandler(newDispatcher(t, services.NewMockLLMAPI()), testLogger())

	rec, env := doRequest(t, h, http.MethodGet, "/v1/dm/process", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, CodeMethodNotAllowed, env.Error.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))

	rec, env = doRequest(t, h, http.MethodPost, "/v1/dm/summon", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, env.Error.Code)
}
