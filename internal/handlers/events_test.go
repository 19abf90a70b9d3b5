package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/dungeon-master/internal/services/events"
)

func newTestBroadcaster(t *testing.T) *events.Broadcaster {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return events.NewBroadcaster(client, testLogger())
}

// nextEvent reads SSE lines until a complete event arrives.
func nextEvent(t *testing.T, sc *bufio.Scanner) (string, string) {
	t.Helper()
	var name, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
	require.NoError(t, sc.Err())
	t.Fatal("stream ended before an event arrived")
	return "", ""
}

func TestEventsHandler_Stream(t *testing.T) {
	b := newTestBroadcaster(t)
	srv := httptest.NewServer(NewEventsHandler(b, testLogger()))
	defer srv.Close()

	gameID := uuid.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/games/"+gameID.String(), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	name, data := nextEvent(t, sc)
	assert.Equal(t, "connected", name)
	assert.Contains(t, data, gameID.String())

	require.NoError(t, b.PublishTurnCompleted(ctx, gameID, "req-1", map[string]any{"content": "The door creaks open."}, ""))

	name, data = nextEvent(t, sc)
	assert.Equal(t, string(events.EventTypeTurnCompleted), name)

	var ev events.Event
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, "req-1", ev.RequestID)
	assert.Equal(t, gameID.String(), ev.GameID)
}

func TestEventsHandler_BadRequests(t *testing.T) {
	h := NewEventsHandler(newTestBroadcaster(t), testLogger())

	rec, env := doRequest(t, h, http.MethodGet, "/v1/events/games/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, env.Error.Code)

	rec, _ = doRequest(t, h, http.MethodGet, "/v1/events/players/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doRequest(t, h, http.MethodPost, "/v1/events/games/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
