package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBroadcaster(t *testing.T) (*Broadcaster, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBroadcaster(client, slog.New(slog.NewTextHandler(io.Discard, nil))), client
}

func receive(t *testing.T, sub *redis.PubSub) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
	return ev
}

func TestBroadcaster_TurnLifecycle(t *testing.T) {
	b, client := setupBroadcaster(t)
	ctx := context.Background()
	gameID := uuid.New()

	sub := client.Subscribe(ctx, Channel(gameID))
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	require.NoError(t, b.PublishTurnProcessing(ctx, gameID, "req-1", "process_action", "p1"))
	ev := receive(t, sub)
	assert.Equal(t, EventTypeTurnProcessing, ev.Type)
	assert.Equal(t, "req-1", ev.RequestID)
	assert.Equal(t, gameID.String(), ev.GameID)
	assert.Equal(t, "p1", ev.Data["player_id"])

	require.NoError(t, b.PublishTurnCompleted(ctx, gameID, "req-1", map[string]any{"content": "hi"}, "fallback"))
	ev = receive(t, sub)
	assert.Equal(t, EventTypeTurnCompleted, ev.Type)
	assert.Equal(t, "fallback", ev.Data["warning"])

	require.NoError(t, b.PublishTurnFailed(ctx, gameID, "req-2", "boom"))
	ev = receive(t, sub)
	assert.Equal(t, EventTypeTurnFailed, ev.Type)
	assert.Equal(t, "boom", ev.Data["error"])

	require.NoError(t, b.PublishGameStateUpdated(ctx, gameID, 3, "p2"))
	ev = receive(t, sub)
	assert.Equal(t, EventTypeGameStateUpdated, ev.Type)
	assert.EqualValues(t, 3, ev.Data["round_number"])
}

func TestBroadcaster_PublishError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = client.Close() }()
	b := NewBroadcaster(client, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mr.Close()
	assert.Error(t, b.PublishTurnFailed(context.Background(), uuid.New(), "r", "x"))
}

func TestBroadcaster_Subscribe(t *testing.T) {
	b, _ := setupBroadcaster(t)
	ctx := context.Background()
	gameID := uuid.New()

	sub, err := b.Subscribe(ctx, gameID)
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	require.NoError(t, b.PublishTurnFailed(ctx, gameID, "req-9", "boom"))
	ev := receive(t, sub)
	assert.Equal(t, EventTypeTurnFailed, ev.Type)
	assert.Equal(t, "req-9", ev.RequestID)

	// other games are not delivered
	require.NoError(t, b.PublishTurnFailed(ctx, uuid.New(), "req-10", "boom"))
	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = sub.ReceiveMessage(short)
	assert.Error(t, err)
}
