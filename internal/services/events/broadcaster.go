package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeTurnProcessing   EventType = "turn.processing"
	EventTypeTurnCompleted    EventType = "turn.completed"
	EventTypeTurnFailed       EventType = "turn.failed"
	EventTypeGameStateUpdated EventType = "game.state_updated"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType      `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	GameID    string         `json:"game_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Channel returns the pub/sub channel for a game.
func Channel(gameID uuid.UUID) string {
	return fmt.Sprintf("game-events:%s", gameID.String())
}

// Broadcaster publishes events to Redis Pub/Sub so every client of a game
// sees each turn.
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishTurnProcessing publishes a turn.processing event
func (b *Broadcaster) PublishTurnProcessing(ctx context.Context, gameID uuid.UUID, requestID, action, playerID string) error {
	event := Event{
		Type:      EventTypeTurnProcessing,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data: map[string]any{
			"status":    "processing",
			"action":    action,
			"player_id": playerID,
		},
	}
	return b.publishToGame(ctx, gameID, event)
}

// PublishTurnCompleted publishes a turn.completed event carrying the response
func (b *Broadcaster) PublishTurnCompleted(ctx context.Context, gameID uuid.UUID, requestID string, response any, warning string) error {
	data := map[string]any{
		"status":   "completed",
		"response": response,
	}
	if warning != "" {
		data["warning"] = warning
	}
	event := Event{
		Type:      EventTypeTurnCompleted,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data:      data,
	}
	return b.publishToGame(ctx, gameID, event)
}

// PublishTurnFailed publishes a turn.failed event
func (b *Broadcaster) PublishTurnFailed(ctx context.Context, gameID uuid.UUID, requestID string, errorMsg string) error {
	event := Event{
		Type:      EventTypeTurnFailed,
		RequestID: requestID,
		GameID:    gameID.String(),
		Data: map[string]any{
			"status": "failed",
			"error":  errorMsg,
		},
	}
	return b.publishToGame(ctx, gameID, event)
}

// PublishGameStateUpdated publishes a game.state_updated event
func (b *Broadcaster) PublishGameStateUpdated(ctx context.Context, gameID uuid.UUID, round int, currentTurn string) error {
	event := Event{
		Type:   EventTypeGameStateUpdated,
		GameID: gameID.String(),
		Data: map[string]any{
			"round_number": round,
			"current_turn": currentTurn,
		},
	}
	return b.publishToGame(ctx, gameID, event)
}

// Subscribe listens on a game's channel. It returns once Redis has
// confirmed the subscription, so no event published afterwards is missed.
// The caller must close the returned PubSub.
func (b *Broadcaster) Subscribe(ctx context.Context, gameID uuid.UUID) (*redis.PubSub, error) {
	pubsub := b.redisClient.Subscribe(ctx, Channel(gameID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Channel(gameID), err)
	}
	return pubsub, nil
}

// publishToGame publishes an event to the game-specific channel
func (b *Broadcaster) publishToGame(ctx context.Context, gameID uuid.UUID, event Event) error {
	channel := Channel(gameID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)

	return nil
}
