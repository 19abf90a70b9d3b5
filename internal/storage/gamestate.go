package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dungeon-master/pkg/state"
)

func gameStateKey(id uuid.UUID) string {
	return "gamestate:" + id.String()
}

// GameState operations

func (r *RedisStorage) SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	if gs == nil {
		return errors.New("gamestate cannot be nil")
	}

	data, err := json.Marshal(gs)
	if err != nil {
		r.logger.Error("Failed to marshal gamestate", "game_id", id, "error", err)
		return fmt.Errorf("failed to marshal gamestate: %w", err)
	}

	if err := r.client.Set(ctx, gameStateKey(id), data, sessionTTL).Err(); err != nil {
		r.logger.Error("Failed to save gamestate", "game_id", id, "error", err)
		return fmt.Errorf("failed to save gamestate: %w", err)
	}

	return nil
}

// LoadGameState returns nil, nil when the game does not exist. A stored
// value that no longer decodes is replaced by a fresh state rather than
// failing the game.
func (r *RedisStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	data, err := r.client.Get(ctx, gameStateKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		r.logger.Error("Failed to load gamestate", "game_id", id, "error", err)
		return nil, fmt.Errorf("failed to load gamestate: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var gs state.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		r.logger.Warn("Stored gamestate is unreadable, using default state", "game_id", id, "error", err)
		return state.NewGameState(), nil
	}

	return &gs, nil
}

// DeleteGameState removes the state and its message log.
func (r *RedisStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, gameStateKey(id), messagesKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete gamestate", "game_id", id, "error", err)
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	return nil
}
