package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwebster45206/dungeon-master/pkg/chat"
)

func messagesKey(id uuid.UUID) string {
	return "messages:" + id.String()
}

// AppendMessage adds a line to the end of a game's log.
func (r *RedisStorage) AppendMessage(ctx context.Context, msg *chat.Message) error {
	if msg == nil {
		return errors.New("message cannot be nil")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := messagesKey(msg.GameID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to append message", "game_id", msg.GameID, "error", err)
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListMessages returns the last limit messages, oldest first.
func (r *RedisStorage) ListMessages(ctx context.Context, gameID uuid.UUID, limit int) ([]chat.Message, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	raw, err := r.client.LRange(ctx, messagesKey(gameID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]chat.Message, 0, len(raw))
	for _, item := range raw {
		var m chat.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			r.logger.Warn("Skipping unreadable message", "game_id", gameID, "error", err)
			continue
		}
		messages = append(messages, m)
	}
	return messages, nil
}
