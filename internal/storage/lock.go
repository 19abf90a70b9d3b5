package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dungeon-master/pkg/storage"
)

// releaseScript deletes the lock only if the caller still owns it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

func lockKey(id uuid.UUID) string {
	return fmt.Sprintf("game-lock:%s", id.String())
}

// LockGame takes the per-game turn lock. It returns storage.ErrLocked when
// another owner holds it. The lock expires after ttl in case the holder dies.
func (r *RedisStorage) LockGame(ctx context.Context, id uuid.UUID, owner string, ttl time.Duration) error {
	ok, err := r.client.SetNX(ctx, lockKey(id), owner, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire game lock: %w", err)
	}
	if !ok {
		return storage.ErrLocked
	}
	return nil
}

// UnlockGame releases the lock if owner still holds it.
func (r *RedisStorage) UnlockGame(ctx context.Context, id uuid.UUID, owner string) error {
	if err := releaseScript.Run(ctx, r.client, []string{lockKey(id)}, owner).Err(); err != nil {
		r.logger.Error("Failed to release game lock", "error", err, "game_id", id.String())
		return fmt.Errorf("failed to release game lock: %w", err)
	}
	return nil
}
