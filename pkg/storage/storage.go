package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/dungeon-master/pkg/chat"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

// ErrLocked is returned when another turn already holds a game's lock.
var ErrLocked = errors.New("game is locked")

// Storage defines a unified interface for all storage operations
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// GameState operations
	// LoadGameState returns nil, nil when the game does not exist.
	SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error
	LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error)
	DeleteGameState(ctx context.Context, id uuid.UUID) error

	// Message log operations
	// ListMessages returns the last limit messages oldest first; limit <= 0
	// returns all of them.
	AppendMessage(ctx context.Context, msg *chat.Message) error
	ListMessages(ctx context.Context, gameID uuid.UUID, limit int) ([]chat.Message, error)

	// Per-game turn lock. Only the owner can release it.
	LockGame(ctx context.Context, id uuid.UUID, owner string, ttl time.Duration) error
	UnlockGame(ctx context.Context, id uuid.UUID, owner string) error
}
