package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/dungeon-master/pkg/chat"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu         sync.RWMutex
	gamestates map[uuid.UUID]*state.GameState
	messages   map[uuid.UUID][]chat.Message
	locks      map[uuid.UUID]string
	pingError  error
	saveError  error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		gamestates: make(map[uuid.UUID]*state.GameState),
		messages:   make(map[uuid.UUID][]chat.Message),
		locks:      make(map[uuid.UUID]string),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail on SaveGameState
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveGameState stores a copy so callers cannot mutate stored state.
func (m *MockStorage) SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	if gs == nil {
		return errors.New("gamestate cannot be nil")
	}
	c, err := gs.DeepCopy()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.gamestates[id] = c
	return nil
}

// LoadGameState returns a copy of the stored state, or nil.
func (m *MockStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	m.mu.RLock()
	gs, ok := m.gamestates[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return gs.DeepCopy()
}

// DeleteGameState removes the state and its message log.
func (m *MockStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.gamestates, id)
	delete(m.messages, id)
	return nil
}

func (m *MockStorage) AppendMessage(ctx context.Context, msg *chat.Message) error {
	if msg == nil {
		return errors.New("message cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.GameID] = append(m.messages[msg.GameID], *msg)
	return nil
}

func (m *MockStorage) ListMessages(ctx context.Context, gameID uuid.UUID, limit int) ([]chat.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.messages[gameID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]chat.Message, len(all))
	copy(out, all)
	return out, nil
}

// LockGame ignores ttl; locks are held until released.
func (m *MockStorage) LockGame(ctx context.Context, id uuid.UUID, owner string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[id]; held {
		return ErrLocked
	}
	m.locks[id] = owner
	return nil
}

func (m *MockStorage) UnlockGame(ctx context.Context, id uuid.UUID, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[id] == owner {
		delete(m.locks, id)
	}
	return nil
}

// IsLocked reports whether a lock is currently held for id.
func (m *MockStorage) IsLocked(id uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, held := m.locks[id]
	return held
}
