package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"

	"github.com/jwebster45206/dungeon-master/pkg/chat"
	"github.com/jwebster45206/dungeon-master/pkg/state"
	"github.com/jwebster45206/dungeon-master/pkg/storage"
)

func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rs, err := NewRedisStorage("redis://"+mr.Addr(), logger)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create storage: %v", err)
	}

	t.Cleanup(func() {
		_ = rs.Close()
		mr.Close()
	})
	return rs, mr
}

func TestNewRedisStorage_BareAddress(t *testing.T) {
	mr := miniredis.RunT(t)
	rs, err := NewRedisStorage(mr.Addr(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = rs.Close() }()

	if err := rs.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStorage_BadURL(t *testing.T) {
	if _, err := NewRedisStorage("redis://localhost:6379/notanumber", slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Error("expected error for malformed URL")
	}
}

func TestRedisStorage_GameStateRoundTrip(t *testing.T) {
	rs, mr := setupTestRedis(t)
	ctx := context.Background()
	id := uuid.New()

	gs := state.NewGameState()
	gs.Scene = "The tavern"
	gs.CurrentTurn = "p1"
	gs.RoundNumber = 4

	if err := rs.SaveGameState(ctx, id, gs); err != nil {
		t.Fatalf("Failed to save gamestate: %v", err)
	}
	if !mr.Exists("gamestate:" + id.String()) {
		t.Fatal("expected gamestate key in redis")
	}
	if ttl := mr.TTL("gamestate:" + id.String()); ttl != sessionTTL {
		t.Errorf("expected TTL %v, got %v", sessionTTL, ttl)
	}

	loaded, err := rs.LoadGameState(ctx, id)
	if err != nil {
		t.Fatalf("Failed to load gamestate: %v", err)
	}
	if loaded == nil || loaded.Scene != "The tavern" || loaded.RoundNumber != 4 {
		t.Errorf("unexpected gamestate: %+v", loaded)
	}
}

func TestRedisStorage_LoadMissing(t *testing.T) {
	rs, _ := setupTestRedis(t)

	loaded, err := rs.LoadGameState(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Expected no error for non-existent gamestate, got: %v", err)
	}
	if loaded != nil {
		t.Error("Expected nil for non-existent gamestate")
	}
}

func TestRedisStorage_LoadCorruptFallsBackToDefault(t *testing.T) {
	rs, mr := setupTestRedis(t)
	id := uuid.New()
	if err := mr.Set("gamestate:"+id.String(), "{not json"); err != nil {
		t.Fatal(err)
	}

	loaded, err := rs.LoadGameState(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded == nil || loaded.RoundNumber != 1 || loaded.Environment.Lighting != state.LightingBright {
		t.Errorf("expected default state, got %+v", loaded)
	}
}

func TestRedisStorage_Messages(t *testing.T) {
	rs, mr := setupTestRedis(t)
	ctx := context.Background()
	gameID := uuid.New()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, content := range []string{"one", "two", "three"} {
		msg := chat.NewMessage(gameID, chat.RolePlayer, content, now.Add(time.Duration(i)*time.Second))
		if err := rs.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	all, err := rs.ListMessages(ctx, gameID, 0)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(all) != 3 || all[0].Content != "one" || all[2].Content != "three" {
		t.Errorf("unexpected messages: %+v", all)
	}

	last, err := rs.ListMessages(ctx, gameID, 2)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(last) != 2 || last[0].Content != "two" || last[1].Content != "three" {
		t.Errorf("expected last two messages oldest first, got %+v", last)
	}

	if ttl := mr.TTL("messages:" + gameID.String()); ttl != sessionTTL {
		t.Errorf("expected message log TTL %v, got %v", sessionTTL, ttl)
	}

	if err := rs.DeleteGameState(ctx, gameID); err != nil {
		t.Fatalf("DeleteGameState failed: %v", err)
	}
	if mr.Exists("messages:" + gameID.String()) {
		t.Error("message log should be removed with the game")
	}
}

func TestRedisStorage_Lock(t *testing.T) {
	rs, mr := setupTestRedis(t)
	ctx := context.Background()
	id := uuid.New()

	if err := rs.LockGame(ctx, id, "turn-a", 30*time.Second); err != nil {
		t.Fatalf("first lock should succeed: %v", err)
	}
	if err := rs.LockGame(ctx, id, "turn-b", 30*time.Second); !errors.Is(err, storage.ErrLocked) {
		t.Fatalf("second lock should fail with ErrLocked, got %v", err)
	}

	// A non-owner cannot release the lock
	if err := rs.UnlockGame(ctx, id, "turn-b"); err != nil {
		t.Fatalf("UnlockGame failed: %v", err)
	}
	if !mr.Exists(lockKey(id)) {
		t.Fatal("lock released by non-owner")
	}

	if err := rs.UnlockGame(ctx, id, "turn-a"); err != nil {
		t.Fatalf("UnlockGame failed: %v", err)
	}
	if err := rs.LockGame(ctx, id, "turn-b", 30*time.Second); err != nil {
		t.Fatalf("lock should be free after release: %v", err)
	}

	// Expired locks free themselves
	mr.FastForward(31 * time.Second)
	if err := rs.LockGame(ctx, id, "turn-c", 30*time.Second); err != nil {
		t.Errorf("expired lock should be free: %v", err)
	}
}

func TestRedisStorage_WaitForConnection(t *testing.T) {
	rs, mr := setupTestRedis(t)
	ctx := context.Background()

	if err := rs.waitForConnection(ctx, 3, time.Millisecond); err != nil {
		t.Fatalf("expected connection, got %v", err)
	}

	mr.Close()
	if err := rs.waitForConnection(ctx, 2, time.Millisecond); err == nil {
		t.Error("expected error once redis is gone")
	}
}
