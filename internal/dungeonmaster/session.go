package dungeonmaster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/dungeon-master/internal/logger"
	"github.com/jwebster45206/dungeon-master/pkg/chat"
	"github.com/jwebster45206/dungeon-master/pkg/dm"
	"github.com/jwebster45206/dungeon-master/pkg/state"
	"github.com/jwebster45206/dungeon-master/pkg/storage"
)

var (
	ErrGameNotFound   = errors.New("game not found")
	ErrTurnInProgress = errors.New("a turn is already in progress for this game")
	ErrNotYourTurn    = errors.New("it is not this player's turn")
)

const defaultLockTTL = 60 * time.Second

// EventPublisher announces turn progress to game subscribers.
type EventPublisher interface {
	PublishTurnProcessing(ctx context.Context, gameID uuid.UUID, requestID, action, playerID string) error
	PublishTurnCompleted(ctx context.Context, gameID uuid.UUID, requestID string, response any, warning string) error
	PublishTurnFailed(ctx context.Context, gameID uuid.UUID, requestID string, errorMsg string) error
	PublishGameStateUpdated(ctx context.Context, gameID uuid.UUID, round int, currentTurn string) error
}

// TurnRequest is a player's move in a stored game.
type TurnRequest struct {
	Action       dm.Action      `json:"action"`
	PlayerAction string         `json:"player_action,omitempty"`
	PlayerID     string         `json:"player_id,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
}

// TurnResult is what a played turn produced.
type TurnResult struct {
	RequestID string           `json:"request_id"`
	Response  *dm.Response     `json:"response"`
	Warning   string           `json:"-"`
	GameState *state.GameState `json:"game_state"`
}

type SessionsConfig struct {
	Store            storage.Storage
	Dispatcher       *Dispatcher
	Events           EventPublisher // optional
	EnforceTurnOrder bool
	LockTTL          time.Duration
	Logger           *slog.Logger
	Clock            func() time.Time
}

// Sessions manages stored games and plays turns against them, one turn
// per game at a time.
type Sessions struct {
	store      storage.Storage
	dispatcher *Dispatcher
	events     EventPublisher
	enforce    bool
	lockTTL    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewSessions(cfg SessionsConfig) *Sessions {
	s := &Sessions{
		store:      cfg.Store,
		dispatcher: cfg.Dispatcher,
		events:     cfg.Events,
		enforce:    cfg.EnforceTurnOrder,
		lockTTL:    cfg.LockTTL,
		logger:     cfg.Logger,
		now:        cfg.Clock,
	}
	if s.lockTTL <= 0 {
		s.lockTTL = defaultLockTTL
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create stores a new game with the given initial state.
func (s *Sessions) Create(ctx context.Context, gs *state.GameState) (uuid.UUID, error) {
	if err := dm.ValidateGameState(gs); err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	if err := s.store.SaveGameState(ctx, id, gs); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save game state: %w", err)
	}
	s.logger.Info("Game created", "game_id", id.String())
	return id, nil
}

func (s *Sessions) Get(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	gs, err := s.store.LoadGameState(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load game state: %w", err)
	}
	if gs == nil {
		return nil, ErrGameNotFound
	}
	return gs, nil
}

// Replace overwrites the state of an existing game.
func (s *Sessions) Replace(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	if err := dm.ValidateGameState(gs); err != nil {
		return err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.SaveGameState(ctx, id, gs); err != nil {
		return fmt.Errorf("failed to save game state: %w", err)
	}
	s.publishStateUpdated(ctx, id, gs)
	return nil
}

func (s *Sessions) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteGameState(ctx, id); err != nil {
		return fmt.Errorf("failed to delete game state: %w", err)
	}
	s.logger.Info("Game deleted", "game_id", id.String())
	return nil
}

// Messages returns the last limit log lines of a game, oldest first.
func (s *Sessions) Messages(ctx context.Context, id uuid.UUID, limit int) ([]chat.Message, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// PlayTurn runs one turn of a stored game: it takes the game's lock,
// dispatches the request against the current state, applies the returned
// updates, logs both sides of the exchange and saves the result.
func (s *Sessions) PlayTurn(ctx context.Context, gameID uuid.UUID, req TurnRequest) (*TurnResult, error) {
	requestID := uuid.NewString()
	log := logger.WithTurn(s.logger, gameID, requestID, req.Action, req.PlayerID)

	if req.PlayerAction != "" {
		if err := chat.ValidateContent(req.PlayerAction); err != nil {
			return nil, &dm.ValidationError{Details: []string{"player_action: " + err.Error()}}
		}
	}

	if err := s.store.LockGame(ctx, gameID, requestID, s.lockTTL); err != nil {
		if errors.Is(err, storage.ErrLocked) {
			return nil, ErrTurnInProgress
		}
		return nil, fmt.Errorf("failed to lock game: %w", err)
	}
	defer func() {
		if err := s.store.UnlockGame(context.WithoutCancel(ctx), gameID, requestID); err != nil {
			log.Error("Failed to release game lock", "error", err)
		}
	}()

	gs, err := s.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	if s.enforce && gs.CurrentTurn != "" && req.PlayerID != gs.CurrentTurn {
		log.Info("Rejected out-of-turn action", "current_turn", gs.CurrentTurn)
		return nil, ErrNotYourTurn
	}

	if s.events != nil {
		if err := s.events.PublishTurnProcessing(ctx, gameID, requestID, string(req.Action), req.PlayerID); err != nil {
			log.Error("Failed to publish processing event", "error", err)
		}
	}

	res, err := s.dispatcher.Process(ctx, &dm.Request{
		Action:       req.Action,
		GameState:    gs,
		PlayerAction: req.PlayerAction,
		PlayerID:     req.PlayerID,
		Context:      req.Context,
	})
	if err != nil {
		s.publishFailed(ctx, gameID, requestID, err)
		return nil, err
	}

	resp := res.Response
	if resp.GameStateUpdates != nil {
		gs = s.applyUpdates(gs, resp, log)
	}

	now := s.now()
	if req.PlayerAction != "" {
		pm := chat.NewMessage(gameID, chat.RolePlayer, req.PlayerAction, now)
		pm.PlayerID = req.PlayerID
		pm.Type = string(req.Action)
		if err := s.store.AppendMessage(ctx, pm); err != nil {
			s.publishFailed(ctx, gameID, requestID, err)
			return nil, fmt.Errorf("failed to append player message: %w", err)
		}
	}
	dmMsg := chat.NewMessage(gameID, chat.RoleDM, resp.Content, now)
	dmMsg.Type = string(resp.Type)
	if err := s.store.AppendMessage(ctx, dmMsg); err != nil {
		s.publishFailed(ctx, gameID, requestID, err)
		return nil, fmt.Errorf("failed to append dm message: %w", err)
	}

	if err := s.store.SaveGameState(ctx, gameID, gs); err != nil {
		s.publishFailed(ctx, gameID, requestID, err)
		return nil, fmt.Errorf("failed to save game state: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishTurnCompleted(ctx, gameID, requestID, resp, res.Warning); err != nil {
			log.Error("Failed to publish completed event", "error", err)
		}
	}
	s.publishStateUpdated(ctx, gameID, gs)

	log.Info("Turn completed", "type", resp.Type, "round", gs.RoundNumber, "fallback", res.Warning != "")
	return &TurnResult{
		RequestID: requestID,
		Response:  resp,
		Warning:   res.Warning,
		GameState: gs,
	}, nil
}

// applyUpdates returns gs with the response's patch applied, or gs
// unchanged when the patched state would no longer be playable. A rejected
// patch is removed from the response; the narrative stays.
func (s *Sessions) applyUpdates(gs *state.GameState, resp *dm.Response, log *slog.Logger) *state.GameState {
	next, err := gs.DeepCopy()
	if err != nil {
		log.Error("Failed to copy game state, dropping patch", "error", err)
		resp.GameStateUpdates = nil
		return gs
	}
	next.ApplyDelta(resp.GameStateUpdates)

	err = dm.ValidateGameState(next)
	if err == nil && len(next.TurnOrder) > 0 && !next.HasTurnEntry(next.CurrentTurn) {
		err = fmt.Errorf("current_turn %q is not in turn_order", next.CurrentTurn)
	}
	if err != nil {
		log.Warn("Discarding invalid game state patch", "error", err)
		resp.GameStateUpdates = nil
		return gs
	}
	return next
}

func (s *Sessions) publishFailed(ctx context.Context, gameID uuid.UUID, requestID string, cause error) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTurnFailed(ctx, gameID, requestID, cause.Error()); err != nil {
		logger.WithGame(s.logger, gameID).Error("Failed to publish failed event", "error", err)
	}
}

func (s *Sessions) publishStateUpdated(ctx context.Context, gameID uuid.UUID, gs *state.GameState) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishGameStateUpdated(ctx, gameID, gs.RoundNumber, gs.CurrentTurn); err != nil {
		logger.WithGame(s.logger, gameID).Error("Failed to publish state event", "error", err)
	}
}

// Ping checks the backing store.
func (s *Sessions) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
