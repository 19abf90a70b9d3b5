package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/dungeon-master/internal/dungeonmaster"
	"github.com/jwebster45206/dungeon-master/pkg/dm"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 500
)

// GameBody carries a full game state in create and replace requests.
type GameBody struct {
	GameState *state.GameState `json:"game_state"`
}

// GameResponse is a stored game.
type GameResponse struct {
	ID        uuid.UUID        `json:"id"`
	GameState *state.GameState `json:"game_state"`
}

// GamesHandler serves stored games and their turns.
type GamesHandler struct {
	sessions *dungeonmaster.Sessions
	logger   *slog.Logger
}

func NewGamesHandler(sessions *dungeonmaster.Sessions, logger *slog.Logger) *GamesHandler {
	return &GamesHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// ServeHTTP routes:
// POST   /v1/games               - Create a game
// GET    /v1/games/{id}          - Read a game
// PUT    /v1/games/{id}          - Replace a game's state
// DELETE /v1/games/{id}          - Delete a game and its log
// GET    /v1/games/{id}/messages - Read the game's message log
// POST   /v1/games/{id}/turns    - Play a turn
func (h *GamesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/games"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.Split(path, "/")
	gameID, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid game ID", "id", parts[0], "error", err)
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid game ID format", nil)
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleRead(w, r, gameID)
		case http.MethodPut:
			h.handleReplace(w, r, gameID)
		case http.MethodDelete:
			h.handleDelete(w, r, gameID)
		default:
			h.methodNotAllowed(w, "GET, PUT, DELETE")
		}
	case len(parts) == 2 && parts[1] == "messages":
		if r.Method != http.MethodGet {
			h.methodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleMessages(w, r, gameID)
	case len(parts) == 2 && parts[1] == "turns":
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleTurn(w, r, gameID)
	default:
		WriteError(w, http.StatusNotFound, CodeNotFound, "Endpoint not found", nil)
	}
}

func (h *GamesHandler) methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	WriteError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed. Supported methods: "+allow, nil)
}

func (h *GamesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body GameBody
	if !h.decode(w, r, &body) {
		return
	}
	id, err := h.sessions.Create(r.Context(), body.GameState)
	if err != nil {
		h.writeSessionError(w, err, uuid.Nil)
		return
	}
	WriteData(w, http.StatusCreated, GameResponse{ID: id, GameState: body.GameState}, "")
}

func (h *GamesHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	gs, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.writeSessionError(w, err, id)
		return
	}
	WriteData(w, http.StatusOK, GameResponse{ID: id, GameState: gs}, "")
}

func (h *GamesHandler) handleReplace(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var body GameBody
	if !h.decode(w, r, &body) {
		return
	}
	if err := h.sessions.Replace(r.Context(), id, body.GameState); err != nil {
		h.writeSessionError(w, err, id)
		return
	}
	WriteData(w, http.StatusOK, GameResponse{ID: id, GameState: body.GameState}, "")
}

func (h *GamesHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		h.writeSessionError(w, err, id)
		return
	}
	WriteData(w, http.StatusOK, map[string]string{"id": id.String()}, "")
}

func (h *GamesHandler) handleMessages(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	limit := defaultMessageLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxMessageLimit {
			WriteError(w, http.StatusBadRequest, CodeValidation,
				fmt.Sprintf("limit must be between 1 and %d", maxMessageLimit), nil)
			return
		}
		limit = n
	}

	msgs, err := h.sessions.Messages(r.Context(), id, limit)
	if err != nil {
		h.writeSessionError(w, err, id)
		return
	}
	WriteData(w, http.StatusOK, msgs, "")
}

func (h *GamesHandler) handleTurn(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req dungeonmaster.TurnRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.sessions.PlayTurn(r.Context(), id, req)
	if err != nil {
		h.writeSessionError(w, err, id)
		return
	}
	WriteData(w, http.StatusOK, res, res.Warning)
}

// decode reads a strict JSON body into v and reports whether it succeeded.
func (h *GamesHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, ok := readBody(w, r, h.logger)
	if !ok {
		return false
	}
	if err := decodeStrict(body, v); err != nil {
		h.logger.Warn("Invalid request body", "error", err, "path", r.URL.Path)
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid request data", []string{err.Error()})
		return false
	}
	return true
}

func (h *GamesHandler) writeSessionError(w http.ResponseWriter, err error, id uuid.UUID) {
	var verr *dm.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid request data", verr.Details)
	case errors.Is(err, dungeonmaster.ErrGameNotFound):
		WriteError(w, http.StatusNotFound, CodeNotFound, "Game not found", nil)
	case errors.Is(err, dungeonmaster.ErrTurnInProgress):
		WriteError(w, http.StatusConflict, CodeTurnInProgress, "A turn is already in progress for this game", nil)
	case errors.Is(err, dungeonmaster.ErrNotYourTurn):
		WriteError(w, http.StatusConflict, CodeNotYourTurn, "It is not this player's turn", nil)
	case errors.Is(err, dungeonmaster.ErrProcessingFailed):
		h.logger.Error("Turn processing failed", "error", err, "game_id", id.String())
		WriteError(w, http.StatusInternalServerError, CodeDMProcess, "Failed to process DM request", nil)
	default:
		h.logger.Error("Game request failed", "error", err, "game_id", id.String())
		WriteError(w, http.StatusInternalServerError, CodeInternal, "Internal server error", nil)
	}
}
