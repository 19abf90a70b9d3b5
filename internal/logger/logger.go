package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/jwebster45206/dungeon-master/internal/config"
	"github.com/jwebster45206/dungeon-master/pkg/dm"
)

const service = "dungeon-master"

// Setup installs the process-wide logger: JSON on stdout in production,
// text elsewhere.
func Setup(cfg *config.Config) *slog.Logger {
	l := New(os.Stdout, cfg)
	slog.SetDefault(l)
	return l
}

// New builds a logger writing to w at the configured level. Every record
// carries the service name and environment.
func New(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var h slog.Handler
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("service", service, "environment", cfg.Environment)
}

// WithRequestID tags entries with the X-Request-ID of the request.
func WithRequestID(l *slog.Logger, requestID string) *slog.Logger {
	if requestID == "" {
		return l
	}
	return l.With("request_id", requestID)
}

// WithError attaches err as a string. A nil error leaves l unchanged.
func WithError(l *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return l
	}
	return l.With("error", err.Error())
}

// WithGame tags entries with a game session.
func WithGame(l *slog.Logger, gameID uuid.UUID) *slog.Logger {
	return l.With("game_id", gameID.String())
}

// WithTurn tags entries for one turn of a game: who acted and how.
func WithTurn(l *slog.Logger, gameID uuid.UUID, requestID string, action dm.Action, playerID string) *slog.Logger {
	l = WithRequestID(WithGame(l, gameID), requestID)
	l = l.With("action", action)
	if playerID != "" {
		l = l.With("player_id", playerID)
	}
	return l
}
