package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/dungeon-master/internal/services/events"
)

const keepaliveInterval = 30 * time.Second

// EventsHandler streams a game's turn events as Server-Sent Events.
type EventsHandler struct {
	broadcaster *events.Broadcaster
	logger      *slog.Logger
	keepalive   time.Duration
}

func NewEventsHandler(broadcaster *events.Broadcaster, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		broadcaster: broadcaster,
		logger:      logger,
		keepalive:   keepaliveInterval,
	}
}

// ServeHTTP handles GET /v1/events/games/{gameID}
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		WriteError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed. Only GET is supported.", nil)
		return
	}

	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) != 4 || pathParts[0] != "v1" || pathParts[1] != "events" || pathParts[2] != "games" {
		WriteError(w, http.StatusNotFound, CodeNotFound, "Invalid path. Expected /v1/events/games/{gameID}", nil)
		return
	}
	gameID, err := uuid.Parse(pathParts[3])
	if err != nil {
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid game ID format", nil)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, CodeInternal, "Streaming is not supported", nil)
		return
	}

	pubsub, err := h.broadcaster.Subscribe(r.Context(), gameID)
	if err != nil {
		h.logger.Error("Failed to subscribe to game events", "error", err, "game_id", gameID.String())
		WriteError(w, http.StatusServiceUnavailable, CodeServiceUnavailable, "Event stream unavailable", nil)
		return
	}
	defer func() {
		if err := pubsub.Close(); err != nil {
			h.logger.Error("Failed to close pubsub", "error", err)
		}
	}()

	h.logger.Info("SSE connection established",
		"game_id", gameID.String(),
		"remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.sendSSE(w, flusher, "connected", map[string]any{
		"game_id": gameID.String(),
		"message": "Connected to event stream",
	})

	msgChan := pubsub.Channel()
	keepaliveTicker := time.NewTicker(h.keepalive)
	defer keepaliveTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected", "game_id", gameID.String())
			return

		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			var event events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Error("Failed to unmarshal event", "error", err, "payload", msg.Payload)
				continue
			}
			h.sendSSE(w, flusher, string(event.Type), event)

		case <-keepaliveTicker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		h.logger.Error("Failed to write event", "error", err)
		return
	}
	flusher.Flush()
}
