package handlers

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/dungeon-master/internal/dungeonmaster"
	"github.com/jwebster45206/dungeon-master/pkg/dm"
)

// DMHandler serves the stateless dungeon master endpoints.
type DMHandler struct {
	dispatcher *dungeonmaster.Dispatcher
	logger     *slog.Logger
}

func NewDMHandler(dispatcher *dungeonmaster.Dispatcher, logger *slog.Logger) *DMHandler {
	return &DMHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ServeHTTP routes:
// POST /v1/dm/process        - Run one dungeon master turn
// POST /v1/dm/backstory      - Generate a character backstory
// POST /v1/dm/adventure-hook - Generate an adventure hook
func (h *DMHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		WriteError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed. Only POST is supported.", nil)
		return
	}

	switch strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/dm"), "/") {
	case "/process":
		h.handleProcess(w, r)
	case "/backstory":
		h.handleBackstory(w, r)
	case "/adventure-hook":
		h.handleAdventureHook(w, r)
	default:
		WriteError(w, http.StatusNotFound, CodeNotFound, "Endpoint not found", nil)
	}
}

func (h *DMHandler) handleProcess(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r, h.logger)
	if !ok {
		return
	}

	req, err := dm.DecodeRequest(bytes.NewReader(body))
	if err == nil {
		var res *dungeonmaster.Result
		res, err = h.dispatcher.Process(r.Context(), req)
		if err == nil {
			WriteData(w, http.StatusOK, res.Response, res.Warning)
			return
		}
	}

	var verr *dm.ValidationError
	if errors.As(err, &verr) {
		h.logger.Warn("Invalid DM request", "error", err)
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid request data", verr.Details)
		return
	}
	h.logger.Error("DM processing failed", "error", err)
	WriteError(w, http.StatusInternalServerError, CodeDMProcess, "Failed to process DM request", nil)
}

func (h *DMHandler) handleBackstory(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r, h.logger)
	if !ok {
		return
	}

	var req dm.BackstoryRequest
	if err := decodeStrict(body, &req); err != nil {
		h.logger.Warn("Invalid backstory request body", "error", err)
		WriteError(w, http.StatusBadRequest, CodeInvalidRequestPayload, "Invalid request body", nil)
		return
	}

	res, err := h.dispatcher.Backstory(r.Context(), &req)
	if errors.Is(err, dm.ErrMissingParameters) {
		WriteError(w, http.StatusBadRequest, CodeMissingParameters, "Character class and name are required", nil)
		return
	}
	if err != nil {
		h.logger.Error("Backstory generation failed", "error", err)
		WriteError(w, http.StatusInternalServerError, CodeBackstoryFailed, "Failed to generate backstory", nil)
		return
	}
	WriteData(w, http.StatusOK, map[string]string{"backstory": res.Text}, res.Warning)
}

func (h *DMHandler) handleAdventureHook(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r, h.logger)
	if !ok {
		return
	}

	var req dm.AdventureHookRequest
	if err := decodeStrict(body, &req); err != nil {
		h.logger.Warn("Invalid adventure hook request body", "error", err)
		WriteError(w, http.StatusBadRequest, CodeInvalidRequestPayload, "Invalid request body", nil)
		return
	}

	res, err := h.dispatcher.AdventureHook(r.Context(), &req)
	if errors.Is(err, dm.ErrMissingParameters) {
		WriteError(w, http.StatusBadRequest, CodeMissingParameters, "Party level and player classes are required", nil)
		return
	}
	if err != nil {
		h.logger.Error("Adventure hook generation failed", "error", err)
		WriteError(w, http.StatusInternalServerError, CodeAdventureHookFailed, "Failed to generate adventure hook", nil)
		return
	}
	WriteData(w, http.StatusOK, map[string]string{"adventureHook": res.Text}, res.Warning)
}
