package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes returned in the error envelope.
const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeMissingParameters     = "MISSING_PARAMETERS"
	CodeDMProcess             = "DM_PROCESS_ERROR"
	CodeBackstoryFailed       = "BACKSTORY_GENERATION_FAILED"
	CodeAdventureHookFailed   = "ADVENTURE_HOOK_GENERATION_FAILED"
	CodeRateLimitExceeded     = "RATE_LIMIT_EXCEEDED"
	CodeNotFound              = "NOT_FOUND"
	CodeTurnInProgress        = "TURN_IN_PROGRESS"
	CodeNotYourTurn           = "NOT_YOUR_TURN"
	CodeMethodNotAllowed      = "METHOD_NOT_ALLOWED"
	CodeInternal              = "INTERNAL_ERROR"
	CodeServiceUnavailable    = "SERVICE_UNAVAILABLE"
	CodeInvalidRequestPayload = "INVALID_REQUEST"
	CodePayloadTooLarge       = "PAYLOAD_TOO_LARGE"
)

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope wraps every API response.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Warning string     `json:"warning,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// WriteData writes a successful envelope.
func WriteData(w http.ResponseWriter, status int, data any, warning string) {
	writeEnvelope(w, status, Envelope{Success: true, Data: data, Warning: warning})
}

// WriteError writes a failed envelope.
func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	writeEnvelope(w, status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message, Details: details},
	})
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
