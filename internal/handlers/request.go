package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const maxBodyBytes = 1 << 20

// readBody reads the request body up to maxBodyBytes. On failure it writes
// the error response (413 for an oversized body) and returns false.
func readBody(w http.ResponseWriter, r *http.Request, logger *slog.Logger) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err == nil {
		return data, true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		logger.Warn("Request body too large", "limit", tooLarge.Limit, "path", r.URL.Path)
		WriteError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
			fmt.Sprintf("Request body must not exceed %d bytes", tooLarge.Limit), nil)
		return nil, false
	}
	logger.Warn("Failed to read request body", "error", err, "path", r.URL.Path)
	WriteError(w, http.StatusBadRequest, CodeInvalidRequestPayload, "Invalid request body", nil)
	return nil, false
}

// decodeStrict decodes exactly one JSON value into v. Unknown fields and
// trailing data are errors.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}
