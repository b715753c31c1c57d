// Package respond writes JSON responses and maps errors onto them.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/Luffy852/dnd5e-character-manager/internal/apperr"
)

// MaxBodyBytes caps request bodies read by Decode.
const MaxBodyBytes = 1 << 20

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes {"success": true}.
func OK(w http.ResponseWriter) {
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Message writes {"error": msg} with the given status.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// Error maps err onto its HTTP status. Storage failures are logged with their
// cause and reach the client only as a generic message.
func Error(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	e := apperr.From(err)
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Stringer("kind", e.Kind),
	}
	if e.Kind == apperr.KindStorage {
		logger.Error("request failed", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("request rejected", append(fields, zap.String("reason", e.Message))...)
	}
	Message(w, e.Status(), e.Message)
}

// Decode reads a JSON body into v, failing with a validation error on malformed input.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("request body too large")
		}
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation("invalid request body")
	}
	return nil
}
