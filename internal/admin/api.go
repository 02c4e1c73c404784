package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sipico/tokend/internal/auth"
	"github.com/sipico/tokend/internal/middleware"
)

// SetLogLevelRequest is the request body for POST /api/v3/loglevel
type SetLogLevelRequest struct {
	Level string `json:"level"`
}

// ParseLevel converts a configured level name to a slog.Level.
func ParseLevel(name string) (slog.Level, bool) {
	switch name {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}

// HandleSetLogLevel changes runtime log level
// POST /api/v3/loglevel
// Body: {"level": "debug|info|warn|error"}
func (h *Handler) HandleSetLogLevel(w http.ResponseWriter, r *http.Request) {
	var req SetLogLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	level, ok := ParseLevel(req.Level)
	if !ok {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid level (must be: debug, info, warn, error)")
		return
	}

	h.logLevel.Set(level)
	attrs := []any{"new_level", req.Level}
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		attrs = append(attrs, "by", p.Name)
	}
	h.log(r).Info("log level changed", attrs...)

	writeJSON(w, http.StatusOK, map[string]string{"level": req.Level})
}

// log returns the handler logger tagged with the request ID.
func (h *Handler) log(r *http.Request) *slog.Logger {
	return middleware.Logger(r.Context(), h.logger)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // Response write errors are unrecoverable
	json.NewEncoder(w).Encode(v)
}
