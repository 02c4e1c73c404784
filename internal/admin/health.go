package admin

import (
	"context"
	"net/http"
	"time"
)

// readyTimeout bounds the store checks behind /ready.
const readyTimeout = 5 * time.Second

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Auth   bool   `json:"auth"`
}

// ReadyResponse is the body of GET /ready.
// OperatorToken is only reported when auth is enabled.
type ReadyResponse struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	OperatorToken *bool  `json:"operator_token,omitempty"`
}

// HandleHealth reports liveness and whether auth is enforced.
// GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Auth: h.authEnabled})
}

// HandleReady checks the credential store.
// GET /ready
// Returns 200 once the store answers, 503 otherwise. A missing operator
// token is reported but does not fail readiness, since creating it needs
// the server up.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "error", Database: "not configured"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.storage.Ping(ctx); err != nil {
		h.log(r).Warn("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "error", Database: "unavailable"})
		return
	}

	resp := ReadyResponse{Status: "ok", Database: "connected"}
	if h.authEnabled {
		hasOperator, err := h.storage.HasLiveOperator(ctx)
		if err != nil {
			h.log(r).Warn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "error", Database: "unavailable"})
			return
		}
		resp.OperatorToken = &hasOperator
	}
	writeJSON(w, http.StatusOK, resp)
}
