package admin

import (
	"log/slog"
	"net/http"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, want := range tests {
		got, ok := ParseLevel(name)
		if !ok || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", name, got, ok, want)
		}
	}
	if _, ok := ParseLevel("verbose"); ok {
		t.Error("expected unknown level to be rejected")
	}
}

func TestHandleSetLogLevel(t *testing.T) {
	t.Parallel()
	router, h := newTestRouter(t, true)
	operator := createOperator(t, router)

	rec := doRequest(t, router, http.MethodPost, PathLogLevel, operator, `{"level":"debug"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := h.logLevel.Level(); got != slog.LevelDebug {
		t.Errorf("expected level debug, got %v", got)
	}

	named := decodeToken(t, createNamed(t, router, operator, "ops_admin", "")).Token
	rec = doRequest(t, router, http.MethodPost, PathLogLevel, named, `{"level":"warn"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("named admin: expected status 200, got %d", rec.Code)
	}
	if got := h.logLevel.Level(); got != slog.LevelWarn {
		t.Errorf("expected level warn, got %v", got)
	}
}

func TestHandleSetLogLevel_Errors(t *testing.T) {
	t.Parallel()
	router, h := newTestRouter(t, true)
	operator := createOperator(t, router)

	tests := []struct {
		name       string
		bearer     string
		body       string
		wantStatus int
	}{
		{"no token", "", `{"level":"debug"}`, http.StatusUnauthorized},
		{"bad token", "apiv3_bogus", `{"level":"debug"}`, http.StatusUnauthorized},
		{"bad json", operator, `not json`, http.StatusBadRequest},
		{"bad level", operator, `{"level":"loud"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, PathLogLevel, tt.bearer, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}

	if got := h.logLevel.Level(); got != slog.LevelInfo {
		t.Errorf("level changed by rejected requests: %v", got)
	}
}

func TestHandleSetLogLevel_AuthDisabled(t *testing.T) {
	t.Parallel()
	router, h := newTestRouter(t, false)

	rec := doRequest(t, router, http.MethodPost, PathLogLevel, "", `{"level":"error"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := h.logLevel.Level(); got != slog.LevelError {
		t.Errorf("expected level error, got %v", got)
	}
}
