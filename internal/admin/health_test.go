package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sipico/tokend/internal/testutil/mockstore"
)

func TestHandleHealth(t *testing.T) {
	t.Parallel()
	for _, enabled := range []bool{true, false} {
		h := NewHandler(nil, nil, enabled, nil, discardLogger)
		w := httptest.NewRecorder()
		h.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
		var resp HealthResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Status != "ok" || resp.Auth != enabled {
			t.Errorf("unexpected response %+v for auth=%v", resp, enabled)
		}
	}
}

func TestHandleReady(t *testing.T) {
	t.Parallel()
	storeErr := errors.New("database is locked")

	tests := []struct {
		name         string
		storage      Storage
		authEnabled  bool
		wantStatus   int
		wantDB       string
		wantOperator *bool
	}{
		{
			name:        "connected without operator",
			storage:     &mockstore.MockStorage{},
			authEnabled: true,
			wantStatus:  http.StatusOK,
			wantDB:      "connected",
			wantOperator: func() *bool {
				b := false
				return &b
			}(),
		},
		{
			name: "connected with operator",
			storage: &mockstore.MockStorage{HasLiveOperatorFunc: func(ctx context.Context) (bool, error) {
				return true, nil
			}},
			authEnabled: true,
			wantStatus:  http.StatusOK,
			wantDB:      "connected",
			wantOperator: func() *bool {
				b := true
				return &b
			}(),
		},
		{
			name:        "auth disabled omits operator",
			storage:     &mockstore.MockStorage{},
			authEnabled: false,
			wantStatus:  http.StatusOK,
			wantDB:      "connected",
		},
		{
			name: "ping fails",
			storage: &mockstore.MockStorage{PingFunc: func(ctx context.Context) error {
				return storeErr
			}},
			authEnabled: true,
			wantStatus:  http.StatusServiceUnavailable,
			wantDB:      "unavailable",
		},
		{
			name: "operator lookup fails",
			storage: &mockstore.MockStorage{HasLiveOperatorFunc: func(ctx context.Context) (bool, error) {
				return false, storeErr
			}},
			authEnabled: true,
			wantStatus:  http.StatusServiceUnavailable,
			wantDB:      "unavailable",
		},
		{
			name:        "no storage",
			storage:     nil,
			authEnabled: true,
			wantStatus:  http.StatusServiceUnavailable,
			wantDB:      "not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewHandler(tt.storage, nil, tt.authEnabled, nil, discardLogger)
			w := httptest.NewRecorder()
			h.HandleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var resp ReadyResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Database != tt.wantDB {
				t.Errorf("expected database %q, got %q", tt.wantDB, resp.Database)
			}
			switch {
			case tt.wantOperator == nil && resp.OperatorToken != nil:
				t.Errorf("expected no operator_token, got %v", *resp.OperatorToken)
			case tt.wantOperator != nil && (resp.OperatorToken == nil || *resp.OperatorToken != *tt.wantOperator):
				t.Errorf("expected operator_token %v, got %v", *tt.wantOperator, resp.OperatorToken)
			}
		})
	}
}

// TestHealthRoutesArePublic checks both probes answer without a bearer.
func TestHealthRoutesArePublic(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)

	for _, path := range []string{"/health", "/ready"} {
		rec := doRequest(t, router, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, rec.Code)
		}
	}

	createOperator(t, router)
	var resp ReadyResponse
	if err := json.NewDecoder(doRequest(t, router, http.MethodGet, "/ready", "", "").Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OperatorToken == nil || !*resp.OperatorToken {
		t.Errorf("expected operator_token true after bootstrap, got %v", resp.OperatorToken)
	}
}
