package admin

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sipico/tokend/internal/auth"
)

func TestCreateOperatorToken(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)

	rec := doRequest(t, router, http.MethodPost, PathOperatorToken, "", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}

	resp := decodeToken(t, rec)
	if resp.Name != "_admin" || resp.Kind != "operator" {
		t.Errorf("unexpected token %+v", resp)
	}
	if !strings.HasPrefix(resp.Token, auth.SecretPrefix) {
		t.Errorf("token %q missing prefix", resp.Token)
	}
	if resp.Message != MsgTokenCreated {
		t.Errorf("message = %q, want %q", resp.Message, MsgTokenCreated)
	}
	if resp.ExpiresAt != nil {
		t.Errorf("operator token should not expire, got %v", resp.ExpiresAt)
	}
}

func TestCreateOperatorToken_Twice(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)
	createOperator(t, router)

	rec := doRequest(t, router, http.MethodPost, PathOperatorToken, "", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	apiErr := decodeAPIError(t, rec)
	if apiErr.Error != "conflict" || apiErr.Message != "token name already exists, _admin" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestCreateOperatorToken_TextFormat(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)

	rec := doRequest(t, router, http.MethodPost, PathOperatorToken+"?format=text", "", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{MsgTokenCreated, "Token: " + auth.SecretPrefix, "Name: _admin", "Expires: never", "Authorization: Bearer "} {
		if !strings.Contains(body, want) {
			t.Errorf("text output missing %q:\n%s", want, body)
		}
	}
}

func TestCreateOperatorToken_AcceptHeader(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)

	req := httptest.NewRequest(http.MethodPost, PathOperatorToken, nil)
	req.Header.Set("Accept", "text/plain")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), MsgTokenCreated) || strings.HasPrefix(rec.Body.String(), "{") {
		t.Errorf("expected text output, got %s", rec.Body.String())
	}
}

func TestRegenerateOperatorToken(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)
	oldSecret := createOperator(t, router)

	rec := doRequest(t, router, http.MethodPost, PathRegenerateToken+"?confirm=true", oldSecret, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	newSecret := decodeToken(t, rec).Token
	if newSecret == oldSecret {
		t.Fatal("regenerate returned the old secret")
	}

	// Old secret no longer works, new one does.
	if rec := doRequest(t, router, http.MethodGet, PathToken, oldSecret, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("old secret: status = %d, want 401", rec.Code)
	}
	if rec := doRequest(t, router, http.MethodGet, PathToken, newSecret, ""); rec.Code != http.StatusOK {
		t.Errorf("new secret: status = %d, want 200", rec.Code)
	}
}

func TestRegenerateOperatorToken_RequiresConfirmation(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)
	secret := createOperator(t, router)

	for _, path := range []string{PathRegenerateToken, PathRegenerateToken + "?confirm=false"} {
		rec := doRequest(t, router, http.MethodPost, path, secret, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
		if apiErr := decodeAPIError(t, rec); apiErr.Message != "confirmation required" {
			t.Errorf("message = %q", apiErr.Message)
		}
	}

	// The secret was not rotated.
	if rec := doRequest(t, router, http.MethodGet, PathToken, secret, ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRegenerateOperatorToken_Unauthenticated(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)
	createOperator(t, router)

	rec := doRequest(t, router, http.MethodPost, PathRegenerateToken+"?confirm=true", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected WWW-Authenticate header")
	}
	if apiErr := decodeAPIError(t, rec); apiErr.Error != "unauthenticated" || apiErr.Message != "missing token" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestRegenerateOperatorToken_WithName(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)
	operator := createOperator(t, router)
	named := decodeToken(t, createNamed(t, router, operator, "foo_admin", "")).Token

	for _, bearer := range []string{operator, named} {
		rec := doRequest(t, router, http.MethodPost, PathRegenerateToken+"?confirm=true&token_name=foo_admin", bearer, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		apiErr := decodeAPIError(t, rec)
		if apiErr.Message != "regenerate cannot be used with a token name, regenerate only applies for operator token" {
			t.Errorf("message = %q", apiErr.Message)
		}
	}
}

// TestRegenerateOperatorToken_WithNameUnconfirmed checks the name error wins over the confirm gate.
func TestRegenerateOperatorToken_WithNameUnconfirmed(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)
	operator := createOperator(t, router)

	rec := doRequest(t, router, http.MethodPost, PathRegenerateToken+"?token_name=foo_admin", operator, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	apiErr := decodeAPIError(t, rec)
	if apiErr.Error != "invalid_request" {
		t.Errorf("code = %q, want invalid_request", apiErr.Error)
	}
	if apiErr.Message != "regenerate cannot be used with a token name, regenerate only applies for operator token" {
		t.Errorf("message = %q", apiErr.Message)
	}

	// The operator secret was not rotated.
	if rec := doRequest(t, router, http.MethodGet, PathToken, operator, ""); rec.Code != http.StatusOK {
		t.Errorf("operator should still work, status = %d", rec.Code)
	}
}

func TestRegenerateOperatorToken_ByNamedAdmin(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)
	operator := createOperator(t, router)
	named := decodeToken(t, createNamed(t, router, operator, "foo_admin", "")).Token

	rec := doRequest(t, router, http.MethodPost, PathRegenerateToken+"?confirm=true", named, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCreateNamedToken(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)
	operator := createOperator(t, router)

	rec := createNamed(t, router, operator, "foo_admin", "2h")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	resp := decodeToken(t, rec)
	if resp.Name != "foo_admin" || resp.Kind != "named_admin" {
		t.Errorf("unexpected token %+v", resp)
	}
	if resp.ExpiresAt == nil {
		t.Fatal("expected expires_at to be set")
	}
	if d := resp.ExpiresAt.Sub(resp.CreatedAt); d < 2*time.Hour-time.Second || d > 2*time.Hour+time.Second {
		t.Errorf("expiry window = %v, want about 2h", d)
	}

	// The new token can manage tokens too.
	if rec := createNamed(t, router, resp.Token, "bar_admin", ""); rec.Code != http.StatusCreated {
		t.Errorf("named admin create: status = %d, want 201", rec.Code)
	}
}

func TestCreateNamedToken_Errors(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)
	operator := createOperator(t, router)
	if rec := createNamed(t, router, operator, "foo_admin", ""); rec.Code != http.StatusCreated {
		t.Fatalf("setup failed: %d", rec.Code)
	}

	tests := []struct {
		name       string
		bearer     string
		body       string
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"duplicate", operator, `{"token_name":"foo_admin"}`, http.StatusConflict, "conflict", "token name already exists, foo_admin"},
		{"reserved", operator, `{"token_name":"_admin"}`, http.StatusBadRequest, "invalid_request", ""},
		{"missing name", operator, `{}`, http.StatusBadRequest, "invalid_request", ""},
		{"bad expiry", operator, `{"token_name":"x","expiry":"tomorrow"}`, http.StatusBadRequest, "invalid_request", ""},
		{"negative expiry", operator, `{"token_name":"x","expiry":"-1h"}`, http.StatusBadRequest, "invalid_request", ""},
		{"expiry past 2262", operator, `{"token_name":"x","expiry":"2500000h"}`, http.StatusBadRequest, "invalid_request", "expiry 2500000h0m0s is too far in the future"},
		{"bad json", operator, `{`, http.StatusBadRequest, "invalid_request", "invalid JSON body"},
		{"empty body", operator, ``, http.StatusBadRequest, "invalid_request", "request body required"},
		{"no bearer", "", `{"token_name":"x"}`, http.StatusUnauthorized, "unauthenticated", "missing token"},
		{"wrong bearer", "apiv3_nope", `{"token_name":"x"}`, http.StatusUnauthorized, "invalid_credentials", "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, PathNamedAdminToken, tt.bearer, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			apiErr := decodeAPIError(t, rec)
			if apiErr.Error != tt.wantCode {
				t.Errorf("code = %q, want %q", apiErr.Error, tt.wantCode)
			}
			if tt.wantMsg != "" && apiErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestDeleteToken(t *testing.T) {
	t.Parallel()

	for _, deleteWith := range []string{"operator", "self"} {
		t.Run(deleteWith, func(t *testing.T) {
			t.Parallel()
			router, _ := newTestRouter(t, true)
			operator := createOperator(t, router)
			named := decodeToken(t, createNamed(t, router, operator, "foo_admin", "")).Token

			bearer := operator
			if deleteWith == "self" {
				bearer = named
			}

			rec := doRequest(t, router, http.MethodDelete, PathToken+"?token_name=foo_admin&confirm=true", bearer, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
			}

			list := doRequest(t, router, http.MethodGet, PathToken, operator, "")
			if strings.Contains(list.Body.String(), "foo_admin") {
				t.Errorf("deleted token still listed: %s", list.Body.String())
			}
			if rec := doRequest(t, router, http.MethodGet, PathToken, named, ""); rec.Code != http.StatusUnauthorized {
				t.Errorf("deleted secret: status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestDeleteToken_Operator(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)
	operator := createOperator(t, router)

	rec := doRequest(t, router, http.MethodDelete, PathToken+"?token_name=_admin&confirm=true", operator, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	want := `The operator token "_admin" is required and cannot be deleted. To regenerate an operator token, use: POST /api/v3/configure/token/admin/regenerate?confirm=true`
	if apiErr := decodeAPIError(t, rec); apiErr.Message != want {
		t.Errorf("message = %q, want %q", apiErr.Message, want)
	}

	if rec := doRequest(t, router, http.MethodGet, PathToken, operator, ""); rec.Code != http.StatusOK {
		t.Errorf("operator should still work, status = %d", rec.Code)
	}
}

// TestDeleteToken_OperatorUnconfirmed checks _admin is refused with the fixed
// message even when confirm is missing.
func TestDeleteToken_OperatorUnconfirmed(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)
	operator := createOperator(t, router)
	named := decodeToken(t, createNamed(t, router, operator, "foo_admin", "")).Token

	want := `The operator token "_admin" is required and cannot be deleted. To regenerate an operator token, use: POST /api/v3/configure/token/admin/regenerate?confirm=true`
	for _, bearer := range []string{operator, named} {
		rec := doRequest(t, router, http.MethodDelete, PathToken+"?token_name=_admin", bearer, "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403; body %s", rec.Code, rec.Body.String())
		}
		if apiErr := decodeAPIError(t, rec); apiErr.Message != want {
			t.Errorf("message = %q, want %q", apiErr.Message, want)
		}
	}

	rec := doRequest(t, router, http.MethodDelete, PathToken+"?token_name=_admin", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want 401", rec.Code)
	}

	if rec := doRequest(t, router, http.MethodGet, PathToken, operator, ""); rec.Code != http.StatusOK {
		t.Errorf("operator should still work, status = %d", rec.Code)
	}
}

func TestDeleteToken_Errors(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)
	operator := createOperator(t, router)

	rec := doRequest(t, router, http.MethodDelete, PathToken+"?token_name=ghost&confirm=true", operator, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown: status = %d, want 404", rec.Code)
	}
	if apiErr := decodeAPIError(t, rec); apiErr.Message != "token not found, ghost" {
		t.Errorf("message = %q", apiErr.Message)
	}

	rec = doRequest(t, router, http.MethodDelete, PathToken+"?token_name=ghost", operator, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unconfirmed: status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, router, http.MethodDelete, PathToken+"?confirm=true", operator, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name: status = %d, want 400", rec.Code)
	}
}

func TestListTokens(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t, true)
	operator := createOperator(t, router)
	createNamed(t, router, operator, "foo_admin", "")

	rec := doRequest(t, router, http.MethodGet, PathToken, operator, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, auth.SecretPrefix) || strings.Contains(body, `"token"`) {
		t.Errorf("listing must never include secrets: %s", body)
	}
	if !strings.Contains(body, `"_admin"`) || !strings.Contains(body, `"foo_admin"`) {
		t.Errorf("listing incomplete: %s", body)
	}

	text := doRequest(t, router, http.MethodGet, PathToken+"?format=text", operator, "")
	if !strings.Contains(text.Body.String(), "NAME") || !strings.Contains(text.Body.String(), "foo_admin") {
		t.Errorf("unexpected text listing: %s", text.Body.String())
	}

	if rec := doRequest(t, router, http.MethodGet, PathToken, "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous list: status = %d, want 401", rec.Code)
	}
}

// TestAuthDisabled checks every token route answers 405 without touching the store.
func TestAuthDisabled(t *testing.T) {
	t.Parallel()
	authority := auth.NewAuthority(untouchableStore(t), auth.WithLogger(discardLogger))
	router := NewHandler(nil, authority, false, nil, discardLogger).NewRouter()

	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, PathOperatorToken, ""},
		{http.MethodPost, PathRegenerateToken + "?confirm=true", ""},
		{http.MethodPost, PathRegenerateToken, ""},
		{http.MethodPost, PathNamedAdminToken, `{"token_name":"foo_admin"}`},
		{http.MethodDelete, PathToken + "?token_name=foo_admin&confirm=true", ""},
		{http.MethodGet, PathToken, ""},
	}

	for _, rt := range routes {
		rec := doRequest(t, router, rt.method, rt.path, "apiv3_whatever", rt.body)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want 405", rt.method, rt.path, rec.Code)
			continue
		}
		apiErr := decodeAPIError(t, rec)
		if apiErr.Error != "endpoint_disabled" || apiErr.Message != "endpoint disabled, started without auth" {
			t.Errorf("%s %s: unexpected error %+v", rt.method, rt.path, apiErr)
		}
	}
}

func TestWantsText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		query  string
		accept string
		want   bool
	}{
		{"", "", false},
		{"?format=text", "", true},
		{"?format=json", "text/plain", false},
		{"", "text/plain", true},
		{"", "application/json", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)
		if tt.accept != "" {
			req.Header.Set("Accept", tt.accept)
		}
		if got := wantsText(req); got != tt.want {
			t.Errorf("wantsText(%q, %q) = %v, want %v", tt.query, tt.accept, got, tt.want)
		}
	}
}
