package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sipico/tokend/internal/auth"
	"github.com/sipico/tokend/internal/storage"
)

// MsgTokenCreated confirms every successful create or regenerate.
const MsgTokenCreated = "New token created successfully!"

// TokenResponse represents a token in API responses.
// Token is only ever set on the create and regenerate responses.
type TokenResponse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Kind      string     `json:"kind"`
	Token     string     `json:"token,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	Message   string     `json:"message,omitempty"`
}

// CreateNamedTokenRequest is the request body for POST /api/v3/configure/token/named_admin.
// Expiry is a Go duration string such as "2s" or "720h"; empty means no expiry.
type CreateNamedTokenRequest struct {
	TokenName string `json:"token_name"`
	Expiry    string `json:"expiry,omitempty"`
}

func toTokenResponse(rec *storage.TokenRecord) TokenResponse {
	return TokenResponse{
		ID:        rec.ID,
		Name:      rec.Name,
		Kind:      string(rec.Kind),
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}
}

// HandleCreateOperatorToken creates the _admin token.
// POST /api/v3/configure/token/admin
func (h *Handler) HandleCreateOperatorToken(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuthEnabled(w, r) {
		return
	}

	issued, err := h.authority.CreateOperatorToken(r.Context())
	if err != nil {
		h.writeAuthorityError(w, r, err)
		return
	}
	h.writeIssued(w, r, issued)
}

// HandleRegenerateOperatorToken rotates the _admin secret.
// POST /api/v3/configure/token/admin/regenerate?confirm=true
//
// A token_name is rejected by the Authority whether or not confirm is set.
func (h *Handler) HandleRegenerateOperatorToken(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuthEnabled(w, r) {
		return
	}

	name := r.URL.Query().Get("token_name")
	if name == "" && !requireConfirmation(w, r) {
		return
	}

	issued, err := h.authority.RegenerateOperatorToken(r.Context(), auth.BearerFromRequest(r), name)
	if err != nil {
		h.writeAuthorityError(w, r, err)
		return
	}
	h.writeIssued(w, r, issued)
}

// HandleCreateNamedToken creates a named admin token.
// POST /api/v3/configure/token/named_admin
// Body: {"token_name": "foo_admin", "expiry": "24h"}
func (h *Handler) HandleCreateNamedToken(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuthEnabled(w, r) {
		return
	}

	var req CreateNamedTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, ErrCodeInvalidRequest, "request body too large")
			return
		}
		if errors.Is(err, io.EOF) {
			WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "request body required")
			return
		}
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	var expiry time.Duration
	if req.Expiry != "" {
		d, err := time.ParseDuration(req.Expiry)
		if err != nil {
			WriteErrorWithHint(w, http.StatusBadRequest, ErrCodeInvalidRequest,
				fmt.Sprintf("invalid expiry %q", req.Expiry),
				`Use a duration such as "90s", "12h" or "720h"`)
			return
		}
		expiry = d
	}

	issued, err := h.authority.CreateNamedToken(r.Context(), req.TokenName, auth.BearerFromRequest(r), expiry)
	if err != nil {
		h.writeAuthorityError(w, r, err)
		return
	}
	h.writeIssued(w, r, issued)
}

// HandleDeleteToken revokes a token by name.
// DELETE /api/v3/configure/token?token_name=foo_admin&confirm=true
//
// _admin goes straight to the Authority, which always refuses it, so the
// caller gets the fixed Forbidden message even without confirm.
func (h *Handler) HandleDeleteToken(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuthEnabled(w, r) {
		return
	}

	name := r.URL.Query().Get("token_name")
	if name != storage.OperatorTokenName && !requireConfirmation(w, r) {
		return
	}

	if err := h.authority.DeleteToken(r.Context(), name, auth.BearerFromRequest(r)); err != nil {
		h.writeAuthorityError(w, r, err)
		return
	}

	h.log(r).Info("token deleted via API", "name", name)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Token %q deleted successfully", name),
	})
}

// HandleListTokens lists live tokens without their secrets.
// GET /api/v3/configure/token
func (h *Handler) HandleListTokens(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuthEnabled(w, r) {
		return
	}

	tokens, err := h.authority.ListTokens(r.Context(), auth.BearerFromRequest(r))
	if err != nil {
		h.writeAuthorityError(w, r, err)
		return
	}

	resp := make([]TokenResponse, 0, len(tokens))
	for _, t := range tokens {
		resp = append(resp, toTokenResponse(t))
	}

	if wantsText(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		writeTokenTable(w, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// requireAuthEnabled answers 405 when the server runs without auth.
func (h *Handler) requireAuthEnabled(w http.ResponseWriter, r *http.Request) bool {
	if h.authEnabled {
		return true
	}
	h.writeAuthorityError(w, r, auth.ErrEndpointDisabled)
	return false
}

// requireConfirmation guards destructive routes behind confirm=true.
func requireConfirmation(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Query().Get("confirm") == "true" {
		return true
	}
	WriteErrorWithHint(w, http.StatusBadRequest, ErrCodeConfirmationRequired,
		"confirmation required", "Repeat the request with confirm=true")
	return false
}

// wantsText reports whether the caller asked for the human-readable format.
func wantsText(r *http.Request) bool {
	switch r.URL.Query().Get("format") {
	case "text":
		return true
	case "json":
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/plain")
}

// writeIssued renders a newly issued token in the requested format.
func (h *Handler) writeIssued(w http.ResponseWriter, r *http.Request, issued *auth.Issued) {
	resp := toTokenResponse(issued.Record)
	resp.Token = issued.Secret
	resp.Message = MsgTokenCreated

	w.Header().Set("Cache-Control", "no-store")
	if wantsText(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusCreated)
		writeIssuedText(w, resp)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func writeIssuedText(w io.Writer, t TokenResponse) {
	//nolint:errcheck // Response write errors are unrecoverable
	fmt.Fprintf(w, "\n%s\n\nToken: %s\nName: %s\nKind: %s\nExpires: %s\nHTTP Requests Header: Authorization: Bearer %s\n\n"+
		"IMPORTANT: Store this token securely, as it will not be shown again.\n",
		t.Message, t.Token, t.Name, t.Kind, formatExpiry(t.ExpiresAt), t.Token)
}

func writeTokenTable(w io.Writer, tokens []TokenResponse) {
	//nolint:errcheck // Response write errors are unrecoverable
	fmt.Fprintf(w, "%-6s %-32s %-12s %-25s %s\n", "ID", "NAME", "KIND", "CREATED", "EXPIRES")
	for _, t := range tokens {
		//nolint:errcheck // Response write errors are unrecoverable
		fmt.Fprintf(w, "%-6d %-32s %-12s %-25s %s\n",
			t.ID, t.Name, t.Kind, t.CreatedAt.Format(time.RFC3339), formatExpiry(t.ExpiresAt))
	}
}

func formatExpiry(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(time.RFC3339)
}
