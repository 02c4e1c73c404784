package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sipico/tokend/internal/auth"
)

// Standard error codes for API responses.
const (
	// ErrCodeInvalidRequest indicates a malformed request.
	ErrCodeInvalidRequest = "invalid_request"

	// ErrCodeConfirmationRequired indicates a destructive call without confirm=true.
	ErrCodeConfirmationRequired = "confirmation_required"

	// ErrCodeInternalError indicates a server error.
	ErrCodeInternalError = "internal_error"
)

// APIError is the standard error response format for JSON APIs.
type APIError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// WriteError writes a JSON error response with the given status code, error code, and message.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorWithHint(w, status, code, message, "")
}

// WriteErrorWithHint writes a JSON error response with an optional hint for resolving the error.
func WriteErrorWithHint(w http.ResponseWriter, status int, code, message, hint string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // Response already started, nothing we can do
	json.NewEncoder(w).Encode(APIError{
		Error:   code,
		Message: message,
		Hint:    hint,
	})
}

// StatusForError maps an Authority error to its HTTP status.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, auth.ErrEndpointDisabled):
		return http.StatusMethodNotAllowed
	case errors.Is(err, auth.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeAuthorityError renders err with its fixed status, code and message.
// Internal failures never expose their cause.
func (h *Handler) writeAuthorityError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusForError(err)
	if status == http.StatusInternalServerError {
		h.log(r).Error("token request failed", "error", err)
		WriteError(w, status, ErrCodeInternalError, "internal error")
		return
	}

	var hint string
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", `Bearer realm="tokend"`)
		hint = "Send the token as: Authorization: Bearer <token>"
	case errors.Is(err, auth.ErrInvalidCredential):
		w.Header().Set("WWW-Authenticate", `Bearer realm="tokend", error="invalid_token"`)
	case errors.Is(err, auth.ErrEndpointDisabled):
		hint = "Restart the server with AUTH_ENABLED=true to manage tokens"
	}

	WriteErrorWithHint(w, status, auth.Code(err), err.Error(), hint)
}
