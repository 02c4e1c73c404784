package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/sipico/tokend/internal/metrics"
	"github.com/sipico/tokend/internal/storage"
)

// Middleware returns Chi-compatible middleware that validates the bearer
// token and attaches the Principal to the request context. When enabled is
// false every request passes through untouched.
func Middleware(v Validator, enabled bool, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer := BearerFromRequest(r)
			if bearer == "" {
				metrics.RecordAuthFailure("missing_token")
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated", ErrUnauthenticated.Error())
				return
			}

			principal, err := v.Validate(r.Context(), bearer)
			if err != nil {
				if errors.Is(err, ErrInvalidCredential) || errors.Is(err, ErrUnauthenticated) {
					metrics.RecordAuthFailure("invalid_token")
					writeJSONError(w, http.StatusUnauthorized, "invalid_credentials", ErrInvalidCredential.Error())
					return
				}
				logger.Error("token validation failed", "error", err)
				writeJSONError(w, http.StatusInternalServerError, "internal_error", "internal error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireKind rejects requests whose principal is not one of kinds.
// Requests without a principal pass, since that only happens with auth disabled.
func RequireKind(kinds ...storage.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p != nil && !slices.Contains(kinds, p.Kind) {
				metrics.RecordAuthFailure("insufficient_privilege")
				writeJSONError(w, http.StatusForbidden, "forbidden", "insufficient privilege")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerFromRequest gets the secret from "Authorization: Bearer <token>".
// The "Token" scheme is accepted too.
func BearerFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") && !strings.EqualFold(parts[0], "Token") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// writeJSONError writes an error body in the same shape as the admin API.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
