package middleware

import (
	"encoding/json"
	"net/http"
)

// MaxBodySize returns middleware that limits request body size.
// Requests that declare a larger Content-Length are rejected up front with
// 413; otherwise reads beyond maxBytes fail inside the handler.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "request_too_large",
					"message": "request body too large",
				})
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
