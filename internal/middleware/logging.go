// Package middleware provides HTTP middleware components shared by the tokend routers.
package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/sipico/tokend/internal/logging"
)

// maxLoggedBody caps how much of each body is kept for the debug log.
const maxLoggedBody = 64 << 10

// HTTPLogging logs every request and response at DEBUG level and is a
// pass-through at any other level. Header values, query strings and bodies go
// through internal/logging first, so an issued secret never reaches the log.
// allowlist names the JSON fields kept verbatim; nil keeps all fields.
func HTTPLogging(logger *slog.Logger, allowlist []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !logger.Enabled(r.Context(), slog.LevelDebug) {
				next.ServeHTTP(w, r)
				return
			}
			log := Logger(r.Context(), logger)

			var reqBody []byte
			if r.Body != nil && r.Body != http.NoBody {
				reqBody = peekBody(r)
			}
			log.Debug("HTTP Request",
				"method", r.Method,
				"url", r.URL.Path,
				"query_params", logging.RedactSecrets(r.URL.RawQuery),
				"headers", maskHeaders(r.Header),
				"body", maskBody(reqBody, allowlist),
			)

			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			log.Debug("HTTP Response",
				"method", r.Method,
				"url", r.URL.Path,
				"status_code", rec.statusCode,
				"headers", maskHeaders(rec.Header()),
				"body", maskBody(rec.body.Bytes(), allowlist),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// peekBody reads up to maxLoggedBody bytes and puts them back in front of the
// unread remainder, so the handler still sees the full body.
func peekBody(r *http.Request) []byte {
	head, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	if err != nil {
		return nil
	}
	return head
}

func maskHeaders(headers http.Header) map[string]string {
	result := make(map[string]string, len(headers))
	for k, v := range headers {
		if len(v) > 0 {
			result[k] = logging.MaskHeader(k, v[0])
		}
	}
	return result
}

func maskBody(body []byte, allowlist []string) string {
	if len(body) == 0 {
		return ""
	}
	if !utf8.Valid(body) {
		return logging.FormatBinaryData(body)
	}
	return string(logging.MaskJSONBody(body, allowlist))
}

// responseRecorder writes through to the client and keeps a bounded copy.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if room := maxLoggedBody - r.body.Len(); room > 0 {
		r.body.Write(b[:min(len(b), room)])
	}
	return r.ResponseWriter.Write(b)
}
