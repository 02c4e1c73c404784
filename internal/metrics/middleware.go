package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// numericSegment matches numeric path segments, used when no route pattern is known.
var numericSegment = regexp.MustCompile(`/(\d+)`)

// statusRecorder remembers the first status code written.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.written {
		return
	}
	r.statusCode = code
	r.written = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.statusCode = http.StatusOK
		r.written = true
	}
	return r.ResponseWriter.Write(b)
}

// Middleware counts and times every request, labelled by method, route and
// numeric status. A panic in next is answered with 500 and recorded as such.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		defer func() {
			if p := recover(); p != nil && !rec.written {
				rec.WriteHeader(http.StatusInternalServerError)
			}

			route := routeLabel(r)
			status := strconv.Itoa(rec.statusCode)
			RecordRequest(r.Method, route, status)
			RecordRequestDuration(r.Method, route, status, time.Since(start).Seconds())
		}()

		next.ServeHTTP(rec, r)
	})
}

// routeLabel returns the matched chi route pattern when there is one,
// falling back to normalizePath for unrouted requests.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath replaces numeric segments so IDs never become label values:
//
//	/api/v3/configure/database/123 -> /api/v3/configure/database/:id
func normalizePath(path string) string {
	return numericSegment.ReplaceAllString(path, "/:id")
}
