package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PathDatabase is the catalog route.
const PathDatabase = "/api/v3/configure/database"

// NewRouter creates a Chi router with the catalog endpoints.
// The authMiddleware parameter should be auth.Middleware(authority, enabled, logger).
func NewRouter(handler *Handler, authMiddleware func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(authMiddleware)

	r.Post(PathDatabase, handler.HandleCreateDatabase)
	r.Get(PathDatabase, handler.HandleListDatabases)

	return r
}
