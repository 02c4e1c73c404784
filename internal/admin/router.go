package admin

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sipico/tokend/internal/auth"
	"github.com/sipico/tokend/internal/storage"
)

// Token management routes.
const (
	PathToken           = "/api/v3/configure/token"
	PathOperatorToken   = PathToken + "/admin"
	PathRegenerateToken = PathOperatorToken + "/regenerate"
	PathNamedAdminToken = PathToken + "/named_admin"
	PathLogLevel        = "/api/v3/loglevel"
)

// NewRouter creates the admin router.
//
// Token routes authenticate inside the Authority, because creating the
// first operator token and regenerating a missing one need no bearer.
func (h *Handler) NewRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	// Public endpoints (no auth)
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)

	r.Post(PathOperatorToken, h.HandleCreateOperatorToken)
	r.Post(PathRegenerateToken, h.HandleRegenerateOperatorToken)
	r.Post(PathNamedAdminToken, h.HandleCreateNamedToken)
	r.Delete(PathToken, h.HandleDeleteToken)
	r.Get(PathToken, h.HandleListTokens)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(h.authority, h.authEnabled, h.logger))
		r.Use(auth.RequireKind(storage.KindOperator, storage.KindNamedAdmin))
		r.Post(PathLogLevel, h.HandleSetLogLevel)
	})

	return r
}
