// Package catalog serves the database catalog that tokens grant access to.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/sipico/tokend/internal/auth"
	"github.com/sipico/tokend/internal/middleware"
	"github.com/sipico/tokend/internal/storage"
)

var databaseNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Store defines the catalog operations needed by the handler.
type Store interface {
	CreateDatabase(ctx context.Context, name, createdBy string) (*storage.Database, error)
	ListDatabases(ctx context.Context) ([]*storage.Database, error)
}

// Handler handles catalog requests.
type Handler struct {
	store  Store
	logger *slog.Logger
}

// NewHandler creates a new catalog handler.
// If logger is nil, slog.Default() will be used.
func NewHandler(store Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// CreateDatabaseRequest is the request body for POST /api/v3/configure/database.
type CreateDatabaseRequest struct {
	DB string `json:"db"`
}

// DatabaseResponse is a catalog entry in API responses.
type DatabaseResponse struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// HandleCreateDatabase adds a database to the catalog.
// POST /api/v3/configure/database
// Body: {"db": "sample_db"}
func (h *Handler) HandleCreateDatabase(w http.ResponseWriter, r *http.Request) {
	var req CreateDatabaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	if !databaseNamePattern.MatchString(req.DB) {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("invalid database name %q", req.DB))
		return
	}

	var createdBy string
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		createdBy = p.Name
	}

	db, err := h.store.CreateDatabase(r.Context(), req.DB, createdBy)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "conflict", fmt.Sprintf("database %q already exists", req.DB))
			return
		}
		h.log(r).Error("failed to create database", "name", req.DB, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	h.log(r).Info("database created", "name", db.Name, "by", createdBy)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Database %q created successfully", db.Name),
	})
}

// HandleListDatabases lists the catalog.
// GET /api/v3/configure/database
func (h *Handler) HandleListDatabases(w http.ResponseWriter, r *http.Request) {
	dbs, err := h.store.ListDatabases(r.Context())
	if err != nil {
		h.log(r).Error("failed to list databases", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	resp := make([]DatabaseResponse, 0, len(dbs))
	for _, db := range dbs {
		resp = append(resp, DatabaseResponse{Name: db.Name, CreatedAt: db.CreatedAt})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) log(r *http.Request) *slog.Logger {
	return middleware.Logger(r.Context(), h.logger)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Error("failed to encode JSON response", "error", err)
	}
}

// writeError writes a JSON error response in the admin API shape.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
