// Package admin serves the token management API and the operational endpoints.
package admin

import (
	"context"
	"log/slog"
	"time"

	"github.com/sipico/tokend/internal/auth"
	"github.com/sipico/tokend/internal/storage"
)

// Storage is what the operational endpoints need from the credential store.
type Storage interface {
	Ping(ctx context.Context) error
	HasLiveOperator(ctx context.Context) (bool, error)
}

// Authority is the token lifecycle the API exposes.
type Authority interface {
	auth.Validator
	CreateOperatorToken(ctx context.Context) (*auth.Issued, error)
	CreateNamedToken(ctx context.Context, name, bearer string, expiry time.Duration) (*auth.Issued, error)
	RegenerateOperatorToken(ctx context.Context, bearer, name string) (*auth.Issued, error)
	DeleteToken(ctx context.Context, name, bearer string) error
	ListTokens(ctx context.Context, bearer string) ([]*storage.TokenRecord, error)
}

// Handler provides admin endpoints
type Handler struct {
	storage     Storage
	authority   Authority
	authEnabled bool
	logger      *slog.Logger
	logLevel    *slog.LevelVar
}

// NewHandler creates an admin handler.
// authEnabled is fixed for the life of the process; when false every token
// management endpoint answers 405 without touching the store.
func NewHandler(storage Storage, authority Authority, authEnabled bool, logLevel *slog.LevelVar, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if logLevel == nil {
		logLevel = new(slog.LevelVar)
	}

	return &Handler{
		storage:     storage,
		authority:   authority,
		authEnabled: authEnabled,
		logLevel:    logLevel,
		logger:      logger,
	}
}
