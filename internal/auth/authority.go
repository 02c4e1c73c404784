// Package auth issues, rotates, revokes and validates admin tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sync"
	"time"

	"github.com/sipico/tokend/internal/metrics"
	"github.com/sipico/tokend/internal/storage"
)

// Fixed messages callers depend on.
const (
	msgOperatorUndeletable = `The operator token "_admin" is required and cannot be deleted. ` +
		`To regenerate an operator token, use: POST /api/v3/configure/token/admin/regenerate?confirm=true`
	msgRegenerateWithName = "regenerate cannot be used with a token name, regenerate only applies for operator token"
)

var tokenNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

// maxExpiresAt is the latest instant the store can hold as unix nanoseconds.
var maxExpiresAt = time.Unix(0, math.MaxInt64).UTC()

// Store is the credential store the Authority persists to.
type Store interface {
	InsertIfNameAbsent(ctx context.Context, rec *storage.TokenRecord) (*storage.TokenRecord, error)
	ReplaceHashForName(ctx context.Context, name, oldHash, newHash string, at time.Time) (*storage.TokenRecord, error)
	FindByHash(ctx context.Context, hash string) (*storage.TokenRecord, error)
	FindByName(ctx context.Context, name string) (*storage.TokenRecord, error)
	MarkRevoked(ctx context.Context, name string, at time.Time) error
	List(ctx context.Context) ([]*storage.TokenRecord, error)
	HasLiveOperator(ctx context.Context) (bool, error)
}

// Validator resolves a bearer secret to a Principal.
type Validator interface {
	Validate(ctx context.Context, bearer string) (*Principal, error)
}

// Issued is a newly created or regenerated token.
// Secret is the only copy of the plaintext and is never persisted.
type Issued struct {
	Record *storage.TokenRecord
	Secret string
}

// Authority owns the token lifecycle.
type Authority struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger

	// mu serializes create, regenerate and delete. Validate never takes it.
	mu sync.Mutex
}

// Option configures an Authority.
type Option func(*Authority)

// WithClock overrides the time source used for timestamps and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) {
		a.now = now
	}
}

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authority) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuthority creates an Authority backed by store.
func NewAuthority(store Store, opts ...Option) *Authority {
	a := &Authority{
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CreateOperatorToken creates the _admin token. It fails with a conflict
// if a live operator token already exists.
func (a *Authority) CreateOperatorToken(ctx context.Context) (*Issued, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	issued, err := a.insert(ctx, storage.OperatorTokenName, storage.KindOperator, nil)
	if err != nil {
		return nil, a.fail("create", err)
	}
	metrics.RecordTokenIssued(string(storage.KindOperator), "create")
	a.logger.Info("operator token created", "name", issued.Record.Name, "id", issued.Record.ID)
	return issued, nil
}

// CreateNamedToken creates a named admin token on behalf of bearer.
// An expiry of zero means the token never expires.
func (a *Authority) CreateNamedToken(ctx context.Context, name, bearer string, expiry time.Duration) (*Issued, error) {
	if _, err := a.authenticate(ctx, bearer); err != nil {
		return nil, a.fail("create", err)
	}

	switch {
	case name == storage.OperatorTokenName:
		return nil, a.fail("create", invalidArgumentErr(fmt.Sprintf("token name %q is reserved for the operator token", name)))
	case name == "":
		return nil, a.fail("create", invalidArgumentErr("token name is required"))
	case !tokenNamePattern.MatchString(name):
		return nil, a.fail("create", invalidArgumentErr(fmt.Sprintf("invalid token name %q", name)))
	case expiry < 0:
		return nil, a.fail("create", invalidArgumentErr("expiry must not be negative"))
	case expiry > 0 && a.now().Add(expiry).After(maxExpiresAt):
		return nil, a.fail("create", invalidArgumentErr(fmt.Sprintf("expiry %s is too far in the future", expiry)))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	hasOperator, err := a.store.HasLiveOperator(ctx)
	if err != nil {
		return nil, a.fail("create", fmt.Errorf("failed to check operator token: %w", err))
	}
	if !hasOperator {
		return nil, a.fail("create", forbiddenErr("an operator token must exist before named admin tokens can be created"))
	}

	var expiresAt *time.Time
	if expiry > 0 {
		t := a.now().Add(expiry).UTC()
		expiresAt = &t
	}

	issued, err := a.insert(ctx, name, storage.KindNamedAdmin, expiresAt)
	if err != nil {
		return nil, a.fail("create", err)
	}
	metrics.RecordTokenIssued(string(storage.KindNamedAdmin), "create")
	a.logger.Info("named admin token created", "name", name, "id", issued.Record.ID, "expires_at", expiresAt)
	return issued, nil
}

// RegenerateOperatorToken rotates the operator secret. The record keeps its
// identity and the previous secret stops validating. When no operator token
// exists it is created and bearer is ignored.
func (a *Authority) RegenerateOperatorToken(ctx context.Context, bearer, name string) (*Issued, error) {
	if name != "" {
		return nil, a.fail("regenerate", invalidArgumentErr(msgRegenerateWithName))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	current, err := a.store.FindByName(ctx, storage.OperatorTokenName)
	if errors.Is(err, storage.ErrNotFound) {
		issued, err := a.insert(ctx, storage.OperatorTokenName, storage.KindOperator, nil)
		if err != nil {
			return nil, a.fail("regenerate", err)
		}
		metrics.RecordTokenIssued(string(storage.KindOperator), "create")
		a.logger.Info("operator token created by regenerate", "id", issued.Record.ID)
		return issued, nil
	}
	if err != nil {
		return nil, a.fail("regenerate", fmt.Errorf("failed to load operator token: %w", err))
	}

	principal, err := a.authenticate(ctx, bearer)
	if err != nil {
		return nil, a.fail("regenerate", err)
	}
	if principal.Kind != storage.KindOperator {
		return nil, a.fail("regenerate", forbiddenErr("only the operator token can regenerate the operator token"))
	}

	secret, err := GenerateSecret()
	if err != nil {
		return nil, a.fail("regenerate", err)
	}

	rec, err := a.store.ReplaceHashForName(ctx, storage.OperatorTokenName, current.SecretHash, HashSecret(secret), a.now().UTC())
	if err != nil {
		return nil, a.fail("regenerate", fmt.Errorf("failed to replace operator secret: %w", err))
	}
	metrics.RecordTokenIssued(string(storage.KindOperator), "regenerate")
	a.logger.Info("operator token regenerated", "id", rec.ID)
	return &Issued{Record: rec, Secret: secret}, nil
}

// DeleteToken revokes the token called name. The operator may delete any
// named admin token; a named admin may only delete itself. _admin is never
// deletable.
func (a *Authority) DeleteToken(ctx context.Context, name, bearer string) error {
	principal, err := a.authenticate(ctx, bearer)
	if err != nil {
		return a.fail("delete", err)
	}

	switch {
	case name == "":
		return a.fail("delete", invalidArgumentErr("token name is required"))
	case name == storage.OperatorTokenName:
		return a.fail("delete", forbiddenErr(msgOperatorUndeletable))
	case principal.Kind == storage.KindNamedAdmin && principal.Name != name:
		return a.fail("delete", forbiddenErr("named admin tokens can only delete themselves"))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	rec, err := a.store.FindByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return a.fail("delete", notFoundErr(name))
	}
	if err != nil {
		return a.fail("delete", fmt.Errorf("failed to load token: %w", err))
	}

	if err := a.store.MarkRevoked(ctx, name, a.now().UTC()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return a.fail("delete", notFoundErr(name))
		}
		return a.fail("delete", fmt.Errorf("failed to revoke token: %w", err))
	}
	metrics.RecordTokenRevoked(string(rec.Kind))
	a.logger.Info("token deleted", "name", name, "kind", rec.Kind, "by", principal.Name)
	return nil
}

// Validate resolves bearer to the Principal it belongs to.
// Unknown, revoked and expired secrets all yield ErrInvalidCredential.
func (a *Authority) Validate(ctx context.Context, bearer string) (*Principal, error) {
	if bearer == "" {
		return nil, ErrUnauthenticated
	}

	hash := HashSecret(bearer)
	rec, err := a.store.FindByHash(ctx, hash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidCredential
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	if !hashesEqual(rec.SecretHash, hash) || rec.Revoked() || rec.Expired(a.now()) {
		return nil, ErrInvalidCredential
	}

	return &Principal{Name: rec.Name, Kind: rec.Kind}, nil
}

// ListTokens returns the live tokens in creation order.
func (a *Authority) ListTokens(ctx context.Context, bearer string) ([]*storage.TokenRecord, error) {
	if _, err := a.authenticate(ctx, bearer); err != nil {
		return nil, a.fail("list", err)
	}

	tokens, err := a.store.List(ctx)
	if err != nil {
		return nil, a.fail("list", fmt.Errorf("failed to list tokens: %w", err))
	}
	return tokens, nil
}

// authenticate validates bearer and requires an admin-tier kind.
func (a *Authority) authenticate(ctx context.Context, bearer string) (*Principal, error) {
	principal, err := a.Validate(ctx, bearer)
	if err != nil {
		return nil, err
	}
	switch principal.Kind {
	case storage.KindOperator, storage.KindNamedAdmin:
		return principal, nil
	default:
		return nil, forbiddenErr("token kind is not allowed to manage tokens")
	}
}

// insert stores a new record under a fresh secret. Callers hold a.mu.
func (a *Authority) insert(ctx context.Context, name string, kind storage.Kind, expiresAt *time.Time) (*Issued, error) {
	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}

	rec, err := a.store.InsertIfNameAbsent(ctx, &storage.TokenRecord{
		Name:       name,
		Kind:       kind,
		SecretHash: HashSecret(secret),
		CreatedAt:  a.now().UTC(),
		ExpiresAt:  expiresAt,
	})
	if errors.Is(err, storage.ErrDuplicate) {
		return nil, conflictErr(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}
	return &Issued{Record: rec, Secret: secret}, nil
}

// fail records a rejected operation and returns err unchanged.
func (a *Authority) fail(op string, err error) error {
	code := Code(err)
	metrics.RecordTokenOpFailure(op, code)
	if code == "internal_error" {
		a.logger.Error("token operation failed", "op", op, "error", err)
	} else {
		a.logger.Debug("token operation rejected", "op", op, "code", code)
	}
	return err
}
