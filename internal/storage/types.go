package storage

import (
	"fmt"
	"time"
)

// OperatorTokenName is the reserved name of the single operator token.
const OperatorTokenName = "_admin"

// Kind is the privilege tier of a token.
type Kind string

const (
	// KindOperator is the root-of-trust token. There is at most one, named _admin.
	KindOperator Kind = "operator"
	// KindNamedAdmin is a secondary admin token with an operator-chosen name.
	KindNamedAdmin Kind = "named_admin"
)

// ParseKind converts a stored kind string back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindOperator, KindNamedAdmin:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// TokenRecord is the durable representation of an issued token.
// Only the digest of the secret is ever held here.
type TokenRecord struct {
	ID         int64
	Name       string
	Kind       Kind
	SecretHash string
	CreatedAt  time.Time
	ExpiresAt  *time.Time // nil = never expires
	RevokedAt  *time.Time // nil = live
}

// Revoked reports whether the token has been deleted.
func (t *TokenRecord) Revoked() bool {
	return t.RevokedAt != nil
}

// Expired reports whether the token's expiry is at or before now.
func (t *TokenRecord) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// Database is a data-plane database in the catalog.
type Database struct {
	ID        int64
	Name      string
	CreatedBy string
	CreatedAt time.Time
}
