package auth

import (
	"context"

	"github.com/sipico/tokend/internal/storage"
)

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey int

const principalKey ctxKey = iota // stores *Principal

// Principal is the privilege context of a validated bearer.
type Principal struct {
	Name string
	Kind storage.Kind
}

// IsOperator reports whether the principal holds the operator token.
func (p *Principal) IsOperator() bool {
	return p != nil && p.Kind == storage.KindOperator
}

// PrincipalFromContext retrieves the authenticated principal from context.
// Returns nil if none is set, which is the case when auth is disabled.
func PrincipalFromContext(ctx context.Context) *Principal {
	if v := ctx.Value(principalKey); v != nil {
		if p, ok := v.(*Principal); ok {
			return p
		}
	}
	return nil
}

// WithPrincipal adds a principal to the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}
