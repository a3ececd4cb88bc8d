// Package tenant provides the tenant scoping mechanism used by repositories
// and the outbox dispatcher. A tenant ID carried in the context scopes all
// database work performed while it is set; repositories add the tenant
// predicate to their queries based on it.
//
// Scoping is a convention of how the context is configured, not a database
// enforced restriction. The outbox dispatcher performs a defense-in-depth
// check on claimed envelopes to detect scoping bugs after the fact.
package tenant

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/allisson/classhub/internal/errors"
)

// Tenant represents a single tenant of the platform.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Subdomain string
	Active    bool
}

// ctxKey is a context key type for storing the active tenant ID.
type ctxKey struct{}

// NewContext returns a copy of ctx scoped to the given tenant.
func NewContext(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, tenantID)
}

// FromContext returns the tenant ID the context is scoped to.
func FromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	return id, ok
}

// MustFromContext returns the tenant ID the context is scoped to, or
// ErrTenantNotScoped when the context carries none.
func MustFromContext(ctx context.Context) (uuid.UUID, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return uuid.Nil, apperrors.ErrTenantNotScoped
	}
	return id, nil
}
