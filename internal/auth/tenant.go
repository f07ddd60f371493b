package auth

import (
	"context"
	"fmt"
	"strconv"

	"github.com/eneogroup/elimu-app-backend/internal/model"
)

// TenantContext is the authorization scope of one request. It is derived
// from the access token only; nothing the client sends in the request
// body or query can change it.
type TenantContext struct {
	TenantID    uint64     `json:"school_id"`
	PrincipalID uint64     `json:"principal_id"`
	Role        model.Role `json:"role"`
}

// Can reports whether the role of the request holds capability c.
func (tc TenantContext) Can(c model.Capability) bool { return tc.Role.Can(c) }

// tenantKey is a private type for the context key, preventing collisions
// with other packages.
type tenantKey struct{}

// WithTenant injects tc into ctx.
func WithTenant(ctx context.Context, tc TenantContext) context.Context {
	return context.WithValue(ctx, tenantKey{}, tc)
}

// TenantFrom extracts the TenantContext from ctx.
func TenantFrom(ctx context.Context) (TenantContext, bool) {
	tc, ok := ctx.Value(tenantKey{}).(TenantContext)
	return tc, ok
}

// RequireTenant is like TenantFrom but fails with ErrUnauthenticated when
// no tenant is set.
func RequireTenant(ctx context.Context) (TenantContext, error) {
	tc, ok := TenantFrom(ctx)
	if !ok || tc.TenantID == 0 || tc.PrincipalID == 0 {
		return TenantContext{}, ErrUnauthenticated
	}
	return tc, nil
}

// NewTenantContext builds the scope of a request from verified access
// token claims.
func NewTenantContext(c *Claims) (TenantContext, error) {
	pid, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || pid == 0 {
		return TenantContext{}, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	if c.TenantID == 0 {
		return TenantContext{}, fmt.Errorf("%w: missing tenant", ErrTokenInvalid)
	}
	return TenantContext{TenantID: c.TenantID, PrincipalID: pid, Role: c.Role}, nil
}
