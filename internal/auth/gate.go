package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eneogroup/elimu-app-backend/internal/metrics"
	"github.com/eneogroup/elimu-app-backend/internal/model"
)

// Action names the operation attempted on a single resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionLink   Action = "link" // referencing the resource from another record
)

// Gate enforces tenant isolation and role capabilities. It holds no
// state besides its logger; decisions depend only on the request's
// TenantContext and the resource.
type Gate struct {
	log *slog.Logger
}

// NewGate returns a gate that logs denials to logger.
func NewGate(logger *slog.Logger) *Gate {
	return &Gate{log: logger}
}

// Scope returns the tenant id that list queries must filter on.
func (g *Gate) Scope(ctx context.Context) (uint64, error) {
	tc, err := RequireTenant(ctx)
	if err != nil {
		return 0, err
	}
	return tc.TenantID, nil
}

// Authorize allows action on res only when res belongs to the request's
// tenant. The role is not consulted: no role crosses tenants.
func (g *Gate) Authorize(ctx context.Context, res model.TenantScoped, action Action) error {
	tc, err := RequireTenant(ctx)
	if err != nil {
		return err
	}
	if res.TenantID() != tc.TenantID {
		metrics.ForbiddenTotal.WithLabelValues("tenant").Inc()
		g.log.WarnContext(ctx, "cross-tenant access denied",
			"action", action, "principal_id", tc.PrincipalID,
			"school_id", tc.TenantID, "resource_school_id", res.TenantID())
		return fmt.Errorf("%w: resource belongs to another school", ErrForbidden)
	}
	return nil
}

// Require allows the request only when its role holds every capability.
func (g *Gate) Require(ctx context.Context, caps ...model.Capability) error {
	tc, err := RequireTenant(ctx)
	if err != nil {
		return err
	}
	for _, c := range caps {
		if !tc.Can(c) {
			metrics.ForbiddenTotal.WithLabelValues("capability").Inc()
			g.log.WarnContext(ctx, "capability denied",
				"capability", c, "role", tc.Role, "principal_id", tc.PrincipalID)
			return fmt.Errorf("%w: role %s lacks %s", ErrForbidden, tc.Role, c)
		}
	}
	return nil
}
