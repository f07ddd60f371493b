package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/eneogroup/elimu-app-backend/internal/auth"
	"github.com/eneogroup/elimu-app-backend/internal/metrics"
	"github.com/eneogroup/elimu-app-backend/internal/model"
)

// RequireCapability returns a middleware that admits the request when the
// caller's role holds at least one of caps. It must run after JWTAuth.
func RequireCapability(caps ...model.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tc, err := auth.RequireTenant(c.Request().Context())
			if err != nil {
				return err
			}
			for _, cp := range caps {
				if tc.Can(cp) {
					return next(c)
				}
			}
			metrics.ForbiddenTotal.WithLabelValues("capability").Inc()
			return fmt.Errorf("%w: role %s may not access %s", auth.ErrForbidden, tc.Role, c.Path())
		}
	}
}
