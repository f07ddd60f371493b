package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eneogroup/elimu-app-backend/internal/auth"
)

// TenantKey is the echo context key holding the request's TenantContext.
const TenantKey = "tenant"

// TokenVerifier verifies access tokens.
type TokenVerifier interface {
	Verify(raw string) (*auth.Claims, error)
}

// JWTAuth returns a middleware that requires a Bearer access token and
// resolves the request's TenantContext from its claims. The context is
// stored in the request context (for services) and under TenantKey (for
// handlers). Refresh tokens are rejected.
func JWTAuth(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return auth.ErrUnauthenticated
			}
			claims, err := v.Verify(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			tc, err := auth.NewTenantContext(claims)
			if err != nil {
				return err
			}
			req := c.Request()
			c.SetRequest(req.WithContext(auth.WithTenant(req.Context(), tc)))
			c.Set(TenantKey, tc)
			return next(c)
		}
	}
}
