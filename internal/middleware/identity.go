package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eneogroup/elimu-app-backend/internal/auth"
)

// principalID returns the caller's principal id for keys and log lines,
// or "anon" before authentication.
func principalID(c echo.Context) string {
	if tc, ok := auth.TenantFrom(c.Request().Context()); ok && tc.PrincipalID != 0 {
		return strconv.FormatUint(tc.PrincipalID, 10)
	}
	return "anon"
}
