package handler

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/eneogroup/elimu-app-backend/internal/auth"
	"github.com/eneogroup/elimu-app-backend/internal/enrollment"
	"github.com/eneogroup/elimu-app-backend/internal/repository"
)

// statusOf maps a domain error to its HTTP status. Zero means unknown.
func statusOf(err error) int {
	switch {
	case errors.Is(err, auth.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, auth.ErrTenantNotFound),
		errors.Is(err, auth.ErrPrincipalNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, enrollment.ErrDuplicateEnrollment),
		errors.Is(err, enrollment.ErrDuplicateEvaluation),
		errors.Is(err, repository.ErrDuplicate),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, enrollment.ErrTenantMismatch),
		errors.Is(err, enrollment.ErrInactiveEnrollment),
		errors.Is(err, enrollment.ErrPrincipalMismatch),
		errors.Is(err, enrollment.ErrSchoolYearMismatch):
		return http.StatusBadRequest
	}
	return 0
}

// NewHTTPErrorHandler returns the echo error handler of the API. Domain
// errors become {"error": "..."} bodies with their mapped status, field
// validation errors become a field → message object, and anything else is
// logged and reported as a 500 without details.
func NewHTTPErrorHandler(logger *slog.Logger, v *Validator) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			code    int
			message any
			herr    *echo.HTTPError
			verrs   validator.ValidationErrors
			limited *auth.RateLimitError
		)
		switch {
		case errors.As(err, &herr):
			if inner, ok := herr.Internal.(*echo.HTTPError); ok {
				herr = inner
			}
			code, message = herr.Code, herr.Message
			if s, ok := message.(string); ok {
				message = echo.Map{"error": s}
			}
		case errors.As(err, &verrs):
			code, message = http.StatusBadRequest, v.fieldErrors(verrs)
		default:
			code = statusOf(err)
			if code == 0 {
				code = http.StatusInternalServerError
				logger.ErrorContext(c.Request().Context(), "request failed",
					"method", c.Request().Method, "path", c.Path(), "error", err)
				message = echo.Map{"error": http.StatusText(code)}
				break
			}
			message = echo.Map{"error": err.Error()}
		}

		if errors.As(err, &limited) {
			secs := int(math.Ceil(limited.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, message)
		}
		if err != nil {
			logger.ErrorContext(c.Request().Context(), "write error response", "error", err)
		}
	}
}
