// Package router registers the HTTP routes of the API.
package router

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/eneogroup/elimu-app-backend/internal/handler"
	"github.com/eneogroup/elimu-app-backend/internal/metrics"
	"github.com/eneogroup/elimu-app-backend/internal/middleware"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Health      *handler.HealthHandler
	Auth        *handler.AuthHandler
	SchoolYears *handler.SchoolYearHandler
	Classrooms  *handler.ClassroomHandler
	Enrollments *handler.EnrollmentHandler
	Evaluations *handler.EvaluationHandler

	Verifier middleware.TokenVerifier
	// Throttle guards the unauthenticated auth endpoints. Nil disables it.
	Throttle echo.MiddlewareFunc
	// IPExtractor resolves the client address used by the throttle and the
	// brute-force guard. Nil means the socket peer, see ClientIP.
	IPExtractor echo.IPExtractor
}

// New returns an echo instance with the error handler, validator and
// global middleware of the API, and every route registered.
func New(logger *slog.Logger, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = h.IPExtractor
	if e.IPExtractor == nil {
		e.IPExtractor = ClientIP(nil)
	}

	v := handler.NewValidator()
	e.Validator = v
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(logger, v)

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())
	e.Use(middleware.SecureHeaders())

	RegisterRoutes(e, h)
	return e
}

// NewMetrics returns the echo instance of the metrics listener. It is
// served on its own port so scrapes never share the public API address.
func NewMetrics() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	return e
}

// RegisterRoutes registers every route of the API on e.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", h.Health.Health)

	registerAuth(e, h)

	v1 := e.Group("/v1", middleware.JWTAuth(h.Verifier))
	v1.GET("/me", h.Auth.Me)
	registerSchool(v1, h)
	registerEnrollment(v1, h)
}

// registerAuth registers the token endpoints under /v1/auth. Logout is
// the only one that needs an access token.
func registerAuth(e *echo.Echo, h Handlers) {
	var mw []echo.MiddlewareFunc
	if h.Throttle != nil {
		mw = append(mw, h.Throttle)
	}
	g := e.Group("/v1/auth", mw...)
	g.POST("/login", h.Auth.Login)
	g.POST("/token/refresh", h.Auth.Refresh)
	g.POST("/token/verify", h.Auth.Verify)
	g.POST("/logout", h.Auth.Logout, middleware.JWTAuth(h.Verifier))
}
