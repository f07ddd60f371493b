// Package auth implements the tenant-scoped authentication core: login
// with brute-force protection, the JWT token lifecycle, the per-request
// tenant context and the authorization gate.
package auth

import (
	"errors"
	"time"
)

// Sentinel errors. Handlers match them with errors.Is and map them to
// HTTP status codes.
var (
	ErrTenantNotFound     = errors.New("school not found")
	ErrPrincipalNotFound  = errors.New("user not found for this school")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many failed login attempts")
	ErrTokenInvalid       = errors.New("token is invalid")
	ErrTokenExpired       = errors.New("token is expired")
	ErrForbidden          = errors.New("access denied")
	ErrUnauthenticated    = errors.New("authentication required")
)

// RateLimitError is returned while a client IP or username is locked. It
// matches ErrRateLimited.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string { return ErrRateLimited.Error() }

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
