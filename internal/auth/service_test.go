package auth

import (
	"context"
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/eneogroup/elimu-app-backend/internal/config"
	"github.com/eneogroup/elimu-app-backend/internal/model"
	"github.com/eneogroup/elimu-app-backend/internal/queue"
)

func TestLoginSuccess(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)

	pair, err := e.login("LYC-01", "manager", testPassword, "10.0.0.1")
	c.Assert(err, qt.IsNil)

	claims, err := e.tokens.Verify(pair.Access.Token)
	c.Assert(err, qt.IsNil)
	c.Assert(claims.TenantID, qt.Equals, uint64(1))
	c.Assert(claims.Subject, qt.Equals, "10")
	c.Assert(claims.Role, qt.Equals, model.RoleSchoolManager)
	c.Assert(e.events.OfType(queue.EventLoginSuccess), qt.HasLen, 1)
}

func TestLoginSameUsernameDifferentSchools(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)

	pair, err := e.login("CEG-02", "manager", testPassword, "10.0.0.1")
	c.Assert(err, qt.IsNil)
	claims, err := e.tokens.Verify(pair.Access.Token)
	c.Assert(err, qt.IsNil)
	c.Assert(claims.TenantID, qt.Equals, uint64(2))
	c.Assert(claims.Subject, qt.Equals, "20")
}

func TestLoginEnrolledPrincipal(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)

	pair, err := e.login("LYC-01", "pupil", testPassword, "10.0.0.1")
	c.Assert(err, qt.IsNil)

	// The token is bound to the school logged into, not the home school.
	claims, err := e.tokens.Verify(pair.Access.Token)
	c.Assert(err, qt.IsNil)
	c.Assert(claims.TenantID, qt.Equals, uint64(1))
	c.Assert(claims.Subject, qt.Equals, "21")
	c.Assert(claims.Role, qt.Equals, model.RoleStudent)

	// Not enrolled at school 2 and not registered there under this name.
	_, err = e.login("CEG-02", "pupil-x", testPassword, "10.0.0.1")
	c.Assert(err, qt.ErrorIs, ErrPrincipalNotFound)
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		username string
		password string
		want     error
	}{
		{"unknown school", "NOPE", "manager", testPassword, ErrTenantNotFound},
		{"unknown user", "LYC-01", "ghost", testPassword, ErrPrincipalNotFound},
		{"wrong password", "LYC-01", "manager", "hunter2", ErrInvalidCredentials},
		{"deactivated", "LYC-01", "retired", testPassword, ErrInvalidCredentials},
		{"deactivated wrong password", "LYC-01", "retired", "hunter2", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			e := newEnv(c)
			_, err := e.login(tt.code, tt.username, tt.password, "10.0.0.1")
			c.Assert(err, qt.ErrorIs, tt.want)
		})
	}
}

func TestLoginLockout(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)

	for i := 0; i < config.DefaultMaxAttempts; i++ {
		_, err := e.login("LYC-01", "manager", "wrong", "10.0.0.1")
		c.Assert(err, qt.ErrorIs, ErrInvalidCredentials)
	}
	calls := e.creds.Calls()

	// Correct credentials are refused while locked, without a lookup.
	_, err := e.login("LYC-01", "manager", testPassword, "10.0.0.1")
	var rl *RateLimitError
	c.Assert(errors.As(err, &rl), qt.IsTrue)
	c.Assert(rl.RetryAfter, qt.Equals, config.DefaultLockDuration)
	c.Assert(e.creds.Calls(), qt.Equals, calls)

	// The username is locked from any address.
	_, err = e.login("LYC-01", "manager", testPassword, "10.0.0.2")
	c.Assert(err, qt.ErrorIs, ErrRateLimited)

	e.clock.Advance(config.DefaultLockDuration)
	_, err = e.login("LYC-01", "manager", testPassword, "10.0.0.2")
	c.Assert(err, qt.IsNil)
}

func TestLoginEveryFailureCounts(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)

	// Unknown schools and users count against the address as well.
	for i := 0; i < config.DefaultMaxAttempts; i++ {
		_, err := e.login("NOPE", "x", "y", "10.0.0.7")
		c.Assert(err, qt.ErrorIs, ErrTenantNotFound)
	}
	_, err := e.login("LYC-01", "manager", testPassword, "10.0.0.7")
	c.Assert(err, qt.ErrorIs, ErrRateLimited)
}

func TestLoginSuccessResetsUsernameCounter(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)

	for i := 0; i < config.DefaultMaxAttempts-1; i++ {
		_, _ = e.login("LYC-01", "manager", "wrong", "10.0.0.1")
	}
	_, err := e.login("LYC-01", "manager", testPassword, "10.0.0.2")
	c.Assert(err, qt.IsNil)

	for i := 0; i < config.DefaultMaxAttempts-1; i++ {
		_, err = e.login("LYC-01", "manager", "wrong", "10.0.0.3")
		c.Assert(err, qt.ErrorIs, ErrInvalidCredentials)
	}
	_, err = e.login("LYC-01", "manager", testPassword, "10.0.0.3")
	c.Assert(err, qt.IsNil)
}

func TestLoginStoreErrorsHideDetails(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)
	e.creds.err = errors.New("connection refused")

	_, err := e.login("LYC-01", "manager", testPassword, "10.0.0.1")
	c.Assert(err, qt.ErrorIs, ErrPrincipalNotFound)

	e.schools.err = errors.New("connection refused")
	_, err = e.login("LYC-01", "manager", testPassword, "10.0.0.1")
	c.Assert(err, qt.ErrorIs, ErrTenantNotFound)
}

func TestLogoutThenRefresh(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)
	ctx := context.Background()

	pair, err := e.login("LYC-01", "manager", testPassword, "10.0.0.1")
	c.Assert(err, qt.IsNil)
	claims, err := e.tokens.Verify(pair.Access.Token)
	c.Assert(err, qt.IsNil)
	tc, err := NewTenantContext(claims)
	c.Assert(err, qt.IsNil)

	_, err = e.svc.Refresh(ctx, pair.Refresh.Token)
	c.Assert(err, qt.IsNil)

	c.Assert(e.svc.Logout(ctx, tc, pair.Refresh.Token), qt.IsNil)
	c.Assert(e.events.OfType(queue.EventLogout), qt.HasLen, 1)

	_, err = e.svc.Refresh(ctx, pair.Refresh.Token)
	c.Assert(err, qt.ErrorIs, ErrTokenInvalid)
	c.Assert(e.svc.Logout(ctx, tc, pair.Refresh.Token), qt.ErrorIs, ErrTokenInvalid)
}

func TestLogoutRequiresOwnRefreshToken(t *testing.T) {
	c := qt.New(t)
	e := newEnv(c)
	ctx := context.Background()

	mine, err := e.login("LYC-01", "manager", testPassword, "10.0.0.1")
	c.Assert(err, qt.IsNil)
	theirs, err := e.login("CEG-02", "manager", testPassword, "10.0.0.1")
	c.Assert(err, qt.IsNil)

	claims, err := e.tokens.Verify(mine.Access.Token)
	c.Assert(err, qt.IsNil)
	tc, err := NewTenantContext(claims)
	c.Assert(err, qt.IsNil)

	c.Assert(e.svc.Logout(ctx, tc, theirs.Refresh.Token), qt.ErrorIs, ErrTokenInvalid)
	_, err = e.svc.Refresh(ctx, theirs.Refresh.Token)
	c.Assert(err, qt.IsNil)
}
