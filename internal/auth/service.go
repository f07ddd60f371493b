package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/eneogroup/elimu-app-backend/internal/metrics"
	"github.com/eneogroup/elimu-app-backend/internal/model"
	"github.com/eneogroup/elimu-app-backend/internal/queue"
	"github.com/eneogroup/elimu-app-backend/internal/repository"
)

// TenantDirectory resolves schools by their public code.
type TenantDirectory interface {
	GetByCode(ctx context.Context, code string) (model.School, error)
}

// CredentialStore resolves principals for login.
type CredentialStore interface {
	// GetByUsername returns the principal whose home school is schoolID.
	GetByUsername(ctx context.Context, schoolID uint64, username string) (model.Principal, error)
	// GetEnrolledByUsername returns a principal from any school that holds
	// an enrollment in schoolID.
	GetEnrolledByUsername(ctx context.Context, schoolID uint64, username string) (model.Principal, error)
}

// LoginRequest carries the credentials of one login attempt.
type LoginRequest struct {
	SchoolCode string
	Username   string
	Password   string
	ClientIP   string
}

// Service authenticates principals against a school and manages their
// tokens.
type Service struct {
	schools TenantDirectory
	creds   CredentialStore
	guard   *BruteForceGuard
	tokens  *TokenManager
	events  queue.Publisher
	log     *slog.Logger
}

// NewService wires the authentication service.
func NewService(schools TenantDirectory, creds CredentialStore, guard *BruteForceGuard, tokens *TokenManager, events queue.Publisher, logger *slog.Logger) *Service {
	if events == nil {
		events = queue.Discard{}
	}
	return &Service{schools: schools, creds: creds, guard: guard, tokens: tokens, events: events, log: logger}
}

// Tokens exposes the token manager for request authentication.
func (s *Service) Tokens() *TokenManager { return s.tokens }

// Login authenticates req and returns a token pair bound to the school
// named by req.SchoolCode.
//
// A locked IP or username fails with a *RateLimitError before any lookup.
// Every other failure counts against both keys.
func (s *Service) Login(ctx context.Context, req LoginRequest) (TokenPair, error) {
	code := strings.TrimSpace(req.SchoolCode)
	username := strings.TrimSpace(req.Username)

	if err := s.guard.Check(ctx, req.ClientIP, code, username); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.OutcomeRateLimited).Inc()
		return TokenPair{}, err
	}

	sub, school, err := s.authenticate(ctx, code, username, req.Password)
	if err != nil {
		if ferr := s.guard.Fail(ctx, req.ClientIP, code, username); ferr != nil {
			s.log.WarnContext(ctx, "record failed attempt", "error", ferr)
		}
		metrics.LoginAttemptsTotal.WithLabelValues(loginOutcome(err)).Inc()
		return TokenPair{}, err
	}

	if err := s.guard.Succeed(ctx, code, username); err != nil {
		s.log.WarnContext(ctx, "reset attempt counter", "error", err)
	}
	pair, err := s.tokens.Issue(ctx, sub)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return TokenPair{}, err
	}
	metrics.LoginAttemptsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.log.InfoContext(ctx, "login", "school_id", school.ID, "principal_id", sub.PrincipalID, "role", sub.Role)
	_ = s.events.Publish(ctx, queue.SecurityEvent{
		Type:        queue.EventLoginSuccess,
		SchoolCode:  school.Code,
		SchoolID:    school.ID,
		PrincipalID: sub.PrincipalID,
		Username:    username,
		ClientIP:    req.ClientIP,
		OccurredAt:  time.Now().UTC(),
	})
	return pair, nil
}

// authenticate resolves the school and the principal and checks the
// password. The returned subject is bound to the resolved school, which
// for enrolled principals differs from their home school.
func (s *Service) authenticate(ctx context.Context, code, username, password string) (Subject, model.School, error) {
	school, err := s.schools.GetByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.ErrorContext(ctx, "school lookup failed", "school_code", code, "error", err)
		}
		return Subject{}, model.School{}, ErrTenantNotFound
	}

	p, err := s.principalOf(ctx, school, username)
	if err != nil {
		return Subject{}, school, err
	}
	if !VerifyPassword(p.PasswordHash, password) {
		return Subject{}, school, ErrInvalidCredentials
	}
	if !p.IsActive {
		return Subject{}, school, ErrInvalidCredentials
	}
	return Subject{PrincipalID: p.ID, TenantID: school.ID, Role: p.Role}, school, nil
}

// principalOf looks the username up in the school's own principals first
// and falls back to principals enrolled in the school.
func (s *Service) principalOf(ctx context.Context, school model.School, username string) (model.Principal, error) {
	p, err := s.creds.GetByUsername(ctx, school.ID, username)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.log.ErrorContext(ctx, "principal lookup failed", "school_id", school.ID, "error", err)
		return model.Principal{}, ErrPrincipalNotFound
	}
	return s.enrolledPrincipalOf(ctx, school, username)
}

// enrolledPrincipalOf resolves a principal registered under another school
// who holds an enrollment in this one.
func (s *Service) enrolledPrincipalOf(ctx context.Context, school model.School, username string) (model.Principal, error) {
	p, err := s.creds.GetEnrolledByUsername(ctx, school.ID, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.ErrorContext(ctx, "enrolled principal lookup failed", "school_id", school.ID, "error", err)
		}
		return model.Principal{}, ErrPrincipalNotFound
	}
	return p, nil
}

// Refresh mints a new access token from a refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (IssuedToken, error) {
	return s.tokens.Refresh(ctx, refreshToken)
}

// Logout revokes the refresh token of the principal in tc.
func (s *Service) Logout(ctx context.Context, tc TenantContext, refreshToken string) error {
	if err := s.tokens.Revoke(ctx, refreshToken, tc.PrincipalID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "logout", "school_id", tc.TenantID, "principal_id", tc.PrincipalID)
	_ = s.events.Publish(ctx, queue.SecurityEvent{
		Type:        queue.EventLogout,
		SchoolID:    tc.TenantID,
		PrincipalID: tc.PrincipalID,
		OccurredAt:  time.Now().UTC(),
	})
	return nil
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, ErrTenantNotFound):
		return metrics.OutcomeTenantNotFound
	case errors.Is(err, ErrPrincipalNotFound):
		return metrics.OutcomePrincipalNotFound
	case errors.Is(err, ErrInvalidCredentials):
		return metrics.OutcomeInvalidCredentials
	}
	return metrics.OutcomeError
}
