package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/eneogroup/elimu-app-backend/internal/config"
	"github.com/eneogroup/elimu-app-backend/internal/kvstore"
	"github.com/eneogroup/elimu-app-backend/internal/metrics"
	"github.com/eneogroup/elimu-app-backend/internal/model"
	"github.com/eneogroup/elimu-app-backend/internal/repository"
)

// Token types carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims are the JWT claims of both token types. The tenant id is fixed
// at login and cannot be changed by the bearer.
type Claims struct {
	jwt.RegisteredClaims
	TenantID uint64     `json:"tid"`
	Role     model.Role `json:"role"`
	Type     string     `json:"typ"`
}

// Subject identifies whom a token pair is issued to.
type Subject struct {
	PrincipalID uint64
	TenantID    uint64
	Role        model.Role
}

// IssuedToken is a signed JWT along with its expiry.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenPair is returned by a successful login.
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// RefreshStore persists the outstanding set of refresh tokens.
type RefreshStore interface {
	StoreRefresh(ctx context.Context, t model.RefreshToken) error
	GetRefresh(ctx context.Context, jti string) (model.RefreshToken, error)
	RevokeRefresh(ctx context.Context, jti string) error
}

// TokenManager issues, refreshes, revokes and verifies tokens. Access
// tokens are stateless. Refresh tokens are recorded in a RefreshStore
// and revoked through a blacklist in the shared key-value store, so a
// revocation is visible to every server process immediately.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      RefreshStore
	kv         kvstore.Store
	now        func() time.Time
}

// NewTokenManager returns a manager signing with cfg.Secret.
func NewTokenManager(cfg config.TokenConfig, store RefreshStore, kv kvstore.Store) *TokenManager {
	return &TokenManager{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		store:      store,
		kv:         kv,
		now:        time.Now,
	}
}

func blacklistKey(jti string) string { return "auth:blacklist:" + jti }

// Issue mints an access token and a refresh token for s and records the
// refresh token as outstanding.
func (m *TokenManager) Issue(ctx context.Context, s Subject) (TokenPair, error) {
	now := m.now().UTC()
	access, err := m.sign(s, TypeAccess, now, m.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, jti, err := m.signWithID(s, TypeRefresh, now, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	err = m.store.StoreRefresh(ctx, model.RefreshToken{
		JTI:         jti,
		PrincipalID: s.PrincipalID,
		SchoolID:    s.TenantID,
		ExpiresAt:   refresh.ExpiresAt,
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	metrics.TokenOperationsTotal.WithLabelValues("issue", "ok").Inc()
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh mints a new access token from a valid, outstanding refresh
// token. The refresh token itself is not rotated.
func (m *TokenManager) Refresh(ctx context.Context, raw string) (IssuedToken, error) {
	claims, err := m.outstandingRefresh(ctx, raw)
	if err != nil {
		metrics.TokenOperationsTotal.WithLabelValues("refresh", "rejected").Inc()
		return IssuedToken{}, err
	}
	s, err := subjectOf(claims)
	if err != nil {
		return IssuedToken{}, err
	}
	tok, err := m.sign(s, TypeAccess, m.now().UTC(), m.accessTTL)
	if err != nil {
		return IssuedToken{}, err
	}
	metrics.TokenOperationsTotal.WithLabelValues("refresh", "ok").Inc()
	return tok, nil
}

// Revoke blacklists a refresh token owned by principalID and marks it
// revoked in the store. Revoking a token twice fails with ErrTokenInvalid.
func (m *TokenManager) Revoke(ctx context.Context, raw string, principalID uint64) error {
	claims, err := m.outstandingRefresh(ctx, raw)
	if err != nil {
		metrics.TokenOperationsTotal.WithLabelValues("revoke", "rejected").Inc()
		return err
	}
	if claims.Subject != strconv.FormatUint(principalID, 10) {
		metrics.TokenOperationsTotal.WithLabelValues("revoke", "rejected").Inc()
		return fmt.Errorf("%w: token belongs to another principal", ErrTokenInvalid)
	}
	ttl := claims.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return ErrTokenExpired
	}
	set, err := m.kv.SetNX(ctx, blacklistKey(claims.ID), ttl)
	if err != nil {
		return fmt.Errorf("blacklist refresh token: %w", err)
	}
	if !set {
		// A concurrent logout won the race.
		return fmt.Errorf("%w: already revoked", ErrTokenInvalid)
	}
	if err := m.store.RevokeRefresh(ctx, claims.ID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	metrics.TokenOperationsTotal.WithLabelValues("revoke", "ok").Inc()
	return nil
}

// Verify checks an access token and returns its claims. Refresh tokens
// are rejected.
func (m *TokenManager) Verify(raw string) (*Claims, error) {
	return m.parse(raw, TypeAccess)
}

// Inspect checks a token of either type. Refresh tokens must also not be
// blacklisted.
func (m *TokenManager) Inspect(ctx context.Context, raw string) (*Claims, error) {
	claims, err := m.parse(raw, "")
	if err != nil {
		return nil, err
	}
	if claims.Type == TypeRefresh {
		revoked, err := m.kv.Exists(ctx, blacklistKey(claims.ID))
		if err != nil {
			return nil, fmt.Errorf("check blacklist: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: revoked", ErrTokenInvalid)
		}
	}
	return claims, nil
}

// outstandingRefresh parses raw as a refresh token and checks that it is
// neither blacklisted nor revoked in the store.
func (m *TokenManager) outstandingRefresh(ctx context.Context, raw string) (*Claims, error) {
	claims, err := m.parse(raw, TypeRefresh)
	if err != nil {
		return nil, err
	}
	revoked, err := m.kv.Exists(ctx, blacklistKey(claims.ID))
	if err != nil {
		return nil, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: revoked", ErrTokenInvalid)
	}
	rec, err := m.store.GetRefresh(ctx, claims.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown refresh token", ErrTokenInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	if !rec.Outstanding(m.now()) {
		return nil, fmt.Errorf("%w: revoked", ErrTokenInvalid)
	}
	return claims, nil
}

// parse validates signature, algorithm, issuer and expiry. A non-empty
// want restricts the token type.
func (m *TokenManager) parse(raw, want string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.ID == "" || claims.TenantID == 0 {
		return nil, fmt.Errorf("%w: incomplete claims", ErrTokenInvalid)
	}
	if claims.Type != TypeAccess && claims.Type != TypeRefresh {
		return nil, fmt.Errorf("%w: unknown token type", ErrTokenInvalid)
	}
	if want != "" && claims.Type != want {
		return nil, fmt.Errorf("%w: %s token presented where %s expected", ErrTokenInvalid, claims.Type, want)
	}
	return claims, nil
}

func (m *TokenManager) sign(s Subject, typ string, now time.Time, ttl time.Duration) (IssuedToken, error) {
	tok, _, err := m.signWithID(s, typ, now, ttl)
	return tok, err
}

func (m *TokenManager) signWithID(s Subject, typ string, now time.Time, ttl time.Duration) (IssuedToken, string, error) {
	jti := uuid.NewString()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatUint(s.PrincipalID, 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		TenantID: s.TenantID,
		Role:     s.Role,
		Type:     typ,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return IssuedToken{}, "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return IssuedToken{Token: signed, ExpiresAt: exp}, jti, nil
}

func subjectOf(c *Claims) (Subject, error) {
	tc, err := NewTenantContext(c)
	if err != nil {
		return Subject{}, err
	}
	return Subject{PrincipalID: tc.PrincipalID, TenantID: tc.TenantID, Role: tc.Role}, nil
}
