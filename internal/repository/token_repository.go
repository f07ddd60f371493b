package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/eneogroup/elimu-app-backend/internal/model"
)

// TokenRepo persists the outstanding set of refresh tokens, keyed by jti.
type TokenRepo struct{ DB *sqlx.DB }

func NewTokenRepo(db *sqlx.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, t model.RefreshToken) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (jti, principal_id, school_id, expires_at) VALUES (?,?,?,?)",
		t.JTI, t.PrincipalID, t.SchoolID, t.ExpiresAt.UTC())
	return translate(err)
}

// GetRefresh loads a refresh token row by jti.
func (r *TokenRepo) GetRefresh(ctx context.Context, jti string) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.DB.GetContext(ctx, &t,
		"SELECT jti, principal_id, school_id, expires_at, revoked_at, created_at FROM refresh_tokens WHERE jti=? LIMIT 1",
		jti)
	return t, translate(err)
}

// RevokeRefresh marks a token as revoked. Revoking twice is a no-op.
func (r *TokenRepo) RevokeRefresh(ctx context.Context, jti string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE jti=? AND revoked_at IS NULL",
		jti)
	return translate(err)
}

// RevokeAllForPrincipal revokes every outstanding token of a principal and
// returns how many were revoked.
func (r *TokenRepo) RevokeAllForPrincipal(ctx context.Context, principalID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE principal_id=? AND revoked_at IS NULL",
		principalID)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

// PurgeExpired deletes rows whose expiry has passed.
func (r *TokenRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at < UTC_TIMESTAMP()")
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}
