package model

import "time"

// Principal represents an authenticated actor as stored in the
// `principals` table. A principal belongs to exactly one school (its
// home tenant) and carries a role from the closed Role enumeration.
// Principals are never hard-deleted; they are deactivated instead.
//
// Fields:
//
//	ID           – primary key identifier of the principal.
//	SchoolID     – home tenant of the principal.
//	Username     – unique within the school.
//	PasswordHash – bcrypt hashed password, never serialised.
//	Role         – role name (see Role).
//	FullName     – display name.
//	IsActive     – false once the account has been deactivated.
type Principal struct {
	ID           uint64    `db:"id" json:"id"`
	SchoolID     uint64    `db:"school_id" json:"school_id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	FullName     string    `db:"full_name" json:"full_name"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TenantID implements TenantScoped.
func (p Principal) TenantID() uint64 { return p.SchoolID }

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// token identifier (jti) is stored; the signed token itself is never
// persisted. A row with a nil RevokedAt is outstanding.
type RefreshToken struct {
	JTI         string     `db:"jti"`
	PrincipalID uint64     `db:"principal_id"`
	SchoolID    uint64     `db:"school_id"`
	ExpiresAt   time.Time  `db:"expires_at"`
	RevokedAt   *time.Time `db:"revoked_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

// Outstanding reports whether the token is neither revoked nor expired at now.
func (t RefreshToken) Outstanding(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
