package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/eneogroup/elimu-app-backend/internal/model"
)

const principalColumns = "p.id, p.school_id, p.username, p.password_hash, p.role, p.full_name, p.is_active, p.created_at, p.updated_at"

// PrincipalRepo stores principals and resolves them for login.
type PrincipalRepo struct{ DB *sqlx.DB }

func NewPrincipalRepo(db *sqlx.DB) *PrincipalRepo { return &PrincipalRepo{DB: db} }

// Create inserts p and sets its ID. A taken username within the school
// yields ErrDuplicate.
func (r *PrincipalRepo) Create(ctx context.Context, p *model.Principal) error {
	p.Username = strings.TrimSpace(p.Username)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO principals (school_id, username, password_hash, role, full_name, is_active) VALUES (?,?,?,?,?,?)",
		p.SchoolID, p.Username, p.PasswordHash, p.Role, p.FullName, p.IsActive)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID fetches a principal by id.
func (r *PrincipalRepo) GetByID(ctx context.Context, id uint64) (model.Principal, error) {
	var p model.Principal
	err := r.DB.GetContext(ctx, &p, "SELECT "+principalColumns+" FROM principals p WHERE p.id=? LIMIT 1", id)
	return p, translate(err)
}

// GetByUsername fetches the principal registered under schoolID.
func (r *PrincipalRepo) GetByUsername(ctx context.Context, schoolID uint64, username string) (model.Principal, error) {
	var p model.Principal
	err := r.DB.GetContext(ctx, &p,
		"SELECT "+principalColumns+" FROM principals p WHERE p.school_id=? AND p.username=? LIMIT 1",
		schoolID, strings.TrimSpace(username))
	return p, translate(err)
}

// GetEnrolledByUsername fetches a principal registered elsewhere who holds
// an enrollment in schoolID. When several distinct principals share the
// username the lookup is ambiguous and reports ErrNotFound.
func (r *PrincipalRepo) GetEnrolledByUsername(ctx context.Context, schoolID uint64, username string) (model.Principal, error) {
	var ps []model.Principal
	err := r.DB.SelectContext(ctx, &ps,
		`SELECT DISTINCT `+principalColumns+`
		   FROM principals p
		   JOIN enrollments e ON e.principal_id = p.id
		  WHERE e.school_id = ? AND p.username = ?
		  LIMIT 2`,
		schoolID, strings.TrimSpace(username))
	if err != nil {
		return model.Principal{}, translate(err)
	}
	if len(ps) != 1 {
		return model.Principal{}, ErrNotFound
	}
	return ps[0], nil
}

// ListBySchool returns the principals registered under schoolID.
func (r *PrincipalRepo) ListBySchool(ctx context.Context, schoolID uint64) ([]model.Principal, error) {
	ps := []model.Principal{}
	err := r.DB.SelectContext(ctx, &ps,
		"SELECT "+principalColumns+" FROM principals p WHERE p.school_id=? ORDER BY p.username", schoolID)
	return ps, translate(err)
}

// UpdatePassword replaces the password hash of principal id.
func (r *PrincipalRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	return execOne(ctx, r.DB, "UPDATE principals SET password_hash=? WHERE id=?", hash, id)
}

// SetActive activates or deactivates principal id.
func (r *PrincipalRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	return execOne(ctx, r.DB, "UPDATE principals SET is_active=? WHERE id=?", active, id)
}
