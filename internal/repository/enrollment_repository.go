package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/eneogroup/elimu-app-backend/internal/model"
)

const enrollmentColumns = `id, school_id, principal_id, school_year_id, classroom_id,
	is_active, is_paid, is_graduated, is_transferred, is_suspended, is_withdrawn, is_reenrolled,
	created_at, updated_at`

// EnrollmentFilter narrows a list query. Zero fields are ignored.
type EnrollmentFilter struct {
	SchoolYearID uint64
	ClassroomID  uint64
	PrincipalID  uint64
}

// EnrollmentRepo stores enrollments. The unique index on
// (principal_id, school_year_id, classroom_id) backs the duplicate check.
type EnrollmentRepo struct{ DB *sqlx.DB }

func NewEnrollmentRepo(db *sqlx.DB) *EnrollmentRepo { return &EnrollmentRepo{DB: db} }

// Create inserts e and sets its ID. A duplicate tuple yields ErrDuplicate.
func (r *EnrollmentRepo) Create(ctx context.Context, e *model.Enrollment) error {
	res, err := r.DB.NamedExecContext(ctx,
		`INSERT INTO enrollments (school_id, principal_id, school_year_id, classroom_id,
			is_active, is_paid, is_graduated, is_transferred, is_suspended, is_withdrawn, is_reenrolled)
		 VALUES (:school_id, :principal_id, :school_year_id, :classroom_id,
			:is_active, :is_paid, :is_graduated, :is_transferred, :is_suspended, :is_withdrawn, :is_reenrolled)`,
		e)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// GetByID fetches an enrollment by primary key, whatever its school.
func (r *EnrollmentRepo) GetByID(ctx context.Context, id uint64) (model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.GetContext(ctx, &e, "SELECT "+enrollmentColumns+" FROM enrollments WHERE id=? LIMIT 1", id)
	return e, translate(err)
}

// Exists reports whether the (principal, school year, classroom) tuple is taken.
func (r *EnrollmentRepo) Exists(ctx context.Context, principalID, schoolYearID, classroomID uint64) (bool, error) {
	var n int
	err := r.DB.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM enrollments WHERE principal_id=? AND school_year_id=? AND classroom_id=?",
		principalID, schoolYearID, classroomID)
	if err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

// ListBySchool returns the enrollments of schoolID matching f.
func (r *EnrollmentRepo) ListBySchool(ctx context.Context, schoolID uint64, f EnrollmentFilter) ([]model.Enrollment, error) {
	query := "SELECT " + enrollmentColumns + " FROM enrollments WHERE school_id=?"
	args := []any{schoolID}
	if f.SchoolYearID != 0 {
		query += " AND school_year_id=?"
		args = append(args, f.SchoolYearID)
	}
	if f.ClassroomID != 0 {
		query += " AND classroom_id=?"
		args = append(args, f.ClassroomID)
	}
	if f.PrincipalID != 0 {
		query += " AND principal_id=?"
		args = append(args, f.PrincipalID)
	}
	query += " ORDER BY id"

	es := []model.Enrollment{}
	err := r.DB.SelectContext(ctx, &es, query, args...)
	return es, translate(err)
}

// UpdateStatus sets the non-nil flags of p on enrollment id in one
// statement; the other flags keep their stored value.
func (r *EnrollmentRepo) UpdateStatus(ctx context.Context, id uint64, p model.EnrollmentStatusPatch) error {
	return execOne(ctx, r.DB,
		`UPDATE enrollments SET
			is_active=COALESCE(?, is_active),
			is_paid=COALESCE(?, is_paid),
			is_graduated=COALESCE(?, is_graduated),
			is_transferred=COALESCE(?, is_transferred),
			is_suspended=COALESCE(?, is_suspended),
			is_withdrawn=COALESCE(?, is_withdrawn),
			is_reenrolled=COALESCE(?, is_reenrolled)
		WHERE id=?`,
		p.IsActive, p.IsPaid, p.IsGraduated, p.IsTransferred,
		p.IsSuspended, p.IsWithdrawn, p.IsReenrolled, id)
}

// Delete removes enrollment id. Enrollments with evaluations yield ErrConflict.
func (r *EnrollmentRepo) Delete(ctx context.Context, id uint64) error {
	return execOne(ctx, r.DB, "DELETE FROM enrollments WHERE id=?", id)
}
