package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/eneogroup/elimu-app-backend/internal/model"
)

const schoolYearColumns = "id, school_id, label, start_date, end_date, is_current, created_at, updated_at"

// SchoolYearRepo stores school years. At most one school year per school
// is current; every write that sets is_current clears it on the others
// inside the same transaction.
type SchoolYearRepo struct{ DB *sqlx.DB }

func NewSchoolYearRepo(db *sqlx.DB) *SchoolYearRepo { return &SchoolYearRepo{DB: db} }

// Create inserts y and sets its ID.
func (r *SchoolYearRepo) Create(ctx context.Context, y *model.SchoolYear) error {
	return withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if y.IsCurrent {
			if err := clearCurrent(ctx, tx, y.SchoolID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO school_years (school_id, label, start_date, end_date, is_current) VALUES (?,?,?,?,?)",
			y.SchoolID, y.Label, day(y.StartDate), day(y.EndDate), y.IsCurrent)
		if err != nil {
			return translate(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		y.ID = uint64(id)
		return nil
	})
}

// GetByID fetches a school year by primary key, whatever its school.
func (r *SchoolYearRepo) GetByID(ctx context.Context, id uint64) (model.SchoolYear, error) {
	var y model.SchoolYear
	err := r.DB.GetContext(ctx, &y, "SELECT "+schoolYearColumns+" FROM school_years WHERE id=? LIMIT 1", id)
	return y, translate(err)
}

// ListBySchool returns the school years of schoolID, newest first.
func (r *SchoolYearRepo) ListBySchool(ctx context.Context, schoolID uint64) ([]model.SchoolYear, error) {
	ys := []model.SchoolYear{}
	err := r.DB.SelectContext(ctx, &ys,
		"SELECT "+schoolYearColumns+" FROM school_years WHERE school_id=? ORDER BY start_date DESC, id DESC", schoolID)
	return ys, translate(err)
}

// Current returns the current school year of schoolID.
func (r *SchoolYearRepo) Current(ctx context.Context, schoolID uint64) (model.SchoolYear, error) {
	var y model.SchoolYear
	err := r.DB.GetContext(ctx, &y,
		"SELECT "+schoolYearColumns+" FROM school_years WHERE school_id=? AND is_current=1 LIMIT 1", schoolID)
	return y, translate(err)
}

// Update writes the mutable fields of y. The school is never changed.
func (r *SchoolYearRepo) Update(ctx context.Context, y *model.SchoolYear) error {
	return withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if y.IsCurrent {
			if err := clearCurrent(ctx, tx, y.SchoolID); err != nil {
				return err
			}
		}
		return execOne(ctx, tx,
			"UPDATE school_years SET label=?, start_date=?, end_date=?, is_current=? WHERE id=? AND school_id=?",
			y.Label, day(y.StartDate), day(y.EndDate), y.IsCurrent, y.ID, y.SchoolID)
	})
}

// SetCurrent makes school year id the only current one of schoolID.
func (r *SchoolYearRepo) SetCurrent(ctx context.Context, schoolID, id uint64) error {
	return withTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if err := clearCurrent(ctx, tx, schoolID); err != nil {
			return err
		}
		return execOne(ctx, tx,
			"UPDATE school_years SET is_current=1 WHERE id=? AND school_id=?", id, schoolID)
	})
}

// Delete removes school year id. Years still referenced by enrollments
// yield ErrConflict.
func (r *SchoolYearRepo) Delete(ctx context.Context, id uint64) error {
	return execOne(ctx, r.DB, "DELETE FROM school_years WHERE id=?", id)
}

// clearCurrent locks the school's rows and unsets is_current on all of
// them, serialising concurrent writers of the same school.
func clearCurrent(ctx context.Context, tx *sqlx.Tx, schoolID uint64) error {
	var ids []uint64
	if err := tx.SelectContext(ctx, &ids, "SELECT id FROM school_years WHERE school_id=? FOR UPDATE", schoolID); err != nil {
		return translate(err)
	}
	_, err := tx.ExecContext(ctx, "UPDATE school_years SET is_current=0 WHERE school_id=? AND is_current=1", schoolID)
	return translate(err)
}
