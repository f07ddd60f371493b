package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/eneogroup/elimu-app-backend/internal/model"
)

const evaluationColumns = `id, school_id, principal_id, enrollment_id, school_year_id, subject_id,
	evaluated_on, score, remarks, created_at, updated_at`

// EvaluationFilter narrows a list query. Zero fields are ignored.
type EvaluationFilter struct {
	EnrollmentID uint64
	PrincipalID  uint64
	SchoolYearID uint64
}

// EvaluationRepo stores evaluations.
type EvaluationRepo struct{ DB *sqlx.DB }

func NewEvaluationRepo(db *sqlx.DB) *EvaluationRepo { return &EvaluationRepo{DB: db} }

// Create inserts ev and sets its ID. A second evaluation of the same
// principal, subject and day yields ErrDuplicate.
func (r *EvaluationRepo) Create(ctx context.Context, ev *model.Evaluation) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO evaluations (school_id, principal_id, enrollment_id, school_year_id, subject_id, evaluated_on, score, remarks)
		 VALUES (?,?,?,?,?,?,?,?)`,
		ev.SchoolID, ev.PrincipalID, ev.EnrollmentID, ev.SchoolYearID, ev.SubjectID, day(ev.EvaluatedOn), ev.Score, ev.Remarks)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	return nil
}

// GetByID fetches an evaluation by primary key, whatever its school.
func (r *EvaluationRepo) GetByID(ctx context.Context, id uint64) (model.Evaluation, error) {
	var ev model.Evaluation
	err := r.DB.GetContext(ctx, &ev, "SELECT "+evaluationColumns+" FROM evaluations WHERE id=? LIMIT 1", id)
	return ev, translate(err)
}

// ListBySchool returns the evaluations of schoolID matching f, newest first.
func (r *EvaluationRepo) ListBySchool(ctx context.Context, schoolID uint64, f EvaluationFilter) ([]model.Evaluation, error) {
	query := "SELECT " + evaluationColumns + " FROM evaluations WHERE school_id=?"
	args := []any{schoolID}
	if f.EnrollmentID != 0 {
		query += " AND enrollment_id=?"
		args = append(args, f.EnrollmentID)
	}
	if f.PrincipalID != 0 {
		query += " AND principal_id=?"
		args = append(args, f.PrincipalID)
	}
	if f.SchoolYearID != 0 {
		query += " AND school_year_id=?"
		args = append(args, f.SchoolYearID)
	}
	query += " ORDER BY evaluated_on DESC, id DESC"

	evs := []model.Evaluation{}
	err := r.DB.SelectContext(ctx, &evs, query, args...)
	return evs, translate(err)
}

// Update writes every mutable field of ev.
func (r *EvaluationRepo) Update(ctx context.Context, ev *model.Evaluation) error {
	return execOne(ctx, r.DB,
		`UPDATE evaluations SET principal_id=?, enrollment_id=?, school_year_id=?, subject_id=?,
			evaluated_on=?, score=?, remarks=? WHERE id=? AND school_id=?`,
		ev.PrincipalID, ev.EnrollmentID, ev.SchoolYearID, ev.SubjectID,
		day(ev.EvaluatedOn), ev.Score, ev.Remarks, ev.ID, ev.SchoolID)
}

// Delete removes evaluation id.
func (r *EvaluationRepo) Delete(ctx context.Context, id uint64) error {
	return execOne(ctx, r.DB, "DELETE FROM evaluations WHERE id=?", id)
}
