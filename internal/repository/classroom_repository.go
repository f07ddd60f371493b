package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/eneogroup/elimu-app-backend/internal/model"
)

const classroomColumns = "id, school_id, name, level, attendance_frequency, created_at, updated_at"

// ClassroomRepo stores classrooms.
type ClassroomRepo struct{ DB *sqlx.DB }

func NewClassroomRepo(db *sqlx.DB) *ClassroomRepo { return &ClassroomRepo{DB: db} }

// Create inserts c and sets its ID.
func (r *ClassroomRepo) Create(ctx context.Context, c *model.Classroom) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO classrooms (school_id, name, level, attendance_frequency) VALUES (?,?,?,?)",
		c.SchoolID, c.Name, c.Level, c.AttendanceFrequency)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID fetches a classroom by primary key, whatever its school.
func (r *ClassroomRepo) GetByID(ctx context.Context, id uint64) (model.Classroom, error) {
	var c model.Classroom
	err := r.DB.GetContext(ctx, &c, "SELECT "+classroomColumns+" FROM classrooms WHERE id=? LIMIT 1", id)
	return c, translate(err)
}

// ListBySchool returns the classrooms of schoolID ordered by name.
func (r *ClassroomRepo) ListBySchool(ctx context.Context, schoolID uint64) ([]model.Classroom, error) {
	cs := []model.Classroom{}
	err := r.DB.SelectContext(ctx, &cs,
		"SELECT "+classroomColumns+" FROM classrooms WHERE school_id=? ORDER BY name", schoolID)
	return cs, translate(err)
}

// Update writes the mutable fields of c.
func (r *ClassroomRepo) Update(ctx context.Context, c *model.Classroom) error {
	return execOne(ctx, r.DB,
		"UPDATE classrooms SET name=?, level=?, attendance_frequency=? WHERE id=? AND school_id=?",
		c.Name, c.Level, c.AttendanceFrequency, c.ID, c.SchoolID)
}

// Delete removes classroom id. Classrooms with enrollments yield ErrConflict.
func (r *ClassroomRepo) Delete(ctx context.Context, id uint64) error {
	return execOne(ctx, r.DB, "DELETE FROM classrooms WHERE id=?", id)
}
