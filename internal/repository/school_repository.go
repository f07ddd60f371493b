package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/eneogroup/elimu-app-backend/internal/model"
)

const schoolColumns = "id, code, name, city, created_at, updated_at"

// SchoolRepo stores tenants.
type SchoolRepo struct{ DB *sqlx.DB }

func NewSchoolRepo(db *sqlx.DB) *SchoolRepo { return &SchoolRepo{DB: db} }

// Create inserts s and sets its ID. Codes are stored upper-cased.
func (r *SchoolRepo) Create(ctx context.Context, s *model.School) error {
	s.Code = strings.ToUpper(strings.TrimSpace(s.Code))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO schools (code, name, city) VALUES (?,?,?)",
		s.Code, s.Name, s.City)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByCode fetches a school by its code, case-insensitively.
func (r *SchoolRepo) GetByCode(ctx context.Context, code string) (model.School, error) {
	var s model.School
	err := r.DB.GetContext(ctx, &s,
		"SELECT "+schoolColumns+" FROM schools WHERE code=? LIMIT 1",
		strings.ToUpper(strings.TrimSpace(code)))
	return s, translate(err)
}

// GetByID fetches a school by id.
func (r *SchoolRepo) GetByID(ctx context.Context, id uint64) (model.School, error) {
	var s model.School
	err := r.DB.GetContext(ctx, &s, "SELECT "+schoolColumns+" FROM schools WHERE id=? LIMIT 1", id)
	return s, translate(err)
}
