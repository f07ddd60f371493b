package enrollment

import (
	"context"
	"errors"
	"fmt"

	"github.com/eneogroup/elimu-app-backend/internal/auth"
	"github.com/eneogroup/elimu-app-backend/internal/model"
	"github.com/eneogroup/elimu-app-backend/internal/repository"
)

// ClassroomReader loads classrooms by id.
type ClassroomReader interface {
	GetByID(ctx context.Context, id uint64) (model.Classroom, error)
}

// SchoolYearReader loads school years by id.
type SchoolYearReader interface {
	GetByID(ctx context.Context, id uint64) (model.SchoolYear, error)
}

// EnrollmentStore persists enrollments. Create must fail with
// repository.ErrDuplicate when the (principal, school year, classroom)
// tuple already exists, so concurrent inserts cannot both succeed.
type EnrollmentStore interface {
	GetByID(ctx context.Context, id uint64) (model.Enrollment, error)
	Exists(ctx context.Context, principalID, schoolYearID, classroomID uint64) (bool, error)
	Create(ctx context.Context, e *model.Enrollment) error
	UpdateStatus(ctx context.Context, id uint64, p model.EnrollmentStatusPatch) error
}

// EvaluationStore persists evaluations. Create and Update fail with
// repository.ErrDuplicate on a (principal, subject, date) collision.
type EvaluationStore interface {
	GetByID(ctx context.Context, id uint64) (model.Evaluation, error)
	Create(ctx context.Context, ev *model.Evaluation) error
	Update(ctx context.Context, ev *model.Evaluation) error
}

// Service validates enrollment and evaluation writes before they reach
// the store. Every write is scoped to the tenant of the request context.
type Service struct {
	classrooms  ClassroomReader
	years       SchoolYearReader
	enrollments EnrollmentStore
	evaluations EvaluationStore
	gate        *auth.Gate
}

// NewService wires the consistency service.
func NewService(classrooms ClassroomReader, years SchoolYearReader, enrollments EnrollmentStore, evaluations EvaluationStore, gate *auth.Gate) *Service {
	return &Service{classrooms: classrooms, years: years, enrollments: enrollments, evaluations: evaluations, gate: gate}
}

// Enroll creates e in the request's school. e.SchoolID is overwritten.
func (s *Service) Enroll(ctx context.Context, e *model.Enrollment) error {
	tc, err := auth.RequireTenant(ctx)
	if err != nil {
		return err
	}
	e.SchoolID = tc.TenantID

	classroom, err := s.classrooms.GetByID(ctx, e.ClassroomID)
	if err != nil {
		return fmt.Errorf("classroom %d: %w", e.ClassroomID, err)
	}
	year, err := s.years.GetByID(ctx, e.SchoolYearID)
	if err != nil {
		return fmt.Errorf("school year %d: %w", e.SchoolYearID, err)
	}
	exists, err := s.enrollments.Exists(ctx, e.PrincipalID, e.SchoolYearID, e.ClassroomID)
	if err != nil {
		return fmt.Errorf("check enrollment: %w", err)
	}
	if err := CheckEnrollment(*e, classroom, year, exists); err != nil {
		return err
	}

	if err := s.enrollments.Create(ctx, e); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race against a concurrent insert.
			return violation(ErrDuplicateEnrollment, "principal %d", e.PrincipalID)
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateStatus applies p to the lifecycle flags of enrollment id and
// returns the stored result. Flags absent from p are left unchanged.
func (s *Service) UpdateStatus(ctx context.Context, id uint64, p model.EnrollmentStatusPatch) (model.Enrollment, error) {
	cur, err := s.enrollments.GetByID(ctx, id)
	if err != nil {
		return model.Enrollment{}, fmt.Errorf("enrollment %d: %w", id, err)
	}
	if err := s.gate.Authorize(ctx, cur, auth.ActionUpdate); err != nil {
		return model.Enrollment{}, err
	}
	if p.Empty() {
		return cur, nil
	}
	if err := s.enrollments.UpdateStatus(ctx, id, p); err != nil {
		return model.Enrollment{}, fmt.Errorf("update enrollment: %w", err)
	}
	updated, err := s.enrollments.GetByID(ctx, id)
	if err != nil {
		return model.Enrollment{}, fmt.Errorf("enrollment %d: %w", id, err)
	}
	return updated, nil
}

// RecordEvaluation creates ev in the request's school. A zero principal
// or school year is taken from the enrollment.
func (s *Service) RecordEvaluation(ctx context.Context, ev *model.Evaluation) error {
	tc, err := auth.RequireTenant(ctx)
	if err != nil {
		return err
	}
	ev.SchoolID = tc.TenantID

	enr, err := s.linkedEnrollment(ctx, ev.EnrollmentID)
	if err != nil {
		return err
	}
	if ev.PrincipalID == 0 {
		ev.PrincipalID = enr.PrincipalID
	}
	if ev.SchoolYearID == 0 {
		ev.SchoolYearID = enr.SchoolYearID
	}
	if err := CheckEvaluation(*ev, enr); err != nil {
		return err
	}

	if err := s.evaluations.Create(ctx, ev); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return violation(ErrDuplicateEvaluation, "principal %d", ev.PrincipalID)
		}
		return fmt.Errorf("create evaluation: %w", err)
	}
	return nil
}

// UpdateEvaluation applies change to evaluation id and re-validates it
// against its (possibly new) enrollment. The id and school are kept.
func (s *Service) UpdateEvaluation(ctx context.Context, id uint64, change func(*model.Evaluation)) (model.Evaluation, error) {
	cur, err := s.evaluations.GetByID(ctx, id)
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("evaluation %d: %w", id, err)
	}
	if err := s.gate.Authorize(ctx, cur, auth.ActionUpdate); err != nil {
		return model.Evaluation{}, err
	}

	next := cur
	change(&next)
	next.ID, next.SchoolID = cur.ID, cur.SchoolID

	enr, err := s.linkedEnrollment(ctx, next.EnrollmentID)
	if err != nil {
		return model.Evaluation{}, err
	}
	if err := CheckEvaluation(next, enr); err != nil {
		return model.Evaluation{}, err
	}
	if err := s.evaluations.Update(ctx, &next); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Evaluation{}, violation(ErrDuplicateEvaluation, "principal %d", next.PrincipalID)
		}
		return model.Evaluation{}, fmt.Errorf("update evaluation: %w", err)
	}
	return next, nil
}

// linkedEnrollment loads an enrollment referenced by an evaluation and
// checks it belongs to the request's school.
func (s *Service) linkedEnrollment(ctx context.Context, id uint64) (model.Enrollment, error) {
	enr, err := s.enrollments.GetByID(ctx, id)
	if err != nil {
		return model.Enrollment{}, fmt.Errorf("enrollment %d: %w", id, err)
	}
	if err := s.gate.Authorize(ctx, enr, auth.ActionLink); err != nil {
		return model.Enrollment{}, err
	}
	return enr, nil
}
