// Package enrollment keeps enrollment and evaluation records consistent:
// no duplicate enrollment, no cross-school references and no evaluation
// that disagrees with its enrollment.
package enrollment

import (
	"errors"
	"fmt"

	"github.com/eneogroup/elimu-app-backend/internal/metrics"
	"github.com/eneogroup/elimu-app-backend/internal/model"
)

// Consistency violations.
var (
	ErrDuplicateEnrollment = errors.New("principal already enrolled in this classroom for this school year")
	ErrTenantMismatch      = errors.New("referenced record belongs to another school")
	ErrInactiveEnrollment  = errors.New("enrollment is not active")
	ErrPrincipalMismatch   = errors.New("evaluation principal does not match the enrollment")
	ErrSchoolYearMismatch  = errors.New("evaluation school year does not match the enrollment")
	ErrDuplicateEvaluation = errors.New("principal already evaluated in this subject on this date")
)

// CheckEnrollment validates a new enrollment against the classroom and
// school year it references. alreadyEnrolled reports whether the
// (principal, school year, classroom) tuple already exists.
//
// School ownership is checked first so that a duplicate in another
// school is never revealed.
func CheckEnrollment(e model.Enrollment, classroom model.Classroom, year model.SchoolYear, alreadyEnrolled bool) error {
	switch {
	case classroom.SchoolID != e.SchoolID:
		return violation(ErrTenantMismatch, "classroom %d", classroom.ID)
	case year.SchoolID != e.SchoolID:
		return violation(ErrTenantMismatch, "school year %d", year.ID)
	case alreadyEnrolled:
		return violation(ErrDuplicateEnrollment, "principal %d", e.PrincipalID)
	}
	return nil
}

// CheckEvaluation validates an evaluation against its enrollment. The
// first violation in the order inactive, principal, school year wins.
func CheckEvaluation(ev model.Evaluation, enr model.Enrollment) error {
	switch {
	case !enr.IsActive:
		return violation(ErrInactiveEnrollment, "enrollment %d", enr.ID)
	case ev.PrincipalID != enr.PrincipalID:
		return violation(ErrPrincipalMismatch, "principal %d, enrollment has %d", ev.PrincipalID, enr.PrincipalID)
	case ev.SchoolYearID != enr.SchoolYearID:
		return violation(ErrSchoolYearMismatch, "school year %d, enrollment has %d", ev.SchoolYearID, enr.SchoolYearID)
	case ev.SchoolID != enr.SchoolID:
		return violation(ErrTenantMismatch, "enrollment %d", enr.ID)
	}
	return nil
}

func violation(kind error, format string, args ...any) error {
	metrics.ConsistencyViolationsTotal.WithLabelValues(label(kind)).Inc()
	return fmt.Errorf("%w: "+format, append([]any{kind}, args...)...)
}

func label(kind error) string {
	switch kind {
	case ErrDuplicateEnrollment:
		return "duplicate_enrollment"
	case ErrTenantMismatch:
		return "tenant_mismatch"
	case ErrInactiveEnrollment:
		return "inactive_enrollment"
	case ErrPrincipalMismatch:
		return "principal_mismatch"
	case ErrSchoolYearMismatch:
		return "school_year_mismatch"
	case ErrDuplicateEvaluation:
		return "duplicate_evaluation"
	}
	return "other"
}
