package model

import "time"

// Enrollment registers a principal (a student) in a classroom for a
// school year. The tuple (principal, school year, classroom) is unique.
type Enrollment struct {
	ID           uint64 `db:"id" json:"id"`
	SchoolID     uint64 `db:"school_id" json:"school_id"`
	PrincipalID  uint64 `db:"principal_id" json:"principal_id"`
	SchoolYearID uint64 `db:"school_year_id" json:"school_year_id"`
	ClassroomID  uint64 `db:"classroom_id" json:"classroom_id"`
	EnrollmentStatus
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EnrollmentStatus groups the lifecycle flags of an enrollment.
type EnrollmentStatus struct {
	IsActive      bool `db:"is_active" json:"is_active"`
	IsPaid        bool `db:"is_paid" json:"is_paid"`
	IsGraduated   bool `db:"is_graduated" json:"is_graduated"`
	IsTransferred bool `db:"is_transferred" json:"is_transferred"`
	IsSuspended   bool `db:"is_suspended" json:"is_suspended"`
	IsWithdrawn   bool `db:"is_withdrawn" json:"is_withdrawn"`
	IsReenrolled  bool `db:"is_reenrolled" json:"is_reenrolled"`
}

func (e Enrollment) TenantID() uint64 { return e.SchoolID }

// EnrollmentStatusPatch is a partial change of the lifecycle flags. Nil
// fields keep their current value.
type EnrollmentStatusPatch struct {
	IsActive      *bool `json:"is_active"`
	IsPaid        *bool `json:"is_paid"`
	IsGraduated   *bool `json:"is_graduated"`
	IsTransferred *bool `json:"is_transferred"`
	IsSuspended   *bool `json:"is_suspended"`
	IsWithdrawn   *bool `json:"is_withdrawn"`
	IsReenrolled  *bool `json:"is_reenrolled"`
}

// Empty reports whether p changes nothing.
func (p EnrollmentStatusPatch) Empty() bool {
	return p == EnrollmentStatusPatch{}
}

// Apply returns st with the non-nil fields of p set.
func (p EnrollmentStatusPatch) Apply(st EnrollmentStatus) EnrollmentStatus {
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&st.IsActive, p.IsActive)
	set(&st.IsPaid, p.IsPaid)
	set(&st.IsGraduated, p.IsGraduated)
	set(&st.IsTransferred, p.IsTransferred)
	set(&st.IsSuspended, p.IsSuspended)
	set(&st.IsWithdrawn, p.IsWithdrawn)
	set(&st.IsReenrolled, p.IsReenrolled)
	return st
}

// Evaluation is a graded assessment of an enrolled principal. Its
// principal and school year always match those of its enrollment.
type Evaluation struct {
	ID           uint64    `db:"id" json:"id"`
	SchoolID     uint64    `db:"school_id" json:"school_id"`
	PrincipalID  uint64    `db:"principal_id" json:"principal_id"`
	EnrollmentID uint64    `db:"enrollment_id" json:"enrollment_id"`
	SchoolYearID uint64    `db:"school_year_id" json:"school_year_id"`
	SubjectID    uint64    `db:"subject_id" json:"subject_id"`
	EvaluatedOn  time.Time `db:"evaluated_on" json:"evaluated_on"`
	Score        *float64  `db:"score" json:"score"`
	Remarks      string    `db:"remarks" json:"remarks"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func (e Evaluation) TenantID() uint64 { return e.SchoolID }
