package model

import "time"

// School is the tenant. Every scoped record carries exactly one school
// reference, set at creation and never changed afterwards.
type School struct {
	ID        uint64    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	City      string    `db:"city" json:"city"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TenantScoped is implemented by every record owned by a school.
type TenantScoped interface {
	TenantID() uint64
}

// SchoolYear is an academic year of a school, e.g. "2024-2025". At most
// one school year per school is current.
type SchoolYear struct {
	ID        uint64    `db:"id" json:"id"`
	SchoolID  uint64    `db:"school_id" json:"school_id"`
	Label     string    `db:"label" json:"label"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (y SchoolYear) TenantID() uint64 { return y.SchoolID }

// Classroom is a class group of a school.
type Classroom struct {
	ID                  uint64    `db:"id" json:"id"`
	SchoolID            uint64    `db:"school_id" json:"school_id"`
	Name                string    `db:"name" json:"name"`
	Level               string    `db:"level" json:"level"`
	AttendanceFrequency string    `db:"attendance_frequency" json:"attendance_frequency"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

func (c Classroom) TenantID() uint64 { return c.SchoolID }
