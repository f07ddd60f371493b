package model

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the closed set of principal roles.
type Role string

const (
	RoleAdmin                Role = "admin"
	RoleSchoolManager        Role = "school_manager"
	RoleTeacher              Role = "teacher"
	RoleAccountant           Role = "accountant"
	RoleLibraryManager       Role = "library_manager"
	RoleCommunicationManager Role = "communication_manager"
	RoleStudent              Role = "student"
	RoleParent               Role = "parent"
)

// ErrUnknownRole is returned by ParseRole for names outside the enumeration.
var ErrUnknownRole = errors.New("unknown role")

// Capability names an operation family guarded by role.
type Capability string

const (
	CapManageSchoolYears   Capability = "school_years"
	CapManageClassrooms    Capability = "classrooms"
	CapManageEnrollments   Capability = "enrollments"
	CapManageEvaluations   Capability = "evaluations"
	CapManageInvoices      Capability = "invoices"
	CapManageLibrary       Capability = "library"
	CapManageAnnouncements Capability = "announcements"
	CapViewStatistics      Capability = "statistics"
)

// capabilities maps each role to the operation families it may use.
// Roles absent from the map (student, parent) only reach their own
// profile.
var capabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapManageSchoolYears:   true,
		CapManageClassrooms:    true,
		CapManageEnrollments:   true,
		CapManageEvaluations:   true,
		CapManageInvoices:      true,
		CapManageLibrary:       true,
		CapManageAnnouncements: true,
		CapViewStatistics:      true,
	},
	RoleSchoolManager: {
		CapManageSchoolYears: true,
		CapManageClassrooms:  true,
		CapManageEnrollments: true,
		CapViewStatistics:    true,
	},
	RoleTeacher:              {CapManageEvaluations: true},
	RoleAccountant:           {CapManageInvoices: true},
	RoleLibraryManager:       {CapManageLibrary: true},
	RoleCommunicationManager: {CapManageAnnouncements: true},
}

var allRoles = []Role{
	RoleAdmin, RoleSchoolManager, RoleTeacher, RoleAccountant,
	RoleLibraryManager, RoleCommunicationManager, RoleStudent, RoleParent,
}

// Roles returns every role of the enumeration.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// ParseRole normalises s and checks it against the enumeration.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Valid reports whether r belongs to the enumeration.
func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Can reports whether r holds capability c. Unknown roles hold nothing.
func (r Role) Can(c Capability) bool {
	return capabilities[r][c]
}
