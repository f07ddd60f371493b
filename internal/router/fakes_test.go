package router

import (
	"context"
	"strings"
	"sync"

	"github.com/eneogroup/elimu-app-backend/internal/model"
	"github.com/eneogroup/elimu-app-backend/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories.
type memStore struct {
	mu          sync.Mutex
	nextID      uint64
	schools     []model.School
	principals  []model.Principal
	tokens      map[string]model.RefreshToken
	years       map[uint64]model.SchoolYear
	rooms       map[uint64]model.Classroom
	enrollments map[uint64]model.Enrollment
	evaluations map[uint64]model.Evaluation
}

func newMemStore() *memStore {
	return &memStore{
		nextID:      1000,
		tokens:      map[string]model.RefreshToken{},
		years:       map[uint64]model.SchoolYear{},
		rooms:       map[uint64]model.Classroom{},
		enrollments: map[uint64]model.Enrollment{},
		evaluations: map[uint64]model.Evaluation{},
	}
}

func (m *memStore) id() uint64 {
	m.nextID++
	return m.nextID
}

type schoolsRepo struct{ *memStore }

func (r schoolsRepo) GetByCode(_ context.Context, code string) (model.School, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.schools {
		if strings.EqualFold(s.Code, strings.TrimSpace(code)) {
			return s, nil
		}
	}
	return model.School{}, repository.ErrNotFound
}

type principalsRepo struct{ *memStore }

func (r principalsRepo) GetByUsername(_ context.Context, schoolID uint64, username string) (model.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.principals {
		if p.SchoolID == schoolID && p.Username == username {
			return p, nil
		}
	}
	return model.Principal{}, repository.ErrNotFound
}

func (r principalsRepo) GetEnrolledByUsername(_ context.Context, schoolID uint64, username string) (model.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.principals {
		if p.Username != username {
			continue
		}
		for _, e := range r.enrollments {
			if e.PrincipalID == p.ID && e.SchoolID == schoolID {
				return p, nil
			}
		}
	}
	return model.Principal{}, repository.ErrNotFound
}

type tokensRepo struct{ *memStore }

func (r tokensRepo) StoreRefresh(_ context.Context, t model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.JTI] = t
	return nil
}

func (r tokensRepo) GetRefresh(_ context.Context, jti string) (model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[jti]
	if !ok {
		return model.RefreshToken{}, repository.ErrNotFound
	}
	return t, nil
}

func (r tokensRepo) RevokeRefresh(_ context.Context, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[jti]; ok && t.RevokedAt == nil {
		now := t.ExpiresAt
		t.RevokedAt = &now
		r.tokens[jti] = t
	}
	return nil
}

type yearsRepo struct{ *memStore }

func (r yearsRepo) Create(_ context.Context, y *model.SchoolYear) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	y.ID = r.id()
	if y.IsCurrent {
		r.clearCurrent(y.SchoolID)
	}
	r.years[y.ID] = *y
	return nil
}

func (r yearsRepo) GetByID(_ context.Context, id uint64) (model.SchoolYear, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	y, ok := r.years[id]
	if !ok {
		return model.SchoolYear{}, repository.ErrNotFound
	}
	return y, nil
}

func (r yearsRepo) ListBySchool(_ context.Context, schoolID uint64) ([]model.SchoolYear, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.SchoolYear{}
	for _, y := range r.years {
		if y.SchoolID == schoolID {
			out = append(out, y)
		}
	}
	return out, nil
}

func (r yearsRepo) Current(_ context.Context, schoolID uint64) (model.SchoolYear, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, y := range r.years {
		if y.SchoolID == schoolID && y.IsCurrent {
			return y, nil
		}
	}
	return model.SchoolYear{}, repository.ErrNotFound
}

func (r yearsRepo) Update(_ context.Context, y *model.SchoolYear) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if y.IsCurrent {
		r.clearCurrent(y.SchoolID)
	}
	r.years[y.ID] = *y
	return nil
}

func (r yearsRepo) SetCurrent(_ context.Context, schoolID, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	y, ok := r.years[id]
	if !ok || y.SchoolID != schoolID {
		return repository.ErrNotFound
	}
	r.clearCurrent(schoolID)
	y.IsCurrent = true
	r.years[id] = y
	return nil
}

func (r yearsRepo) Delete(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.years, id)
	return nil
}

func (r yearsRepo) clearCurrent(schoolID uint64) {
	for id, y := range r.years {
		if y.SchoolID == schoolID && y.IsCurrent {
			y.IsCurrent = false
			r.years[id] = y
		}
	}
}

type roomsRepo struct{ *memStore }

func (r roomsRepo) Create(_ context.Context, c *model.Classroom) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.id()
	r.rooms[c.ID] = *c
	return nil
}

func (r roomsRepo) GetByID(_ context.Context, id uint64) (model.Classroom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rooms[id]
	if !ok {
		return model.Classroom{}, repository.ErrNotFound
	}
	return c, nil
}

func (r roomsRepo) ListBySchool(_ context.Context, schoolID uint64) ([]model.Classroom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Classroom{}
	for _, c := range r.rooms {
		if c.SchoolID == schoolID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r roomsRepo) Update(_ context.Context, c *model.Classroom) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[c.ID] = *c
	return nil
}

func (r roomsRepo) Delete(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.enrollments {
		if e.ClassroomID == id {
			return repository.ErrConflict
		}
	}
	delete(r.rooms, id)
	return nil
}

type enrollmentsRepo struct{ *memStore }

func (r enrollmentsRepo) GetByID(_ context.Context, id uint64) (model.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok {
		return model.Enrollment{}, repository.ErrNotFound
	}
	return e, nil
}

func (r enrollmentsRepo) Exists(_ context.Context, principalID, schoolYearID, classroomID uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exists(principalID, schoolYearID, classroomID), nil
}

func (r enrollmentsRepo) exists(principalID, schoolYearID, classroomID uint64) bool {
	for _, e := range r.enrollments {
		if e.PrincipalID == principalID && e.SchoolYearID == schoolYearID && e.ClassroomID == classroomID {
			return true
		}
	}
	return false
}

func (r enrollmentsRepo) Create(_ context.Context, e *model.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exists(e.PrincipalID, e.SchoolYearID, e.ClassroomID) {
		return repository.ErrDuplicate
	}
	e.ID = r.id()
	r.enrollments[e.ID] = *e
	return nil
}

func (r enrollmentsRepo) UpdateStatus(_ context.Context, id uint64, p model.EnrollmentStatusPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.EnrollmentStatus = p.Apply(e.EnrollmentStatus)
	r.enrollments[id] = e
	return nil
}

func (r enrollmentsRepo) ListBySchool(_ context.Context, schoolID uint64, f repository.EnrollmentFilter) ([]model.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Enrollment{}
	for _, e := range r.enrollments {
		if e.SchoolID != schoolID ||
			(f.PrincipalID != 0 && e.PrincipalID != f.PrincipalID) ||
			(f.ClassroomID != 0 && e.ClassroomID != f.ClassroomID) ||
			(f.SchoolYearID != 0 && e.SchoolYearID != f.SchoolYearID) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r enrollmentsRepo) Delete(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.enrollments, id)
	return nil
}

type evaluationsRepo struct{ *memStore }

func (r evaluationsRepo) GetByID(_ context.Context, id uint64) (model.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.evaluations[id]
	if !ok {
		return model.Evaluation{}, repository.ErrNotFound
	}
	return ev, nil
}

func (r evaluationsRepo) taken(ev *model.Evaluation) bool {
	for _, o := range r.evaluations {
		if o.ID != ev.ID && o.PrincipalID == ev.PrincipalID && o.SubjectID == ev.SubjectID && o.EvaluatedOn.Equal(ev.EvaluatedOn) {
			return true
		}
	}
	return false
}

func (r evaluationsRepo) Create(_ context.Context, ev *model.Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken(ev) {
		return repository.ErrDuplicate
	}
	ev.ID = r.id()
	r.evaluations[ev.ID] = *ev
	return nil
}

func (r evaluationsRepo) Update(_ context.Context, ev *model.Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken(ev) {
		return repository.ErrDuplicate
	}
	r.evaluations[ev.ID] = *ev
	return nil
}

func (r evaluationsRepo) ListBySchool(_ context.Context, schoolID uint64, f repository.EvaluationFilter) ([]model.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Evaluation{}
	for _, ev := range r.evaluations {
		if ev.SchoolID != schoolID ||
			(f.EnrollmentID != 0 && ev.EnrollmentID != f.EnrollmentID) ||
			(f.PrincipalID != 0 && ev.PrincipalID != f.PrincipalID) ||
			(f.SchoolYearID != 0 && ev.SchoolYearID != f.SchoolYearID) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (r evaluationsRepo) Delete(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.evaluations, id)
	return nil
}
