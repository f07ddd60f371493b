package repository

import (
	"context"
	"os"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/eneogroup/elimu-app-backend/internal/database"
	"github.com/eneogroup/elimu-app-backend/internal/model"
)

// setupTestDB starts a MySQL container, applies the migrations and
// returns a connection. Tests are skipped if Docker is not available.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping MySQL integration tests")
	}
	if testing.Short() {
		t.Skip("short mode, skipping MySQL integration tests")
	}

	ctx := context.Background()
	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("elimu_test"),
		tcmysql.WithUsername("test"),
		tcmysql.WithPassword("test"),
	)
	if err != nil {
		t.Skipf("skipping: could not start MySQL container (is docker running?): %v", err)
	}
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	dsn, err := container.ConnectionString(ctx, "parseTime=true", "loc=UTC", "multiStatements=true", "clientFoundRows=true")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}
	db, err := database.OpenDSN(ctx, dsn)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := database.Migrate(db.DB, "elimu_test"); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return db
}

type seed struct {
	schoolA, schoolB model.School
	manager, pupil   model.Principal
	yearA, yearB     model.SchoolYear
	roomA, roomB     model.Classroom
}

func seedSchools(c *qt.C, db *sqlx.DB) seed {
	ctx := context.Background()
	var s seed

	schools := NewSchoolRepo(db)
	s.schoolA = model.School{Code: "lyc-01", Name: "Lycée Savorgnan", City: "Brazzaville"}
	s.schoolB = model.School{Code: "CEG-02", Name: "CEG Poto-Poto", City: "Brazzaville"}
	c.Assert(schools.Create(ctx, &s.schoolA), qt.IsNil)
	c.Assert(schools.Create(ctx, &s.schoolB), qt.IsNil)

	principals := NewPrincipalRepo(db)
	s.manager = model.Principal{SchoolID: s.schoolA.ID, Username: "manager", PasswordHash: "x", Role: model.RoleSchoolManager, IsActive: true}
	s.pupil = model.Principal{SchoolID: s.schoolB.ID, Username: "pupil", PasswordHash: "x", Role: model.RoleStudent, IsActive: true}
	c.Assert(principals.Create(ctx, &s.manager), qt.IsNil)
	c.Assert(principals.Create(ctx, &s.pupil), qt.IsNil)

	years := NewSchoolYearRepo(db)
	start := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	s.yearA = model.SchoolYear{SchoolID: s.schoolA.ID, Label: "2024-2025", StartDate: start, EndDate: start.AddDate(0, 10, 0), IsCurrent: true}
	s.yearB = model.SchoolYear{SchoolID: s.schoolB.ID, Label: "2024-2025", StartDate: start, EndDate: start.AddDate(0, 10, 0)}
	c.Assert(years.Create(ctx, &s.yearA), qt.IsNil)
	c.Assert(years.Create(ctx, &s.yearB), qt.IsNil)

	rooms := NewClassroomRepo(db)
	s.roomA = model.Classroom{SchoolID: s.schoolA.ID, Name: "6e A", Level: "6e"}
	s.roomB = model.Classroom{SchoolID: s.schoolB.ID, Name: "CM2", Level: "CM2"}
	c.Assert(rooms.Create(ctx, &s.roomA), qt.IsNil)
	c.Assert(rooms.Create(ctx, &s.roomB), qt.IsNil)
	return s
}

func TestRepositories(t *testing.T) {
	db := setupTestDB(t)
	c := qt.New(t)
	s := seedSchools(c, db)

	c.Run("schools", func(c *qt.C) {
		ctx := context.Background()
		schools := NewSchoolRepo(db)

		got, err := schools.GetByCode(ctx, " LYC-01 ")
		c.Assert(err, qt.IsNil)
		c.Assert(got.ID, qt.Equals, s.schoolA.ID)

		_, err = schools.GetByCode(ctx, "NOPE")
		c.Assert(err, qt.ErrorIs, ErrNotFound)

		dup := model.School{Code: "LYC-01", Name: "again"}
		c.Assert(schools.Create(ctx, &dup), qt.ErrorIs, ErrDuplicate)
	})

	c.Run("principals", func(c *qt.C) {
		ctx := context.Background()
		principals := NewPrincipalRepo(db)

		got, err := principals.GetByUsername(ctx, s.schoolA.ID, "manager")
		c.Assert(err, qt.IsNil)
		c.Assert(got.ID, qt.Equals, s.manager.ID)
		c.Assert(got.Role, qt.Equals, model.RoleSchoolManager)

		// Usernames are unique per school only.
		other := model.Principal{SchoolID: s.schoolB.ID, Username: "manager", PasswordHash: "x", Role: model.RoleAdmin, IsActive: true}
		c.Assert(principals.Create(ctx, &other), qt.IsNil)
		dup := model.Principal{SchoolID: s.schoolA.ID, Username: "manager", PasswordHash: "x", Role: model.RoleTeacher}
		c.Assert(principals.Create(ctx, &dup), qt.ErrorIs, ErrDuplicate)

		c.Assert(principals.SetActive(ctx, other.ID, false), qt.IsNil)
		c.Assert(principals.SetActive(ctx, other.ID, false), qt.IsNil)
		c.Assert(principals.SetActive(ctx, 999999, false), qt.ErrorIs, ErrNotFound)
		c.Assert(principals.UpdatePassword(ctx, other.ID, "y"), qt.IsNil)
	})

	c.Run("enrolled principal lookup", func(c *qt.C) {
		ctx := context.Background()
		principals := NewPrincipalRepo(db)

		_, err := principals.GetEnrolledByUsername(ctx, s.schoolA.ID, "pupil")
		c.Assert(err, qt.ErrorIs, ErrNotFound)

		e := model.Enrollment{SchoolID: s.schoolA.ID, PrincipalID: s.pupil.ID, SchoolYearID: s.yearA.ID, ClassroomID: s.roomA.ID}
		e.IsActive = true
		c.Assert(NewEnrollmentRepo(db).Create(ctx, &e), qt.IsNil)

		got, err := principals.GetEnrolledByUsername(ctx, s.schoolA.ID, "pupil")
		c.Assert(err, qt.IsNil)
		c.Assert(got.ID, qt.Equals, s.pupil.ID)
		c.Assert(got.SchoolID, qt.Equals, s.schoolB.ID)
	})

	c.Run("identifiers match exactly", func(c *qt.C) {
		ctx := context.Background()
		principals := NewPrincipalRepo(db)
		schools := NewSchoolRepo(db)

		for _, name := range []string{"mánager", "MANAGER", "ｍａｎａｇｅｒ", "manager "} {
			_, err := principals.GetByUsername(ctx, s.schoolA.ID, name)
			c.Assert(err, qt.ErrorIs, ErrNotFound, qt.Commentf("username %q", name))
		}
		for _, name := range []string{"púpil", "ｐｕｐｉｌ"} {
			_, err := principals.GetEnrolledByUsername(ctx, s.schoolA.ID, name)
			c.Assert(err, qt.ErrorIs, ErrNotFound, qt.Commentf("username %q", name))
		}
		for _, code := range []string{"LYÇ-01", "ＬＹＣ-01"} {
			_, err := schools.GetByCode(ctx, code)
			c.Assert(err, qt.ErrorIs, ErrNotFound, qt.Commentf("code %q", code))
		}

		// Accent variants are distinct accounts, not duplicates.
		variant := model.Principal{SchoolID: s.schoolA.ID, Username: "mánager", PasswordHash: "x", Role: model.RoleTeacher, IsActive: true}
		c.Assert(principals.Create(ctx, &variant), qt.IsNil)
		got, err := principals.GetByUsername(ctx, s.schoolA.ID, "manager")
		c.Assert(err, qt.IsNil)
		c.Assert(got.ID, qt.Equals, s.manager.ID)
	})

	c.Run("enrollments", func(c *qt.C) {
		ctx := context.Background()
		enrollments := NewEnrollmentRepo(db)

		e := model.Enrollment{SchoolID: s.schoolA.ID, PrincipalID: s.manager.ID, SchoolYearID: s.yearA.ID, ClassroomID: s.roomA.ID}
		c.Assert(enrollments.Create(ctx, &e), qt.IsNil)

		exists, err := enrollments.Exists(ctx, s.manager.ID, s.yearA.ID, s.roomA.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(exists, qt.IsTrue)

		dup := e
		dup.ID = 0
		c.Assert(enrollments.Create(ctx, &dup), qt.ErrorIs, ErrDuplicate)

		yes, no := true, false
		c.Assert(enrollments.UpdateStatus(ctx, e.ID, model.EnrollmentStatusPatch{IsActive: &no, IsWithdrawn: &yes}), qt.IsNil)
		c.Assert(enrollments.UpdateStatus(ctx, e.ID, model.EnrollmentStatusPatch{IsPaid: &yes}), qt.IsNil)
		got, err := enrollments.GetByID(ctx, e.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(got.EnrollmentStatus, qt.Equals, model.EnrollmentStatus{IsPaid: true, IsWithdrawn: true})

		listA, err := enrollments.ListBySchool(ctx, s.schoolA.ID, EnrollmentFilter{ClassroomID: s.roomA.ID})
		c.Assert(err, qt.IsNil)
		c.Assert(len(listA) >= 1, qt.IsTrue)
		for _, row := range listA {
			c.Assert(row.SchoolID, qt.Equals, s.schoolA.ID)
		}
		listB, err := enrollments.ListBySchool(ctx, s.schoolB.ID, EnrollmentFilter{})
		c.Assert(err, qt.IsNil)
		c.Assert(listB, qt.HasLen, 0)

		// A classroom with enrollments cannot be deleted.
		c.Assert(NewClassroomRepo(db).Delete(ctx, s.roomA.ID), qt.ErrorIs, ErrConflict)
	})

	c.Run("evaluations", func(c *qt.C) {
		ctx := context.Background()
		enrollments := NewEnrollmentRepo(db)
		evaluations := NewEvaluationRepo(db)

		list, err := enrollments.ListBySchool(ctx, s.schoolA.ID, EnrollmentFilter{PrincipalID: s.pupil.ID})
		c.Assert(err, qt.IsNil)
		c.Assert(list, qt.HasLen, 1)
		enr := list[0]

		score := 12.5
		ev := model.Evaluation{
			SchoolID: s.schoolA.ID, PrincipalID: s.pupil.ID, EnrollmentID: enr.ID, SchoolYearID: s.yearA.ID,
			SubjectID: 1, EvaluatedOn: time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC), Score: &score, Remarks: "bien",
		}
		c.Assert(evaluations.Create(ctx, &ev), qt.IsNil)

		got, err := evaluations.GetByID(ctx, ev.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(*got.Score, qt.Equals, 12.5)
		c.Assert(got.EvaluatedOn.Format("2006-01-02"), qt.Equals, "2024-11-04")

		dup := ev
		dup.ID = 0
		c.Assert(evaluations.Create(ctx, &dup), qt.ErrorIs, ErrDuplicate)

		got.Score = nil
		c.Assert(evaluations.Update(ctx, &got), qt.IsNil)
		got, err = evaluations.GetByID(ctx, ev.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(got.Score, qt.IsNil)

		listB, err := evaluations.ListBySchool(ctx, s.schoolB.ID, EvaluationFilter{})
		c.Assert(err, qt.IsNil)
		c.Assert(listB, qt.HasLen, 0)
	})

	c.Run("current school year is exclusive", func(c *qt.C) {
		ctx := context.Background()
		years := NewSchoolYearRepo(db)

		start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
		next := model.SchoolYear{SchoolID: s.schoolA.ID, Label: "2025-2026", StartDate: start, EndDate: start.AddDate(0, 10, 0), IsCurrent: true}
		c.Assert(years.Create(ctx, &next), qt.IsNil)

		cur, err := years.Current(ctx, s.schoolA.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(cur.ID, qt.Equals, next.ID)

		c.Assert(years.SetCurrent(ctx, s.schoolA.ID, s.yearA.ID), qt.IsNil)
		all, err := years.ListBySchool(ctx, s.schoolA.ID)
		c.Assert(err, qt.IsNil)
		current := 0
		for _, y := range all {
			if y.IsCurrent {
				current++
				c.Assert(y.ID, qt.Equals, s.yearA.ID)
			}
		}
		c.Assert(current, qt.Equals, 1)

		// Another school's year cannot be made current here.
		c.Assert(years.SetCurrent(ctx, s.schoolA.ID, s.yearB.ID), qt.ErrorIs, ErrNotFound)
		_, err = years.Current(ctx, s.schoolB.ID)
		c.Assert(err, qt.ErrorIs, ErrNotFound)
	})

	c.Run("refresh tokens", func(c *qt.C) {
		ctx := context.Background()
		tokens := NewTokenRepo(db)

		exp := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
		tok := model.RefreshToken{JTI: "7f1f6f7e-2f4f-4c55-9d47-6a3c9a1e0b11", PrincipalID: s.manager.ID, SchoolID: s.schoolA.ID, ExpiresAt: exp}
		c.Assert(tokens.StoreRefresh(ctx, tok), qt.IsNil)

		got, err := tokens.GetRefresh(ctx, tok.JTI)
		c.Assert(err, qt.IsNil)
		c.Assert(got.ExpiresAt.Equal(exp), qt.IsTrue)
		c.Assert(got.Outstanding(time.Now()), qt.IsTrue)

		c.Assert(tokens.RevokeRefresh(ctx, tok.JTI), qt.IsNil)
		got, err = tokens.GetRefresh(ctx, tok.JTI)
		c.Assert(err, qt.IsNil)
		c.Assert(got.RevokedAt, qt.IsNotNil)

		_, err = tokens.GetRefresh(ctx, "missing")
		c.Assert(err, qt.ErrorIs, ErrNotFound)

		n, err := tokens.RevokeAllForPrincipal(ctx, s.manager.ID)
		c.Assert(err, qt.IsNil)
		c.Assert(n, qt.Equals, int64(0))
	})
}
