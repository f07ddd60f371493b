package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eneogroup/elimu-app-backend/internal/auth"
	"github.com/eneogroup/elimu-app-backend/internal/model"
	"github.com/eneogroup/elimu-app-backend/internal/repository"
)

// EnrollmentReader is the read side of enrollment persistence.
type EnrollmentReader interface {
	GetByID(ctx context.Context, id uint64) (model.Enrollment, error)
	ListBySchool(ctx context.Context, schoolID uint64, f repository.EnrollmentFilter) ([]model.Enrollment, error)
	Delete(ctx context.Context, id uint64) error
}

// EnrollmentWriter validates and persists enrollment writes.
type EnrollmentWriter interface {
	Enroll(ctx context.Context, e *model.Enrollment) error
	UpdateStatus(ctx context.Context, id uint64, p model.EnrollmentStatusPatch) (model.Enrollment, error)
}

// EnrollmentHandler serves /v1/enrollments.
type EnrollmentHandler struct {
	Enrollments EnrollmentReader
	Writer      EnrollmentWriter
	Gate        *auth.Gate
}

type enrollmentReq struct {
	PrincipalID  uint64 `json:"principal_id" validate:"required"`
	SchoolYearID uint64 `json:"school_year_id" validate:"required"`
	ClassroomID  uint64 `json:"classroom_id" validate:"required"`
	model.EnrollmentStatusPatch
}

// List returns the caller's school enrollments, optionally filtered by
// school_year_id, classroom_id and principal_id.
func (h *EnrollmentHandler) List(c echo.Context) error {
	var (
		f   repository.EnrollmentFilter
		err error
	)
	if f.SchoolYearID, err = queryID(c, "school_year_id"); err != nil {
		return err
	}
	if f.ClassroomID, err = queryID(c, "classroom_id"); err != nil {
		return err
	}
	if f.PrincipalID, err = queryID(c, "principal_id"); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	schoolID, err := h.Gate.Scope(ctx)
	if err != nil {
		return err
	}
	rows, err := h.Enrollments.ListBySchool(ctx, schoolID, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *EnrollmentHandler) Create(c echo.Context) error {
	var req enrollmentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	e := model.Enrollment{
		PrincipalID:      req.PrincipalID,
		SchoolYearID:     req.SchoolYearID,
		ClassroomID:      req.ClassroomID,
		EnrollmentStatus: req.Apply(model.EnrollmentStatus{IsActive: true}),
	}
	if err := h.Writer.Enroll(ctx, &e); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *EnrollmentHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	e, err := h.load(ctx, c, auth.ActionRead)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// UpdateStatus changes the lifecycle flags present in the body and keeps
// the others. The principal, school year and classroom never change.
func (h *EnrollmentHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req model.EnrollmentStatusPatch
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	e, err := h.Writer.UpdateStatus(ctx, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *EnrollmentHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	e, err := h.load(ctx, c, auth.ActionDelete)
	if err != nil {
		return err
	}
	if err := h.Enrollments.Delete(ctx, e.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *EnrollmentHandler) load(ctx context.Context, c echo.Context, action auth.Action) (model.Enrollment, error) {
	id, err := pathID(c)
	if err != nil {
		return model.Enrollment{}, err
	}
	e, err := h.Enrollments.GetByID(ctx, id)
	if err != nil {
		return model.Enrollment{}, err
	}
	return e, h.Gate.Authorize(ctx, e, action)
}
