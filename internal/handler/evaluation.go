package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eneogroup/elimu-app-backend/internal/auth"
	"github.com/eneogroup/elimu-app-backend/internal/model"
	"github.com/eneogroup/elimu-app-backend/internal/repository"
)

// EvaluationReader is the read side of evaluation persistence.
type EvaluationReader interface {
	GetByID(ctx context.Context, id uint64) (model.Evaluation, error)
	ListBySchool(ctx context.Context, schoolID uint64, f repository.EvaluationFilter) ([]model.Evaluation, error)
	Delete(ctx context.Context, id uint64) error
}

// EvaluationWriter validates and persists evaluation writes.
type EvaluationWriter interface {
	RecordEvaluation(ctx context.Context, ev *model.Evaluation) error
	UpdateEvaluation(ctx context.Context, id uint64, change func(*model.Evaluation)) (model.Evaluation, error)
}

// EvaluationHandler serves /v1/evaluations.
type EvaluationHandler struct {
	Evaluations EvaluationReader
	Writer      EvaluationWriter
	Gate        *auth.Gate
}

// evaluationReq is the body of create and update. A zero principal_id or
// school_year_id is taken from the enrollment.
type evaluationReq struct {
	EnrollmentID uint64   `json:"enrollment_id" validate:"required"`
	PrincipalID  uint64   `json:"principal_id"`
	SchoolYearID uint64   `json:"school_year_id"`
	SubjectID    uint64   `json:"subject_id" validate:"required"`
	EvaluatedOn  string   `json:"evaluated_on" validate:"required,datetime=2006-01-02"`
	Score        *float64 `json:"score" validate:"omitempty,gte=0,lte=999.99"`
	Remarks      string   `json:"remarks" validate:"max=1000"`
}

func (r evaluationReq) apply(ev *model.Evaluation) {
	ev.EnrollmentID = r.EnrollmentID
	ev.PrincipalID = r.PrincipalID
	ev.SchoolYearID = r.SchoolYearID
	ev.SubjectID = r.SubjectID
	ev.EvaluatedOn = parseDate(r.EvaluatedOn)
	ev.Score = r.Score
	ev.Remarks = r.Remarks
}

// List returns the caller's school evaluations, optionally filtered by
// enrollment_id, principal_id and school_year_id.
func (h *EvaluationHandler) List(c echo.Context) error {
	var (
		f   repository.EvaluationFilter
		err error
	)
	if f.EnrollmentID, err = queryID(c, "enrollment_id"); err != nil {
		return err
	}
	if f.PrincipalID, err = queryID(c, "principal_id"); err != nil {
		return err
	}
	if f.SchoolYearID, err = queryID(c, "school_year_id"); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	schoolID, err := h.Gate.Scope(ctx)
	if err != nil {
		return err
	}
	rows, err := h.Evaluations.ListBySchool(ctx, schoolID, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *EvaluationHandler) Create(c echo.Context) error {
	var req evaluationReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var ev model.Evaluation
	req.apply(&ev)
	if err := h.Writer.RecordEvaluation(ctx, &ev); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ev)
}

func (h *EvaluationHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	ev, err := h.load(ctx, c, auth.ActionRead)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ev)
}

func (h *EvaluationHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req evaluationReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ev, err := h.Writer.UpdateEvaluation(ctx, id, func(ev *model.Evaluation) {
		principal, year := ev.PrincipalID, ev.SchoolYearID
		req.apply(ev)
		if ev.PrincipalID == 0 {
			ev.PrincipalID = principal
		}
		if ev.SchoolYearID == 0 {
			ev.SchoolYearID = year
		}
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ev)
}

func (h *EvaluationHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	ev, err := h.load(ctx, c, auth.ActionDelete)
	if err != nil {
		return err
	}
	if err := h.Evaluations.Delete(ctx, ev.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *EvaluationHandler) load(ctx context.Context, c echo.Context, action auth.Action) (model.Evaluation, error) {
	id, err := pathID(c)
	if err != nil {
		return model.Evaluation{}, err
	}
	ev, err := h.Evaluations.GetByID(ctx, id)
	if err != nil {
		return model.Evaluation{}, err
	}
	return ev, h.Gate.Authorize(ctx, ev, action)
}
