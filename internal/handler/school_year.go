package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eneogroup/elimu-app-backend/internal/auth"
	"github.com/eneogroup/elimu-app-backend/internal/model"
)

// SchoolYearStore is the persistence used by SchoolYearHandler.
type SchoolYearStore interface {
	Create(ctx context.Context, y *model.SchoolYear) error
	GetByID(ctx context.Context, id uint64) (model.SchoolYear, error)
	ListBySchool(ctx context.Context, schoolID uint64) ([]model.SchoolYear, error)
	Current(ctx context.Context, schoolID uint64) (model.SchoolYear, error)
	Update(ctx context.Context, y *model.SchoolYear) error
	SetCurrent(ctx context.Context, schoolID, id uint64) error
	Delete(ctx context.Context, id uint64) error
}

// SchoolYearHandler serves /v1/school-years.
type SchoolYearHandler struct {
	Years SchoolYearStore
	Gate  *auth.Gate
}

type schoolYearReq struct {
	Label     string `json:"label" validate:"notblank,max=20"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	IsCurrent bool   `json:"is_current"`
}

func (r schoolYearReq) apply(y *model.SchoolYear) error {
	start, end := parseDate(r.StartDate), parseDate(r.EndDate)
	if !end.After(start) {
		return echo.NewHTTPError(http.StatusBadRequest, "end_date must be after start_date")
	}
	y.Label, y.StartDate, y.EndDate, y.IsCurrent = r.Label, start, end, r.IsCurrent
	return nil
}

func (h *SchoolYearHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	schoolID, err := h.Gate.Scope(ctx)
	if err != nil {
		return err
	}
	years, err := h.Years.ListBySchool(ctx, schoolID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, years)
}

func (h *SchoolYearHandler) Create(c echo.Context) error {
	var req schoolYearReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	schoolID, err := h.Gate.Scope(ctx)
	if err != nil {
		return err
	}
	y := model.SchoolYear{SchoolID: schoolID}
	if err := req.apply(&y); err != nil {
		return err
	}
	if err := h.Years.Create(ctx, &y); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, y)
}

// Current returns the current school year of the caller's school.
func (h *SchoolYearHandler) Current(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	schoolID, err := h.Gate.Scope(ctx)
	if err != nil {
		return err
	}
	y, err := h.Years.Current(ctx, schoolID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, y)
}

func (h *SchoolYearHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	y, err := h.load(ctx, c, auth.ActionRead)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, y)
}

func (h *SchoolYearHandler) Update(c echo.Context) error {
	var req schoolYearReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	y, err := h.load(ctx, c, auth.ActionUpdate)
	if err != nil {
		return err
	}
	if err := req.apply(&y); err != nil {
		return err
	}
	if err := h.Years.Update(ctx, &y); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, y)
}

// MakeCurrent marks the school year as the only current one of its school.
func (h *SchoolYearHandler) MakeCurrent(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	y, err := h.load(ctx, c, auth.ActionUpdate)
	if err != nil {
		return err
	}
	if err := h.Years.SetCurrent(ctx, y.SchoolID, y.ID); err != nil {
		return err
	}
	y.IsCurrent = true
	return c.JSON(http.StatusOK, y)
}

func (h *SchoolYearHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	y, err := h.load(ctx, c, auth.ActionDelete)
	if err != nil {
		return err
	}
	if err := h.Years.Delete(ctx, y.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// load fetches the school year named by :id and checks it belongs to the
// caller's school.
func (h *SchoolYearHandler) load(ctx context.Context, c echo.Context, action auth.Action) (model.SchoolYear, error) {
	id, err := pathID(c)
	if err != nil {
		return model.SchoolYear{}, err
	}
	y, err := h.Years.GetByID(ctx, id)
	if err != nil {
		return model.SchoolYear{}, err
	}
	return y, h.Gate.Authorize(ctx, y, action)
}
