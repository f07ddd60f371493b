package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eneogroup/elimu-app-backend/internal/auth"
	"github.com/eneogroup/elimu-app-backend/internal/model"
)

// ClassroomStore is the persistence used by ClassroomHandler.
type ClassroomStore interface {
	Create(ctx context.Context, c *model.Classroom) error
	GetByID(ctx context.Context, id uint64) (model.Classroom, error)
	ListBySchool(ctx context.Context, schoolID uint64) ([]model.Classroom, error)
	Update(ctx context.Context, c *model.Classroom) error
	Delete(ctx context.Context, id uint64) error
}

// ClassroomHandler serves /v1/classrooms.
type ClassroomHandler struct {
	Classrooms ClassroomStore
	Gate       *auth.Gate
}

type classroomReq struct {
	Name                string `json:"name" validate:"notblank,max=100"`
	Level               string `json:"level" validate:"notblank,max=50"`
	AttendanceFrequency string `json:"attendance_frequency" validate:"max=32"`
}

func (h *ClassroomHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	schoolID, err := h.Gate.Scope(ctx)
	if err != nil {
		return err
	}
	rooms, err := h.Classrooms.ListBySchool(ctx, schoolID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rooms)
}

func (h *ClassroomHandler) Create(c echo.Context) error {
	var req classroomReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	schoolID, err := h.Gate.Scope(ctx)
	if err != nil {
		return err
	}
	room := model.Classroom{
		SchoolID:            schoolID,
		Name:                req.Name,
		Level:               req.Level,
		AttendanceFrequency: req.AttendanceFrequency,
	}
	if err := h.Classrooms.Create(ctx, &room); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, room)
}

func (h *ClassroomHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	room, err := h.load(ctx, c, auth.ActionRead)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, room)
}

func (h *ClassroomHandler) Update(c echo.Context) error {
	var req classroomReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	room, err := h.load(ctx, c, auth.ActionUpdate)
	if err != nil {
		return err
	}
	room.Name, room.Level, room.AttendanceFrequency = req.Name, req.Level, req.AttendanceFrequency
	if err := h.Classrooms.Update(ctx, &room); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, room)
}

func (h *ClassroomHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	room, err := h.load(ctx, c, auth.ActionDelete)
	if err != nil {
		return err
	}
	if err := h.Classrooms.Delete(ctx, room.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ClassroomHandler) load(ctx context.Context, c echo.Context, action auth.Action) (model.Classroom, error) {
	id, err := pathID(c)
	if err != nil {
		return model.Classroom{}, err
	}
	room, err := h.Classrooms.GetByID(ctx, id)
	if err != nil {
		return model.Classroom{}, err
	}
	return room, h.Gate.Authorize(ctx, room, action)
}
