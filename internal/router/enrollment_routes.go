package router

import (
	"github.com/labstack/echo/v4"

	"github.com/eneogroup/elimu-app-backend/internal/middleware"
	"github.com/eneogroup/elimu-app-backend/internal/model"
)

// registerEnrollment registers enrollments and evaluations. Teachers read
// enrollments to grade them but cannot change them.
func registerEnrollment(v1 *echo.Group, h Handlers) {
	manage := middleware.RequireCapability(model.CapManageEnrollments)
	read := middleware.RequireCapability(model.CapManageEnrollments, model.CapManageEvaluations)
	v1.GET("/enrollments", h.Enrollments.List, read)
	v1.GET("/enrollments/:id", h.Enrollments.Get, read)
	v1.POST("/enrollments", h.Enrollments.Create, manage)
	v1.PATCH("/enrollments/:id", h.Enrollments.UpdateStatus, manage)
	v1.DELETE("/enrollments/:id", h.Enrollments.Delete, manage)

	grade := middleware.RequireCapability(model.CapManageEvaluations)
	v1.GET("/evaluations", h.Evaluations.List, grade)
	v1.GET("/evaluations/:id", h.Evaluations.Get, grade)
	v1.POST("/evaluations", h.Evaluations.Create, grade)
	v1.PUT("/evaluations/:id", h.Evaluations.Update, grade)
	v1.DELETE("/evaluations/:id", h.Evaluations.Delete, grade)
}
