package router

import (
	"github.com/labstack/echo/v4"

	"github.com/eneogroup/elimu-app-backend/internal/middleware"
	"github.com/eneogroup/elimu-app-backend/internal/model"
)

// registerSchool registers school years and classrooms. Any principal of
// the school may read them; writes need the matching capability.
func registerSchool(v1 *echo.Group, h Handlers) {
	years := middleware.RequireCapability(model.CapManageSchoolYears)
	v1.GET("/school-years", h.SchoolYears.List)
	v1.GET("/school-years/current", h.SchoolYears.Current)
	v1.GET("/school-years/:id", h.SchoolYears.Get)
	v1.POST("/school-years", h.SchoolYears.Create, years)
	v1.PUT("/school-years/:id", h.SchoolYears.Update, years)
	v1.POST("/school-years/:id/current", h.SchoolYears.MakeCurrent, years)
	v1.DELETE("/school-years/:id", h.SchoolYears.Delete, years)

	rooms := middleware.RequireCapability(model.CapManageClassrooms)
	v1.GET("/classrooms", h.Classrooms.List)
	v1.GET("/classrooms/:id", h.Classrooms.Get)
	v1.POST("/classrooms", h.Classrooms.Create, rooms)
	v1.PUT("/classrooms/:id", h.Classrooms.Update, rooms)
	v1.DELETE("/classrooms/:id", h.Classrooms.Delete, rooms)
}
