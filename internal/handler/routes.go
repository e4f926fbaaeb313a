package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/therapy-center-api/internal/middleware"
	"github.com/noah-isme/therapy-center-api/internal/models"
)

// Routes bundles the handlers mounted under the API prefix.
type Routes struct {
	Schedules *ScheduleHandler
	Therapy   *TherapyHandler
	Metrics   *MetricsHandler
}

// Register mounts every endpoint on group. auth runs before the role checks
// and must attach claims under middleware.ContextUserKey.
func (r Routes) Register(group *gin.RouterGroup, auth gin.HandlerFunc) {
	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)
	anyone := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff, models.RoleTeacher, models.RoleParent)

	secured := group.Group("", auth)

	if r.Schedules != nil {
		schedules := secured.Group("/schedules")
		schedules.GET("", anyone, r.Schedules.List)
		schedules.GET("/:id", anyone, r.Schedules.Get)
		schedules.POST("", staff, r.Schedules.Create)
		schedules.PUT("/:id", staff, r.Schedules.Update)
		schedules.DELETE("/:id", admin, r.Schedules.Delete)
	}

	if r.Therapy != nil {
		secured.GET("/teachers/:id/availability", middleware.RBAC(string(models.RoleAdmin), string(models.RoleStaff), "SELF"), r.Therapy.Availability)

		therapy := secured.Group("/therapy")
		therapy.GET("", anyone, r.Therapy.List)
		therapy.GET("/upcoming", anyone, r.Therapy.Upcoming)
		therapy.GET("/export", staff, r.Therapy.Export)
		therapy.GET("/:id", anyone, r.Therapy.Get)
		therapy.POST("", staff, r.Therapy.Create)
		therapy.PUT("/:id", staff, r.Therapy.Update)
		therapy.DELETE("/:id", staff, r.Therapy.Cancel)
	}

	if r.Metrics != nil {
		secured.GET("/metrics/summary", admin, r.Metrics.Summary)
	}
}
