package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shift-roster-api/internal/middleware"
	"github.com/noah-isme/shift-roster-api/internal/models"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Staff    *StaffHandler
	Schedule *ScheduleHandler
	Session  *SessionHandler
	Report   *ReportHandler
	Auth     *AuthHandler
	Metrics  *MetricsHandler
}

// RegisterRoutes mounts probes and metrics at the root and the API under prefix. Reads
// need any valid token, writes need EDITOR, roster administration needs ADMIN.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, tokens middleware.TokenValidator) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.GET("/reports/download", h.Report.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	readers := secured.Group("")
	readers.Use(middleware.RequireRoles(models.RoleEditor, models.RoleViewer))
	{
		readers.GET("/auth/me", h.Auth.Me)
		readers.GET("/staff", h.Staff.List)
		readers.GET("/staff/:id", h.Staff.Get)
		readers.GET("/staff/:id/schedules", h.Schedule.StaffEntries)
		readers.GET("/schedules/week", h.Schedule.Week)
		readers.GET("/schedules/history", h.Schedule.History)
		readers.GET("/schedules/coverage", h.Schedule.Coverage)
		readers.GET("/changes", h.Schedule.Changes)
		readers.GET("/reports/week", h.Report.Week)
		readers.GET("/metrics/summary", h.Metrics.Summary)
	}

	editors := secured.Group("")
	editors.Use(middleware.RequireRoles(models.RoleEditor))
	{
		editors.PUT("/schedules/entries", h.Schedule.Upsert)
		editors.PATCH("/schedules/entries/quick", h.Schedule.QuickEdit)
		editors.POST("/schedules/batch", h.Schedule.Batch)
		editors.POST("/schedules/mirror", h.Schedule.Mirror)
		editors.POST("/sessions", h.Session.Start)
		editors.GET("/sessions/:id", h.Session.Get)
		editors.POST("/sessions/:id/events", h.Session.Event)
		editors.DELETE("/sessions/:id", h.Session.Cancel)
		editors.POST("/reports/archive", h.Report.Archive)
	}

	admins := secured.Group("")
	admins.Use(middleware.RequireRoles())
	{
		admins.POST("/staff", h.Staff.Create)
		admins.PATCH("/staff/:id/status", h.Staff.UpdateStatus)
		admins.DELETE("/staff/:id", h.Staff.Delete)
		admins.POST("/auth/tokens", h.Auth.IssueToken)
	}
}
