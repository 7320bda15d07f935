package handlers

import (
	"schoolprops/internal/middleware"
	"schoolprops/internal/models"

	"github.com/labstack/echo/v4"
)

// Set bundles every handler group served under /v1.
type Set struct {
	Items         *ItemHandlers
	Requests      *RequestHandlers
	Notifications *NotificationHandlers
	Budget        *BudgetHandlers
	Uploads       *UploadHandlers
	Snapshots     *SnapshotHandlers
	Jobs          *JobHandlers
}

// RegisterRoutes mounts the API on v1. auth must verify the caller and place a
// principal on the request context.
func RegisterRoutes(v1 *echo.Group, h Set, auth ...echo.MiddlewareFunc) {
	protected := v1.Group("", auth...)
	admin := middleware.RequireRole(models.RoleAdmin)
	teacher := middleware.RequireRole(models.RoleTeacher)

	protected.GET("/items", h.Items.ListItems)
	protected.GET("/items/low-stock", h.Items.LowStock, admin)
	protected.GET("/items/:id", h.Items.GetItem)
	protected.GET("/items/:id/reservations", h.Items.Reservations, admin)
	protected.POST("/items", h.Items.CreateItem, admin)
	protected.PUT("/items/:id", h.Items.UpdateItem, admin)
	protected.DELETE("/items/:id", h.Items.DeleteItem, admin)

	protected.POST("/requests", h.Requests.Submit, teacher)
	protected.GET("/requests", h.Requests.List)
	protected.GET("/requests/:id", h.Requests.Get)
	protected.GET("/requests/:id/history", h.Requests.History)
	protected.POST("/requests/:id/approve", h.Requests.Approve, admin)
	protected.POST("/requests/:id/assign", h.Requests.Assign, admin)
	protected.POST("/requests/:id/approve-assign", h.Requests.ApproveAndAssign, admin)
	protected.POST("/requests/:id/reject", h.Requests.Reject, admin)
	protected.POST("/requests/:id/respond", h.Requests.Respond, admin)
	protected.POST("/requests/:id/return", h.Requests.Return, teacher)
	protected.POST("/requests/:id/inspect", h.Requests.Inspect, admin)
	protected.POST("/requests/:id/adjust", h.Requests.Adjust, admin)
	protected.POST("/requests/:id/report-status", h.Requests.UpdateReport, admin)
	protected.DELETE("/requests/:id", h.Requests.Delete, admin)

	protected.GET("/notifications", h.Notifications.GetFeed)
	protected.POST("/notifications/read", h.Notifications.MarkRead)

	protected.GET("/budget", h.Budget.Get, admin)
	protected.PUT("/budget", h.Budget.SetTotal, admin)
	protected.POST("/budget/recalculate", h.Budget.Recalculate, admin)
	protected.POST("/budget/reset", h.Budget.Reset, admin)
	protected.GET("/budget/purchases", h.Budget.ListPurchases, admin)
	protected.POST("/budget/purchases", h.Budget.RecordPurchase, admin)

	if h.Uploads != nil {
		protected.POST("/uploads", h.Uploads.UploadPhoto)
		protected.GET("/uploads/photos/:name", h.Uploads.PhotoURL)
	}

	protected.GET("/snapshot", h.Snapshots.GetSnapshot, admin)

	if h.Jobs != nil {
		protected.GET("/jobs", h.Jobs.ListJobs, admin)
		protected.POST("/jobs/:name/run", h.Jobs.RunJob, admin)
	}
}

// RegisterHealth mounts the unauthenticated probes.
func RegisterHealth(e *echo.Echo, h *HealthHandlers) {
	e.GET("/health", h.HealthCheck)
	e.GET("/health/ready", h.ReadinessCheck)
	e.GET("/health/live", h.LivenessCheck)
}
