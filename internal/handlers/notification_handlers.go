package handlers

import (
	"net/http"
	"strconv"

	"schoolprops/internal/common"
	"schoolprops/internal/middleware"
	"schoolprops/internal/models"
	"schoolprops/internal/services"

	"github.com/labstack/echo/v4"
)

// NotificationHandlers serves the polled notification feed
type NotificationHandlers struct {
	notificationSvc services.NotificationService
}

// NewNotificationHandlers creates a new notification handlers instance
func NewNotificationHandlers(notificationSvc services.NotificationService) *NotificationHandlers {
	return &NotificationHandlers{
		notificationSvc: notificationSvc,
	}
}

// prefsFromQuery reads the per-category toggles; each defaults to enabled.
func prefsFromQuery(c echo.Context) (models.NotificationPrefs, error) {
	prefs := models.DefaultNotificationPrefs()
	toggles := map[string]*bool{
		"new_user":  &prefs.NewUser,
		"inventory": &prefs.Inventory,
		"requests":  &prefs.Requests,
	}
	for name, dst := range toggles {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return prefs, common.NewValidationError(name, "must be true or false")
		}
		*dst = v
	}
	return prefs, nil
}

// GetFeed returns the caller's notifications. feed=full lifts the cap and the
// recent-assignment window.
func (h *NotificationHandlers) GetFeed(c echo.Context) error {
	actor, err := middleware.MustPrincipal(c)
	if err != nil {
		return err
	}
	kind := models.FeedCompact
	switch c.QueryParam("feed") {
	case "", string(models.FeedCompact):
	case string(models.FeedFull):
		kind = models.FeedFull
	default:
		return common.SendValidationError(c, "feed", "must be compact or full")
	}
	prefs, err := prefsFromQuery(c)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, h.notificationSvc.Feed(c.Request().Context(), actor, prefs, kind))
}

// MarkReadRequest marks the listed ids, or the whole current feed when All is set.
type MarkReadRequest struct {
	IDs []string `json:"ids"`
	All bool     `json:"all"`
}

func (h *NotificationHandlers) MarkRead(c echo.Context) error {
	actor, err := middleware.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req MarkReadRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	ctx := c.Request().Context()

	if req.All {
		prefs, err := prefsFromQuery(c)
		if err != nil {
			return common.SendDomainError(c, err)
		}
		n, err := h.notificationSvc.MarkAllRead(ctx, actor, prefs)
		if err != nil {
			return common.SendDomainError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]int{"marked": n})
	}

	if len(req.IDs) == 0 {
		return common.SendValidationError(c, "ids", "is required unless all is set")
	}
	if len(req.IDs) > 500 {
		return common.SendValidationError(c, "ids", "cannot exceed 500 entries")
	}
	if err := h.notificationSvc.MarkRead(ctx, actor, req.IDs); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"marked": len(req.IDs)})
}
