package handlers

import (
	"net/http"
	"time"

	"schoolprops/internal/common"
	"schoolprops/internal/middleware"
	"schoolprops/internal/services"

	"github.com/labstack/echo/v4"
)

const defaultSnapshotWindow = 30 * 24 * time.Hour

type SnapshotHandlers struct {
	snapshots services.SnapshotService
}

func NewSnapshotHandlers(snapshots services.SnapshotService) *SnapshotHandlers {
	return &SnapshotHandlers{snapshots: snapshots}
}

// GetSnapshot exports requests created between from and to (default: the last 30 days).
func (h *SnapshotHandlers) GetSnapshot(c echo.Context) error {
	actor, err := middleware.MustPrincipal(c)
	if err != nil {
		return err
	}

	to := time.Now().UTC()
	if raw := c.QueryParam("to"); raw != "" {
		if to, err = common.ParseDate(raw, "to"); err != nil {
			return common.SendDomainError(c, err)
		}
	}
	from := to.Add(-defaultSnapshotWindow)
	if raw := c.QueryParam("from"); raw != "" {
		if from, err = common.ParseRangeStart(raw, "from"); err != nil {
			return common.SendDomainError(c, err)
		}
	}

	snap, err := h.snapshots.Snapshot(c.Request().Context(), actor, from, to)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}
