package handlers

import (
	"net/http"
	"strings"

	"schoolprops/internal/common"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// JobRunner is the part of the background scheduler exposed over HTTP.
type JobRunner interface {
	JobNames() []string
	RunNow(name string) error
}

type JobHandlers struct {
	jobs JobRunner
}

func NewJobHandlers(jobs JobRunner) *JobHandlers {
	return &JobHandlers{jobs: jobs}
}

func (h *JobHandlers) ListJobs(c echo.Context) error {
	names := h.jobs.JobNames()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"total_jobs": len(names),
		"jobs":       names,
	})
}

// RunJob triggers a registered job outside its schedule. The run is asynchronous.
func (h *JobHandlers) RunJob(c echo.Context) error {
	name := strings.TrimSpace(c.Param("name"))
	known := false
	for _, n := range h.jobs.JobNames() {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		return c.JSON(http.StatusNotFound, common.CreateErrorResponse("NOT_FOUND", "job not found", nil))
	}
	if err := h.jobs.RunNow(name); err != nil {
		return common.SendDomainError(c, err)
	}
	log.Info().Str("job", name).Msg("Job triggered manually")
	return c.JSON(http.StatusAccepted, map[string]string{"job": name, "status": "triggered"})
}
