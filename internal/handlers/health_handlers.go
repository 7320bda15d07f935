package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// HealthHandlers handles health check endpoints
type HealthHandlers struct {
	version string
	started time.Time
	// critical dependencies fail readiness; the rest only degrade health.
	critical map[string]Check
	optional map[string]Check
}

func NewHealthHandlers(version string) *HealthHandlers {
	return &HealthHandlers{
		version:  version,
		started:  time.Now(),
		critical: map[string]Check{},
		optional: map[string]Check{},
	}
}

// Register adds a named dependency check.
func (h *HealthHandlers) Register(name string, critical bool, check Check) *HealthHandlers {
	if critical {
		h.critical[name] = check
	} else {
		h.optional[name] = check
	}
	return h
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
}

func runChecks(ctx context.Context, checks map[string]Check, into map[string]string) bool {
	ok := true
	for name, check := range checks {
		if err := check(ctx); err != nil {
			into[name] = "unhealthy"
			ok = false
			continue
		}
		into[name] = "healthy"
	}
	return ok
}

// HealthCheck reports every dependency. A failing one marks the service degraded.
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}
	criticalOK := runChecks(ctx, h.critical, health.Services)
	optionalOK := runChecks(ctx, h.optional, health.Services)
	if !criticalOK || !optionalOK {
		health.Status = "degraded"
	}

	statusCode := http.StatusOK
	if !criticalOK {
		statusCode = http.StatusServiceUnavailable
	}
	return c.JSON(statusCode, health)
}

// ReadinessCheck determines if the application is ready to serve traffic
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if !runChecks(ctx, h.critical, map[string]string{}) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": "Critical services unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ready",
		"message": "All systems operational",
	})
}

// LivenessCheck determines if the application is running (basic liveness probe)
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
