package middleware

import (
	"github.com/labstack/echo/v4"
)

// APIVersion is the only version served.
const APIVersion = "v1"

// VersionRoute creates the versioned route group and stamps every response with
// the version header.
func VersionRoute(e *echo.Echo, build string) *echo.Group {
	group := e.Group("/" + APIVersion)
	group.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-API-Version", APIVersion)
			if build != "" {
				c.Response().Header().Set("X-Build", build)
			}
			return next(c)
		}
	})
	return group
}
