package middleware

import (
	"net/http"

	"schoolprops/internal/common"
	"schoolprops/internal/models"

	"github.com/labstack/echo/v4"
)

// RequireRole lets the request through only when the caller holds one of roles.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := common.GetPrincipalFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}
			for _, r := range roles {
				if p.Role == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, common.CreateErrorResponse("FORBIDDEN", "Insufficient permissions", nil))
		}
	}
}
