package middleware

import (
	"fmt"
	"net/http"
	"time"

	"schoolprops/internal/common"
	"schoolprops/internal/models"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const tokenContextKey = "user"

// Claims are issued by the external auth provider. Subject carries the user id.
type Claims struct {
	Name string      `json:"name"`
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// LoadJWKS fetches the provider's key set and keeps it refreshed in the background.
func LoadJWKS(url string) (*keyfunc.JWKS, error) {
	jwks, err := keyfunc.Get(url, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Warn().Err(err).Str("jwks_url", url).Msg("JWKS refresh failed")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", url, err)
	}
	return jwks, nil
}

// JWTMiddleware verifies the bearer token with the JWKS when given, otherwise with
// the shared HMAC secret.
func JWTMiddleware(secret string, jwks *keyfunc.JWKS) echo.MiddlewareFunc {
	cfg := echojwt.Config{
		ContextKey: tokenContextKey,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			log.Debug().Err(err).Str("path", c.Path()).Msg("Rejected bearer token")
			return common.SendUnauthorizedError(c)
		},
	}
	if jwks != nil {
		cfg.KeyFunc = jwks.Keyfunc
	} else {
		cfg.SigningKey = []byte(secret)
		cfg.SigningMethod = jwt.SigningMethodHS256.Alg()
	}
	return echojwt.WithConfig(cfg)
}

// PrincipalMiddleware turns verified claims into a models.Principal on the request context.
// It must run after JWTMiddleware.
func PrincipalMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get(tokenContextKey).(*jwt.Token)
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			claims, ok := token.Claims.(*Claims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid claims")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid user_id format")
			}
			if !claims.Role.Valid() {
				return echo.NewHTTPError(http.StatusForbidden, "Unknown role")
			}

			p := models.Principal{ID: userID, Name: claims.Name, Role: claims.Role}
			c.SetRequest(c.Request().WithContext(common.WithPrincipal(c.Request().Context(), p)))
			return next(c)
		}
	}
}

// MustPrincipal returns the caller set by PrincipalMiddleware.
func MustPrincipal(c echo.Context) (models.Principal, error) {
	p, ok := common.GetPrincipalFromContext(c.Request().Context())
	if !ok {
		return models.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return p, nil
}
