package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/agrovagas/platform/internal/core/domain"
	"github.com/agrovagas/platform/internal/core/ports"
)

const (
	userKey  = "user"
	tokenKey = "access_token"
)

// Authenticate resolves the bearer token into an Application User and stores
// it on the context. A missing or invalid token, an identity without a usable
// role, or a store failure while checking the token leaves the request
// anonymous; the gate decides what that means.
func Authenticate(auth ports.AuthService, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}
			c.Set(tokenKey, token)

			user, err := auth.Authenticate(c.Request().Context(), token)
			switch kind := domain.KindOf(err); kind {
			case "":
				c.Set(userKey, user)
			case domain.KindUnauthenticated, domain.KindNoRoleAssigned:
			case domain.KindRoleResolution:
				log.Warn().Err(err).Str("path", c.Path()).Msg("role resolution failed, treating request as anonymous")
			default:
				log.Warn().Err(err).Str("path", c.Path()).Msg("token check failed, treating request as anonymous")
			}
			return next(c)
		}
	}
}

// UserFrom returns the user set by Authenticate, or nil for anonymous requests.
func UserFrom(c echo.Context) *domain.User {
	u, _ := c.Get(userKey).(*domain.User)
	return u
}

// TokenFrom returns the bearer token presented with the request.
func TokenFrom(c echo.Context) string {
	t, _ := c.Get(tokenKey).(string)
	return t
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
