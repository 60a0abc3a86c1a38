package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agrovagas/platform/internal/api/middleware"
	"github.com/agrovagas/platform/internal/core/domain"
)

// currentUser returns the user resolved by the Authenticate middleware and
// fails fast with 401 for anonymous requests.
func currentUser(c echo.Context) (*domain.User, error) {
	user := middleware.UserFrom(c)
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return user, nil
}
