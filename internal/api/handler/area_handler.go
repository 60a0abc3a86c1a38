package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agrovagas/platform/internal/api/middleware"
	"github.com/agrovagas/platform/internal/core/domain"
)

// AreaHandler answers for the application's navigable areas once the gate has
// let a request through. Page content is served elsewhere.
type AreaHandler struct{}

func NewAreaHandler() *AreaHandler {
	return &AreaHandler{}
}

type areaResponse struct {
	Area   string            `json:"area"`
	Params map[string]string `json:"params,omitempty"`
	User   *domain.User      `json:"user,omitempty"`
}

// Show returns a handler describing area for the current user.
func (h *AreaHandler) Show(area domain.Area) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := areaResponse{Area: area.Name, User: middleware.UserFrom(c)}
		if names := c.ParamNames(); len(names) > 0 {
			resp.Params = make(map[string]string, len(names))
			for _, n := range names {
				resp.Params[n] = c.Param(n)
			}
		}
		return c.JSON(http.StatusOK, resp)
	}
}
