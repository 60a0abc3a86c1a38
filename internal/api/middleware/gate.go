package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agrovagas/platform/internal/core/domain"
	"github.com/agrovagas/platform/internal/pkg/metrics"
)

// GateConfig names where denied requests are sent.
type GateConfig struct {
	// EntryPath receives unauthenticated requests.
	EntryPath string
	// NeutralPath receives authenticated requests lacking the required role.
	NeutralPath string
}

// Gate admits a request to area only when the user set by Authenticate holds
// one of the area's roles. Denied requests are redirected with 303.
func Gate(area domain.Area, cfg GateConfig) echo.MiddlewareFunc {
	if cfg.EntryPath == "" {
		cfg.EntryPath = domain.EntryPath
	}
	if cfg.NeutralPath == "" {
		cfg.NeutralPath = domain.NeutralPath
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			decision := domain.Evaluate(false, UserFrom(c), area)
			metrics.GateDecisionsTotal.WithLabelValues(area.Name, string(decision.State())).Inc()

			switch decision {
			case domain.DecisionAllow:
				return next(c)
			case domain.DecisionRedirectNeutral:
				return c.Redirect(http.StatusSeeOther, cfg.NeutralPath)
			default:
				return c.Redirect(http.StatusSeeOther, cfg.EntryPath)
			}
		}
	}
}
