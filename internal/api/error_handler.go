package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/agrovagas/platform/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string      `json:"error"`
	Kind  domain.Kind `json:"kind,omitempty"`
}

// Each error kind keeps its own status and message.
var kindResponses = map[domain.Kind]struct {
	status  int
	message string
}{
	domain.KindInvalidCredentials:     {http.StatusUnauthorized, "invalid email or password"},
	domain.KindUnconfirmedIdentity:    {http.StatusForbidden, "confirm your email address before signing in"},
	domain.KindEmailAlreadyRegistered: {http.StatusConflict, "this email is already registered"},
	domain.KindNoRoleAssigned:         {http.StatusForbidden, "this account has no profile type assigned; contact support"},
	domain.KindRoleResolution:         {http.StatusServiceUnavailable, "could not determine the account's profile type; try again later"},
	domain.KindPartialSignup:          {http.StatusInternalServerError, "signup was not completed"},
	domain.KindUnauthenticated:        {http.StatusUnauthorized, "invalid or expired token"},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain error kinds to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "kind": "<kind>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	kind := domain.KindOf(err)
	if kind == domain.KindInvalidRequest {
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: kind}
	}
	if r, ok := kindResponses[kind]; ok {
		if r.status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("kind", string(kind)).Str("path", c.Path()).Msg("request failed")
		}
		return r.status, errorResponse{Error: r.message, Kind: kind}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Kind: domain.KindInternal}
}
