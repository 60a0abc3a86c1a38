package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/agrovagas/platform/internal/api/middleware"
	"github.com/agrovagas/platform/internal/core/domain"
	"github.com/agrovagas/platform/internal/core/ports"
)

// Signup response statuses.
const (
	signupSignedIn            = "signed_in"
	signupPendingConfirmation = "pending_confirmation"
	signupPartial             = "partial"
)

type AuthHandler struct {
	authService ports.AuthService
	// exposeConfirmation returns confirmation tokens in the signup response.
	// Only for development, where no mailer delivers them.
	exposeConfirmation bool
}

func NewAuthHandler(authService ports.AuthService, exposeConfirmation bool) *AuthHandler {
	return &AuthHandler{authService: authService, exposeConfirmation: exposeConfirmation}
}

type signupRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role"     validate:"required,role"`
}

type signinRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type confirmRequest struct {
	Token string `json:"token" validate:"required"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

type signupResponse struct {
	Status            string              `json:"status"`
	IdentityID        string              `json:"identity_id"`
	Email             string              `json:"email"`
	Role              domain.Role         `json:"role"`
	Token             string              `json:"token,omitempty"`
	ExpiresAt         *time.Time          `json:"expires_at,omitempty"`
	ConfirmationToken string              `json:"confirmation_token,omitempty"`
	Steps             []domain.StepResult `json:"steps"`
	Error             string              `json:"error,omitempty"`
	Kind              domain.Kind         `json:"kind,omitempty"`
}

type meResponse struct {
	User *domain.User `json:"user"`
}

// SignUp registers a professional or employer.
//
// @Summary      Sign up
// @Description  Creates the identity, the role assignment and an empty profile, in that order.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Signup details"
// @Success      201   {object}  signupResponse  "signed in"
// @Success      202   {object}  signupResponse  "pending confirmation"
// @Success      207   {object}  signupResponse  "identity created, a later step failed"
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignup, err)
	}

	report, err := h.authService.SignUp(c.Request().Context(), req.Email, req.Password, domain.Role(req.Role))
	var partial *domain.PartialSignupError
	switch {
	case errors.As(err, &partial) && report != nil:
		resp := h.signupResponse(report, signupPartial)
		resp.Error = partial.Error()
		resp.Kind = domain.KindPartialSignup
		return c.JSON(http.StatusMultiStatus, resp)
	case err != nil:
		return err
	case report.Live():
		return c.JSON(http.StatusCreated, h.signupResponse(report, signupSignedIn))
	default:
		return c.JSON(http.StatusAccepted, h.signupResponse(report, signupPendingConfirmation))
	}
}

// SignIn authenticates and resolves the caller's role.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signinRequest  true  "Credentials"
// @Success      200   {object}  sessionResponse
// @Failure      401   {object}  map[string]string  "invalid credentials"
// @Failure      403   {object}  map[string]string  "unconfirmed identity or no role assigned"
// @Failure      503   {object}  map[string]string  "role could not be resolved"
// @Router       /auth/signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signinRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return domain.ErrInvalidCredentials
	}

	sess, user, err := h.authService.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse{Token: sess.AccessToken, ExpiresAt: sess.ExpiresAt, User: user})
}

// SignOut revokes the presented token. It succeeds without a token too.
//
// @Summary      Sign out
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Router       /auth/signout [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	if err := h.authService.SignOut(c.Request().Context(), middleware.TokenFrom(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Confirm confirms a pending signup.
//
// @Summary      Confirm signup
// @Tags         auth
// @Accept       json
// @Param        body  body  confirmRequest  true  "Confirmation token"
// @Success      204
// @Failure      401   {object}  map[string]string
// @Router       /auth/confirm [post]
func (h *AuthHandler) Confirm(c echo.Context) error {
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignup, err)
	}

	if err := h.authService.Confirm(c.Request().Context(), req.Token); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the signed-in user.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  map[string]string
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, meResponse{User: user})
}

func (h *AuthHandler) signupResponse(report *domain.SignupReport, status string) signupResponse {
	resp := signupResponse{
		Status: status,
		Role:   report.Role,
		Steps:  report.Steps,
	}
	if report.Identity != nil {
		resp.IdentityID = report.Identity.ID
		resp.Email = report.Identity.Email
	}
	if report.Session != nil {
		resp.Token = report.Session.AccessToken
		exp := report.Session.ExpiresAt
		resp.ExpiresAt = &exp
	}
	if h.exposeConfirmation {
		resp.ConfirmationToken = report.ConfirmationToken
	}
	return resp
}
