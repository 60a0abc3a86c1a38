package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agrovagas/platform/internal/core/domain"
	"github.com/agrovagas/platform/internal/core/ports"
	"github.com/agrovagas/platform/internal/pkg/metrics"
)

// AuthService implements request-scoped sign-up, sign-in and token
// authentication on top of a stateless identity provider.
type AuthService struct {
	provider ports.IdentityProvider
	resolver *RoleResolver
	signup   *SignupFlow
	log      zerolog.Logger
}

func NewAuthService(provider ports.IdentityProvider, resolver *RoleResolver, signup *SignupFlow, log zerolog.Logger) *AuthService {
	return &AuthService{provider: provider, resolver: resolver, signup: signup, log: log}
}

func (s *AuthService) SignUp(ctx context.Context, email, password string, role domain.Role) (*domain.SignupReport, error) {
	return s.signup.Run(ctx, s.provider, email, password, role)
}

// SignIn verifies credentials and resolves the caller's role. Credential
// errors and role errors stay distinct kinds.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.Session, *domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		metrics.SignInsTotal.WithLabelValues(string(domain.KindInvalidCredentials)).Inc()
		return nil, nil, domain.ErrInvalidCredentials
	}

	sess, err := s.provider.Authenticate(ctx, email, password)
	if err != nil {
		metrics.SignInsTotal.WithLabelValues(string(domain.KindOf(err))).Inc()
		return nil, nil, err
	}

	user, err := s.resolver.ResolveUser(ctx, sess.Identity)
	if err != nil {
		metrics.SignInsTotal.WithLabelValues(string(domain.KindOf(err))).Inc()
		s.log.Warn().Err(err).Str("identity_id", sess.Identity.ID).Msg("signed in without a usable role")
		// The identity store session is useless to the application without a role.
		if revokeErr := s.provider.Revoke(ctx, sess.AccessToken); revokeErr != nil {
			s.log.Warn().Err(revokeErr).Str("identity_id", sess.Identity.ID).Msg("failed to revoke role-less session")
		}
		return nil, nil, err
	}

	metrics.SignInsTotal.WithLabelValues("ok").Inc()
	return sess, user, nil
}

// SignOut revokes accessToken. Revoking an already invalid token is not an
// error, so repeated sign-outs are harmless.
func (s *AuthService) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	if err := s.provider.Revoke(ctx, accessToken); err != nil && !errors.Is(err, domain.ErrInvalidToken) {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Authenticate maps a bearer token to its Application User.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	identity, err := s.provider.Verify(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return s.resolver.ResolveUser(ctx, identity)
}

func (s *AuthService) Confirm(ctx context.Context, confirmationToken string) error {
	identity, err := s.provider.Confirm(ctx, confirmationToken)
	if err != nil {
		return err
	}
	s.log.Info().Str("identity_id", identity.ID).Msg("identity confirmed")
	return nil
}
