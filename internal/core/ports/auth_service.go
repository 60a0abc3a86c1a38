package ports

import (
	"context"

	"github.com/agrovagas/platform/internal/core/domain"
)

// IdentityRegistrar creates identities. Both the stateless provider and the
// session-holding client satisfy it.
type IdentityRegistrar interface {
	SignUp(ctx context.Context, email, password string, attrs domain.Attributes) (*domain.SignUpResult, error)
}

// IdentityProvider is the stateless identity backend.
type IdentityProvider interface {
	IdentityRegistrar
	Authenticate(ctx context.Context, email, password string) (*domain.Session, error)
	Verify(ctx context.Context, accessToken string) (*domain.Identity, error)
	Revoke(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, accessToken string) (*domain.Session, error)
	Confirm(ctx context.Context, confirmationToken string) (*domain.Identity, error)
}

// SessionListener receives identity store transitions. session is nil on
// sign-out.
type SessionListener func(event domain.SessionEvent, session *domain.Session)

// IdentityStore is the identity store as seen by one process: it owns the
// current session and reports its transitions.
type IdentityStore interface {
	IdentityRegistrar
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context) error
	CurrentSession(ctx context.Context) (*domain.Session, error)
	OnSessionChanged(fn SessionListener) (unsubscribe func())
}

// AuthService is the request-scoped authentication API used by transports.
type AuthService interface {
	SignUp(ctx context.Context, email, password string, role domain.Role) (*domain.SignupReport, error)
	SignIn(ctx context.Context, email, password string) (*domain.Session, *domain.User, error)
	SignOut(ctx context.Context, accessToken string) error
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
	Confirm(ctx context.Context, confirmationToken string) error
}
