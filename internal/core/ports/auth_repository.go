package ports

import (
	"context"
	"time"

	"github.com/agrovagas/platform/internal/core/domain"
)

// AccountRepository persists the identity store's accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	MarkConfirmed(ctx context.Context, id string) error
}

// RoleStore is the durable role assignment store. FindByIdentity returns at
// most limit rows so callers can detect duplicates without reading them all.
type RoleStore interface {
	FindByIdentity(ctx context.Context, identityID string, limit int) ([]domain.RoleAssignment, error)
	Assign(ctx context.Context, identityID string, role domain.Role) error
}

// ProfileStore provisions the empty profile row a new user of a role needs.
type ProfileStore interface {
	CreateEmpty(ctx context.Context, identityID string, role domain.Role) error
}

// TokenRevoker remembers invalidated access tokens until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
