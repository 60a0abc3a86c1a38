package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrovagas/platform/internal/core/domain"
)

// ProfileRepository provisions rows in professional_profiles and
// employer_profiles.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) CreateEmpty(ctx context.Context, identityID string, role domain.Role) error {
	var query string
	switch role {
	case domain.RoleProfessional:
		query = `INSERT INTO professional_profiles (user_id) VALUES ($1)`
	case domain.RoleEmployer:
		query = `INSERT INTO employer_profiles (user_id) VALUES ($1)`
	default:
		return fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	if _, err := r.pool.Exec(ctx, query, identityID); err != nil {
		return fmt.Errorf("insert %s profile: %w", role, err)
	}
	return nil
}
