package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrovagas/platform/internal/core/domain"
)

// RoleRepository is the user_roles table.
type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// FindByIdentity returns up to limit assignments ordered by primary key.
func (r *RoleRepository) FindByIdentity(ctx context.Context, identityID string, limit int) ([]domain.RoleAssignment, error) {
	const query = `
        SELECT id, user_id, role, created_at
        FROM user_roles WHERE user_id=$1
        ORDER BY id
        LIMIT $2`

	if limit <= 0 {
		limit = 1
	}
	rows, err := r.pool.Query(ctx, query, identityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query user_roles: %w", err)
	}
	defer rows.Close()

	var out []domain.RoleAssignment
	for rows.Next() {
		var (
			id        int64
			userID    string
			role      string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &userID, &role, &createdAt); err != nil {
			return nil, fmt.Errorf("scan user_roles: %w", err)
		}
		out = append(out, domain.RoleAssignment{
			ID:         strconv.FormatInt(id, 10),
			IdentityID: userID,
			Role:       domain.Role(role),
			CreatedAt:  createdAt.UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user_roles: %w", err)
	}
	return out, nil
}

func (r *RoleRepository) Assign(ctx context.Context, identityID string, role domain.Role) error {
	const query = `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`

	if _, err := r.pool.Exec(ctx, query, identityID, string(role)); err != nil {
		return fmt.Errorf("insert user_roles: %w", err)
	}
	return nil
}
