package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrovagas/platform/internal/core/domain"
	"github.com/agrovagas/platform/internal/core/ports"
	"github.com/agrovagas/platform/internal/pkg/metrics"
)

// duplicateProbe is how many rows the fallback lookup asks for: one more than
// the single assignment an identity may hold.
const duplicateProbe = 2

// RoleResolver turns an identity into a role using the embedded attribute
// first and the role assignment store second. It never retries.
type RoleResolver struct {
	roles ports.RoleStore
	log   zerolog.Logger
}

func NewRoleResolver(roles ports.RoleStore, log zerolog.Logger) *RoleResolver {
	return &RoleResolver{roles: roles, log: log}
}

// Resolve returns the tagged resolution for identity.
func (r *RoleResolver) Resolve(ctx context.Context, identity *domain.Identity) domain.RoleResolution {
	res := domain.EmbeddedRole(identity)
	if res.Outcome == domain.OutcomeFallbackNeeded {
		res = r.lookup(ctx, identity.ID)
	}
	metrics.RoleResolutionsTotal.WithLabelValues(res.Outcome.String()).Inc()
	return res
}

func (r *RoleResolver) lookup(ctx context.Context, identityID string) domain.RoleResolution {
	start := time.Now()
	rows, err := r.roles.FindByIdentity(ctx, identityID, duplicateProbe)
	metrics.RoleLookupDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		r.log.Error().Err(err).Str("identity_id", identityID).Msg("role lookup failed")
		return domain.Failed(err)
	case len(rows) == 0:
		return domain.NotFound()
	case len(rows) > 1:
		r.log.Error().Str("identity_id", identityID).Int("rows", len(rows)).Msg("duplicate role assignments")
		return domain.Failed(domain.ErrDuplicateRoleAssignment)
	}

	role := rows[0].Role
	if !role.Valid() {
		r.log.Error().Str("identity_id", identityID).Str("role", string(role)).Msg("stored role is not a known role")
		return domain.Failed(fmt.Errorf("%w: %q", domain.ErrInvalidRole, role))
	}
	return domain.Resolved(role)
}

// ResolveUser resolves identity into an Application User. A missing role is
// ErrNoRoleAssigned; a failed lookup is ErrRoleResolution wrapping its cause.
func (r *RoleResolver) ResolveUser(ctx context.Context, identity *domain.Identity) (*domain.User, error) {
	res := r.Resolve(ctx, identity)
	switch res.Outcome {
	case domain.OutcomeFastPath, domain.OutcomeResolved:
		return domain.NewUser(identity, res.Role), nil
	case domain.OutcomeNotFound:
		return nil, domain.ErrNoRoleAssigned
	default:
		return nil, fmt.Errorf("%w: %w", domain.ErrRoleResolution, res.Err)
	}
}
