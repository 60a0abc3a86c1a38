package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/agrovagas/platform/internal/core/domain"
	"github.com/agrovagas/platform/internal/core/ports"
	"github.com/agrovagas/platform/internal/pkg/metrics"
)

// MinPasswordLength matches the identity store's default password policy.
const MinPasswordLength = 6

// SignupFlow runs the three signup writes in order against independent
// stores. There is no transaction and no rollback: a failure after the
// identity exists is reported as a *domain.PartialSignupError naming the step.
type SignupFlow struct {
	roles    ports.RoleStore
	profiles ports.ProfileStore
	validate *validator.Validate
	log      zerolog.Logger
}

func NewSignupFlow(roles ports.RoleStore, profiles ports.ProfileStore, log zerolog.Logger) *SignupFlow {
	return &SignupFlow{
		roles:    roles,
		profiles: profiles,
		validate: validator.New(),
		log:      log,
	}
}

// Run creates the identity through registrar, then the role assignment, then
// the empty profile. The report is returned even when err is non-nil as long
// as the identity was created.
func (f *SignupFlow) Run(ctx context.Context, registrar ports.IdentityRegistrar, email, password string, role domain.Role) (*domain.SignupReport, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := f.check(email, password, role); err != nil {
		metrics.SignUpsTotal.WithLabelValues(string(role), string(domain.KindInvalidRequest)).Inc()
		return nil, err
	}

	report := &domain.SignupReport{Role: role}

	res, err := registrar.SignUp(ctx, email, password, domain.Attributes{domain.AttrRole: string(role)})
	if err != nil {
		metrics.SignUpsTotal.WithLabelValues(string(role), string(domain.KindOf(err))).Inc()
		if errors.Is(err, domain.ErrEmailAlreadyRegistered) {
			return nil, err
		}
		return nil, fmt.Errorf("signup: create identity: %w", err)
	}
	report.Identity = res.Identity
	report.Session = res.Session
	report.ConfirmationToken = res.ConfirmationToken
	report.Done(domain.StepIdentity)

	if err := f.roles.Assign(ctx, res.Identity.ID, role); err != nil {
		return report, f.partial(report, domain.StepRoleAssignment, err)
	}
	report.Done(domain.StepRoleAssignment)

	if err := f.profiles.CreateEmpty(ctx, res.Identity.ID, role); err != nil {
		return report, f.partial(report, domain.StepProfile, err)
	}
	report.Done(domain.StepProfile)

	result := "ok"
	if !report.Live() {
		result = "pending_confirmation"
	}
	metrics.SignUpsTotal.WithLabelValues(string(role), result).Inc()
	f.log.Info().
		Str("identity_id", res.Identity.ID).
		Str("role", string(role)).
		Bool("live_session", report.Live()).
		Msg("signup completed")

	return report, nil
}

func (f *SignupFlow) check(email, password string, role domain.Role) error {
	if err := f.validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("%w: email must be a valid email", domain.ErrInvalidSignup)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidSignup, MinPasswordLength)
	}
	if !role.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}
	return nil
}

func (f *SignupFlow) partial(report *domain.SignupReport, step domain.SignupStep, cause error) error {
	report.Fail(step, cause)
	metrics.SignupStepFailuresTotal.WithLabelValues(string(step)).Inc()
	metrics.SignUpsTotal.WithLabelValues(string(report.Role), string(domain.KindPartialSignup)).Inc()
	f.log.Error().
		Err(cause).
		Str("identity_id", report.Identity.ID).
		Str("step", string(step)).
		Msg("signup left incomplete")
	return &domain.PartialSignupError{Step: step, Identity: report.Identity, Cause: cause}
}
