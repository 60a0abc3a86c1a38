package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by sign-in, sign-up and role resolution. Callers map
// each one to its own message; they must never be collapsed.
var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUnconfirmedIdentity    = errors.New("identity not confirmed")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrNoRoleAssigned         = errors.New("no role assigned")
	ErrRoleResolution         = errors.New("role resolution failed")
	ErrPartialSignup          = errors.New("partial signup failure")
)

// Supporting errors.
var (
	ErrInvalidRole             = errors.New("invalid role")
	ErrInvalidSignup           = errors.New("invalid signup request")
	ErrDuplicateRoleAssignment = errors.New("more than one role assignment")
	ErrAccountNotFound         = errors.New("account not found")
	ErrInvalidToken            = errors.New("invalid token")
)

// PartialSignupError reports a signup that created the identity but failed a
// later step. Identity is set so the missing step can be retried on its own.
type PartialSignupError struct {
	Step     SignupStep
	Identity *Identity
	Cause    error
}

func (e *PartialSignupError) Error() string {
	return fmt.Sprintf("partial signup failure at %s step: %v", e.Step, e.Cause)
}

// Unwrap exposes both ErrPartialSignup and the underlying cause.
func (e *PartialSignupError) Unwrap() []error {
	return []error{ErrPartialSignup, e.Cause}
}

// Kind is a stable, machine-readable name for an error kind.
type Kind string

const (
	KindInvalidCredentials     Kind = "invalid_credentials"
	KindUnconfirmedIdentity    Kind = "unconfirmed_identity"
	KindEmailAlreadyRegistered Kind = "email_already_registered"
	KindNoRoleAssigned         Kind = "no_role_assigned"
	KindRoleResolution         Kind = "role_resolution_error"
	KindPartialSignup          Kind = "partial_signup_failure"
	KindInvalidRequest         Kind = "invalid_request"
	KindUnauthenticated        Kind = "unauthenticated"
	KindInternal               Kind = "internal"
)

// KindOf classifies err. Partial signup is checked first since its cause may
// itself match another kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPartialSignup):
		return KindPartialSignup
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrUnconfirmedIdentity):
		return KindUnconfirmedIdentity
	case errors.Is(err, ErrEmailAlreadyRegistered):
		return KindEmailAlreadyRegistered
	case errors.Is(err, ErrNoRoleAssigned):
		return KindNoRoleAssigned
	case errors.Is(err, ErrRoleResolution):
		return KindRoleResolution
	case errors.Is(err, ErrInvalidSignup), errors.Is(err, ErrInvalidRole):
		return KindInvalidRequest
	case errors.Is(err, ErrInvalidToken):
		return KindUnauthenticated
	default:
		return KindInternal
	}
}
