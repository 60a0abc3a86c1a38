package domain

// ResolutionOutcome tags a RoleResolution.
type ResolutionOutcome int

const (
	// OutcomeFallbackNeeded: the identity carries no usable embedded role.
	OutcomeFallbackNeeded ResolutionOutcome = iota
	// OutcomeFastPath: role taken from the identity's embedded attribute.
	OutcomeFastPath
	// OutcomeResolved: role read from the role assignment store.
	OutcomeResolved
	// OutcomeNotFound: the store holds no assignment for the identity.
	OutcomeNotFound
	// OutcomeFailed: the store lookup failed or returned inconsistent data.
	OutcomeFailed
)

func (o ResolutionOutcome) String() string {
	switch o {
	case OutcomeFastPath:
		return "fast_path"
	case OutcomeResolved:
		return "resolved"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeFailed:
		return "failed"
	default:
		return "fallback_needed"
	}
}

// RoleResolution is the result of turning one identity into one role.
// Role is set only for FastPath and Resolved; Err only for Failed.
type RoleResolution struct {
	Outcome ResolutionOutcome
	Role    Role
	Err     error
}

func FastPath(r Role) RoleResolution  { return RoleResolution{Outcome: OutcomeFastPath, Role: r} }
func FallbackNeeded() RoleResolution  { return RoleResolution{Outcome: OutcomeFallbackNeeded} }
func Resolved(r Role) RoleResolution  { return RoleResolution{Outcome: OutcomeResolved, Role: r} }
func NotFound() RoleResolution        { return RoleResolution{Outcome: OutcomeNotFound} }
func Failed(err error) RoleResolution { return RoleResolution{Outcome: OutcomeFailed, Err: err} }

// HasRole reports whether the resolution produced a role.
func (r RoleResolution) HasRole() bool {
	return r.Outcome == OutcomeFastPath || r.Outcome == OutcomeResolved
}

// EmbeddedRole is the first tier of resolution: it never touches a store.
func EmbeddedRole(identity *Identity) RoleResolution {
	if role, ok := identity.Attributes.RoleHint(); ok {
		return FastPath(role)
	}
	return FallbackNeeded()
}
