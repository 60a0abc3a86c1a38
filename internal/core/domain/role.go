package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of application roles. Every Application User holds
// exactly one.
type Role string

const (
	RoleProfessional Role = "professional"
	RoleEmployer     Role = "employer"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleProfessional, RoleEmployer}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleProfessional || r == RoleEmployer
}

func (r Role) String() string { return string(r) }

// ParseRole normalises s and returns the matching Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// RoleAssignment is the durable identity-to-role mapping kept by the role store.
type RoleAssignment struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"user_id"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}
