package domain

import "time"

// AttrRole is the identity attribute carrying the role chosen at signup.
const AttrRole = "role"

// Attributes are free-form key/values embedded on an identity by the
// identity store (the signup flow writes the chosen role here).
type Attributes map[string]string

// RoleHint returns the embedded role when it is present and valid.
func (a Attributes) RoleHint() (Role, bool) {
	if a == nil {
		return "", false
	}
	r := Role(a[AttrRole])
	if !r.Valid() {
		return "", false
	}
	return r, true
}

// Clone returns an independent copy of a.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Identity is an authenticated principal as issued by the identity store.
type Identity struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Attributes Attributes `json:"attributes,omitempty"`
	Confirmed  bool       `json:"confirmed"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Account is the identity store's persisted record behind an Identity.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Attributes   Attributes
	Confirmed    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity projects the account onto the public identity shape.
func (a *Account) Identity() *Identity {
	return &Identity{
		ID:         a.ID,
		Email:      a.Email,
		Attributes: a.Attributes.Clone(),
		Confirmed:  a.Confirmed,
		CreatedAt:  a.CreatedAt,
	}
}

// Session is a live authenticated session held by an identity store client.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Identity    *Identity `json:"identity"`
}

// Expired reports whether the session token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SessionEvent names a transition reported by the identity store.
type SessionEvent string

const (
	EventSignedIn       SessionEvent = "SIGNED_IN"
	EventSignedOut      SessionEvent = "SIGNED_OUT"
	EventTokenRefreshed SessionEvent = "TOKEN_REFRESHED"
	EventUserUpdated    SessionEvent = "USER_UPDATED"
)

// User is the in-process Application User: an identity plus its resolved role.
// It is derived on every session transition and never persisted.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser builds the Application User for identity with the resolved role.
func NewUser(identity *Identity, role Role) *User {
	return &User{
		ID:        identity.ID,
		Email:     identity.Email,
		Role:      role,
		CreatedAt: identity.CreatedAt,
	}
}

// HasRole reports whether u holds any of roles.
func (u *User) HasRole(roles ...Role) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
