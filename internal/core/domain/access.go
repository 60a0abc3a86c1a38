package domain

// Decision is the Authorization Gate's verdict for one navigation.
type Decision int

const (
	// DecisionPending: resolution still in flight; render a placeholder,
	// never redirect.
	DecisionPending Decision = iota
	DecisionAllow
	DecisionRedirectEntry
	DecisionRedirectNeutral
)

// GateState names the gate state a decision corresponds to.
type GateState string

const (
	StateUnknown               GateState = "unknown"
	StateDeniedUnauthenticated GateState = "denied_unauthenticated"
	StateDeniedWrongRole       GateState = "denied_wrong_role"
	StateAllowed               GateState = "allowed"
)

func (d Decision) State() GateState {
	switch d {
	case DecisionAllow:
		return StateAllowed
	case DecisionRedirectEntry:
		return StateDeniedUnauthenticated
	case DecisionRedirectNeutral:
		return StateDeniedWrongRole
	default:
		return StateUnknown
	}
}

func (d Decision) String() string { return string(d.State()) }

// Decide classifies an already-resolved user against the roles an area
// requires. An empty required set admits any authenticated user.
func Decide(user *User, required []Role) Decision {
	if user == nil {
		return DecisionRedirectEntry
	}
	if len(required) > 0 && !user.HasRole(required...) {
		return DecisionRedirectNeutral
	}
	return DecisionAllow
}

// Evaluate is Decide plus the in-flight state: while resolving, the gate
// stays pending.
func Evaluate(resolving bool, user *User, area Area) Decision {
	if resolving {
		return DecisionPending
	}
	if area.Public {
		return DecisionAllow
	}
	return Decide(user, area.AllowedRoles)
}

// Area is a navigable part of the application.
type Area struct {
	Name         string `json:"name"`
	Path         string `json:"path"`
	Public       bool   `json:"public,omitempty"`
	AllowedRoles []Role `json:"allowed_roles,omitempty"`
}

const (
	EntryPath   = "/login"
	NeutralPath = "/dashboard"
)

// Areas is the application's navigation map.
var Areas = []Area{
	{Name: "landing", Path: "/", Public: true},
	{Name: "login", Path: EntryPath, Public: true},
	{Name: "signup", Path: "/signup", Public: true},

	{Name: "dashboard", Path: NeutralPath},
	{Name: "profile", Path: "/profile"},
	{Name: "messages", Path: "/messages"},
	{Name: "conversation", Path: "/messages/:recipientId"},
	{Name: "job-detail", Path: "/jobs/:id"},

	{Name: "jobs", Path: "/jobs", AllowedRoles: []Role{RoleProfessional}},
	{Name: "applications", Path: "/applications", AllowedRoles: []Role{RoleProfessional}},

	{Name: "post-job", Path: "/post-job", AllowedRoles: []Role{RoleEmployer}},
	{Name: "my-jobs", Path: "/my-jobs", AllowedRoles: []Role{RoleEmployer}},
	{Name: "applicants", Path: "/applicants/:jobId", AllowedRoles: []Role{RoleEmployer}},
}

// FindArea looks an area up by name.
func FindArea(name string) (Area, bool) {
	for _, a := range Areas {
		if a.Name == name {
			return a, true
		}
	}
	return Area{}, false
}
