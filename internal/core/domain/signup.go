package domain

// SignupStep names one write in the non-transactional signup sequence.
type SignupStep string

const (
	StepIdentity       SignupStep = "identity"
	StepRoleAssignment SignupStep = "role_assignment"
	StepProfile        SignupStep = "profile"
)

// SignupSteps is the fixed execution order.
var SignupSteps = []SignupStep{StepIdentity, StepRoleAssignment, StepProfile}

type StepStatus string

const (
	StepDone    StepStatus = "done"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// StepResult records the outcome of one signup step.
type StepResult struct {
	Step   SignupStep `json:"step"`
	Status StepStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
}

// SignUpResult is what the identity store hands back for a new identity.
// Session is nil when the store requires confirmation before sign-in.
type SignUpResult struct {
	Identity          *Identity
	Session           *Session
	ConfirmationToken string
}

// SignupReport aggregates every step of a signup attempt.
type SignupReport struct {
	Identity          *Identity    `json:"identity,omitempty"`
	Session           *Session     `json:"session,omitempty"`
	Role              Role         `json:"role"`
	Steps             []StepResult `json:"steps"`
	ConfirmationToken string       `json:"-"`
}

// Live reports whether the identity store opened a session on signup.
func (r *SignupReport) Live() bool {
	return r != nil && r.Session != nil
}

// FailedStep returns the step that failed, if any.
func (r *SignupReport) FailedStep() (SignupStep, bool) {
	if r == nil {
		return "", false
	}
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			return s.Step, true
		}
	}
	return "", false
}

func (r *SignupReport) record(step SignupStep, status StepStatus, err error) {
	res := StepResult{Step: step, Status: status}
	if err != nil {
		res.Error = err.Error()
	}
	r.Steps = append(r.Steps, res)
}

// Done marks step as completed.
func (r *SignupReport) Done(step SignupStep) { r.record(step, StepDone, nil) }

// Fail marks step as failed and every later step as skipped.
func (r *SignupReport) Fail(step SignupStep, err error) {
	r.record(step, StepFailed, err)
	after := false
	for _, s := range SignupSteps {
		if after {
			r.record(s, StepSkipped, nil)
		}
		if s == step {
			after = true
		}
	}
}
