package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agrovagas/platform/internal/core/domain"
	"github.com/agrovagas/platform/internal/core/ports"
)

type fakeAccount struct {
	identity *domain.Identity
	password string
}

// fakeStore is an in-process identity store that reports transitions
// synchronously from inside SignIn, SignUp and SignOut.
type fakeStore struct {
	mu             sync.Mutex
	accounts       map[string]*fakeAccount
	current        *domain.Session
	listeners      map[int]ports.SessionListener
	nextListener   int
	next           int
	requireConfirm bool
	signOutCalls   int
	signInGates    map[string]chan struct{}
	signInEntered  chan string
	// onCurrent runs once, after CurrentSession has read the session and
	// before it returns.
	onCurrent func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:      make(map[string]*fakeAccount),
		listeners:     make(map[int]ports.SessionListener),
		signInGates:   make(map[string]chan struct{}),
		signInEntered: make(chan string, 16),
	}
}

// holdSignIn makes SignIn for email block until the returned func is called.
func (s *fakeStore) holdSignIn(email string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.signInGates[email] = ch
	s.mu.Unlock()
	return func() { close(ch) }
}

// stripAttributes drops the identity attributes of email's account.
func (s *fakeStore) stripAttributes(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.accounts[email]
	stripped := *acct.identity
	stripped.Attributes = nil
	acct.identity = &stripped
}

func (s *fakeStore) session() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *fakeStore) add(email, password string, attrs domain.Attributes) *domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := &domain.Identity{ID: fmt.Sprintf("id-%d", s.next), Email: email, Attributes: attrs, Confirmed: true}
	s.accounts[email] = &fakeAccount{identity: id, password: password}
	return id
}

func (s *fakeStore) openLocked(identity *domain.Identity) *domain.Session {
	s.next++
	s.current = &domain.Session{
		AccessToken: fmt.Sprintf("tok-%d", s.next),
		ExpiresAt:   time.Now().Add(time.Hour),
		Identity:    identity,
	}
	return s.current
}

// setSession installs a session as if restored from a previous run.
func (s *fakeStore) setSession(identity *domain.Identity) {
	s.mu.Lock()
	s.openLocked(identity)
	s.mu.Unlock()
}

func (s *fakeStore) SignIn(_ context.Context, email, password string) (*domain.Session, error) {
	s.mu.Lock()
	gate := s.signInGates[email]
	s.mu.Unlock()
	if gate != nil {
		s.signInEntered <- email
		<-gate
	}

	s.mu.Lock()
	acct, ok := s.accounts[email]
	if !ok || acct.password != password {
		s.mu.Unlock()
		return nil, domain.ErrInvalidCredentials
	}
	sess := s.openLocked(acct.identity)
	s.mu.Unlock()

	s.emit(domain.EventSignedIn, sess)
	return sess, nil
}

func (s *fakeStore) SignUp(_ context.Context, email, password string, attrs domain.Attributes) (*domain.SignUpResult, error) {
	s.mu.Lock()
	if _, ok := s.accounts[email]; ok {
		s.mu.Unlock()
		return nil, domain.ErrEmailAlreadyRegistered
	}
	s.next++
	id := &domain.Identity{ID: fmt.Sprintf("id-%d", s.next), Email: email, Attributes: attrs.Clone(), Confirmed: !s.requireConfirm}
	s.accounts[email] = &fakeAccount{identity: id, password: password}
	if s.requireConfirm {
		s.mu.Unlock()
		return &domain.SignUpResult{Identity: id, ConfirmationToken: "confirm"}, nil
	}
	sess := s.openLocked(id)
	s.mu.Unlock()

	s.emit(domain.EventSignedIn, sess)
	return &domain.SignUpResult{Identity: id, Session: sess}, nil
}

func (s *fakeStore) SignOut(_ context.Context) error {
	s.mu.Lock()
	s.signOutCalls++
	had := s.current != nil
	s.current = nil
	s.mu.Unlock()

	if had {
		s.emit(domain.EventSignedOut, nil)
	}
	return nil
}

func (s *fakeStore) CurrentSession(_ context.Context) (*domain.Session, error) {
	s.mu.Lock()
	cur := s.current
	hook := s.onCurrent
	s.onCurrent = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return cur, nil
}

// signInElsewhere opens a session for email as another process sharing the
// store would, and reports it.
func (s *fakeStore) signInElsewhere(email string) {
	s.mu.Lock()
	sess := s.openLocked(s.accounts[email].identity)
	s.mu.Unlock()
	s.emit(domain.EventSignedIn, sess)
}

func (s *fakeStore) OnSessionChanged(fn ports.SessionListener) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// expire drops the session from the store's side, as a server-side
// revocation would.
func (s *fakeStore) expire() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.emit(domain.EventSignedOut, nil)
}

// refresh reissues the token for the current identity.
func (s *fakeStore) refresh() {
	s.mu.Lock()
	sess := s.openLocked(s.current.Identity)
	s.mu.Unlock()
	s.emit(domain.EventTokenRefreshed, sess)
}

func (s *fakeStore) signOuts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signOutCalls
}

func (s *fakeStore) emit(event domain.SessionEvent, sess *domain.Session) {
	s.mu.Lock()
	fns := make([]ports.SessionListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(event, sess)
	}
}

// roleStore serves role rows and can hold a lookup open until released.
type roleStore struct {
	mu      sync.Mutex
	rows    map[string][]domain.RoleAssignment
	gates   map[string]chan struct{}
	entered chan string
	calls   int
	failErr error
}

func newRoleStore() *roleStore {
	return &roleStore{
		rows:    make(map[string][]domain.RoleAssignment),
		gates:   make(map[string]chan struct{}),
		entered: make(chan string, 16),
	}
}

// hold makes lookups for identityID block until the returned func is called.
func (r *roleStore) hold(identityID string) (release func()) {
	ch := make(chan struct{})
	r.mu.Lock()
	r.gates[identityID] = ch
	r.mu.Unlock()
	return func() { close(ch) }
}

func (r *roleStore) FindByIdentity(ctx context.Context, identityID string, limit int) ([]domain.RoleAssignment, error) {
	r.mu.Lock()
	r.calls++
	gate := r.gates[identityID]
	rows := append([]domain.RoleAssignment(nil), r.rows[identityID]...)
	failErr := r.failErr
	r.mu.Unlock()

	if gate != nil {
		r.entered <- identityID
		<-gate
	}
	if failErr != nil {
		return nil, failErr
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *roleStore) Assign(_ context.Context, identityID string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[identityID] = append(r.rows[identityID], domain.RoleAssignment{IdentityID: identityID, Role: role})
	return nil
}

func (r *roleStore) lookups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type profileStore struct {
	err error
}

func (p *profileStore) CreateEmpty(context.Context, string, domain.Role) error { return p.err }

// manualScheduler queues hops until the test runs them.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []func()
}

func (m *manualScheduler) schedule(task func()) {
	m.mu.Lock()
	m.tasks = append(m.tasks, task)
	m.mu.Unlock()
}

func (m *manualScheduler) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *manualScheduler) runAll() {
	for {
		m.mu.Lock()
		if len(m.tasks) == 0 {
			m.mu.Unlock()
			return
		}
		task := m.tasks[0]
		m.tasks = m.tasks[1:]
		m.mu.Unlock()
		task()
	}
}
