// Package session holds the process-wide Application User slot and keeps it in
// step with the identity store's session lifecycle.
//
// A Bootstrapper is the only writer of the slot. Every resolution takes a
// generation number when it starts; a result whose generation is no longer
// the latest is discarded when it arrives, so a newer sign-in, sign-out or
// session event always wins over an older one still in flight. Underlying
// store calls are never cancelled.
//
// Calls that change the identity store's session (sign-in, sign-up and
// sign-out) run one at a time, in the order they were made. The store thus
// always ends up holding the session of the latest call, the same one the
// slot reflects.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agrovagas/platform/internal/core/domain"
	"github.com/agrovagas/platform/internal/core/ports"
	"github.com/agrovagas/platform/internal/core/service"
	"github.com/agrovagas/platform/internal/pkg/metrics"
)

// ErrSuperseded is returned by a sign-in or sign-up whose result arrived after
// a newer session change; the slot reflects the newer change.
var ErrSuperseded = errors.New("superseded by a newer session change")

// State is a consistent view of the slot.
type State struct {
	User      *domain.User
	Resolving bool
	// Err is the error of the last applied resolution, if it failed.
	Err error
}

// SignupOutcome tells a successful signup that logged the user in apart from
// one that still awaits confirmation.
type SignupOutcome int

const (
	SignupFailed SignupOutcome = iota
	SignupSignedIn
	SignupPendingConfirmation
)

func (o SignupOutcome) String() string {
	switch o {
	case SignupSignedIn:
		return "signed_in"
	case SignupPendingConfirmation:
		return "pending_confirmation"
	default:
		return "failed"
	}
}

// Scheduler runs task on a later scheduling turn.
type Scheduler func(task func())

type Option func(*Bootstrapper)

func WithLogger(log zerolog.Logger) Option {
	return func(b *Bootstrapper) { b.log = log }
}

// WithScheduler replaces the default hop (a new goroutine) used before
// resolving a session reported by an identity store callback.
func WithScheduler(s Scheduler) Option {
	return func(b *Bootstrapper) { b.schedule = s }
}

// Bootstrapper owns the Application User slot.
type Bootstrapper struct {
	identities ports.IdentityStore
	resolver   *service.RoleResolver
	signup     *service.SignupFlow
	log        zerolog.Logger
	schedule   Scheduler

	mu          sync.Mutex
	user        *domain.User
	resolving   bool
	lastErr     error
	hasSession  bool
	generation  uint64
	explicit    int
	storeBusy   bool
	storeTail   chan struct{}
	closed      bool
	listeners   map[uint64]func(State)
	nextID      uint64
	started     bool
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc

	notifyMu sync.Mutex
	tasks    sync.WaitGroup
}

// New returns a Bootstrapper in the resolving state; call Start to run the
// initial session check.
func New(identities ports.IdentityStore, resolver *service.RoleResolver, signup *service.SignupFlow, opts ...Option) *Bootstrapper {
	tail := make(chan struct{})
	close(tail)
	b := &Bootstrapper{
		identities: identities,
		resolver:   resolver,
		signup:     signup,
		log:        zerolog.Nop(),
		schedule:   func(task func()) { go task() },
		resolving:  true,
		listeners:  make(map[uint64]func(State)),
		ctx:        context.Background(),
		storeTail:  tail,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start subscribes to session changes and then checks for an existing
// session. Subscribing first closes the window in which a transition could
// be missed. Calling Start again is a no-op.
func (b *Bootstrapper) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = true
	b.ctx, b.cancel = context.WithCancel(context.WithoutCancel(ctx))
	b.mu.Unlock()

	unsubscribe := b.identities.OnSessionChanged(b.onSessionChanged)
	b.mu.Lock()
	b.unsubscribe = unsubscribe
	b.mu.Unlock()

	gen := b.begin()
	sess, err := b.identities.CurrentSession(ctx)
	if err != nil {
		b.apply(gen, nil, err)
		return fmt.Errorf("session bootstrap: %w", err)
	}
	if sess == nil {
		b.apply(gen, nil, nil)
		return nil
	}

	b.mu.Lock()
	if gen == b.generation {
		b.hasSession = true
	}
	b.mu.Unlock()
	user, err := b.resolver.ResolveUser(ctx, sess.Identity)
	if err != nil {
		b.log.Warn().Err(err).Str("identity_id", sess.Identity.ID).Msg("existing session has no usable role")
	}
	b.apply(gen, user, err)
	return nil
}

// Close stops listening to the identity store and waits for deferred
// resolutions to finish.
func (b *Bootstrapper) Close() {
	b.mu.Lock()
	unsubscribe, cancel := b.unsubscribe, b.cancel
	b.unsubscribe = nil
	b.closed = true
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	b.tasks.Wait()
	if cancel != nil {
		cancel()
	}
}

// CurrentUser returns the Application User, or nil when there is none.
func (b *Bootstrapper) CurrentUser() *domain.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.user
}

// IsResolving reports whether a resolution is in flight. Consumers must treat
// the user as unknown, not signed out, while it is true.
func (b *Bootstrapper) IsResolving() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resolving
}

func (b *Bootstrapper) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return State{User: b.user, Resolving: b.resolving, Err: b.lastErr}
}

// Subscribe registers fn for slot changes. fn must not call SignIn, SignUp or
// SignOut synchronously.
func (b *Bootstrapper) Subscribe(fn func(State)) (cancel func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// WaitResolved blocks until no resolution is in flight.
func (b *Bootstrapper) WaitResolved(ctx context.Context) (State, error) {
	done := make(chan State, 1)
	cancel := b.Subscribe(func(st State) {
		if !st.Resolving {
			select {
			case done <- st:
			default:
			}
		}
	})
	defer cancel()

	if st := b.Snapshot(); !st.Resolving {
		return st, nil
	}
	select {
	case st := <-done:
		return st, nil
	case <-ctx.Done():
		return b.Snapshot(), ctx.Err()
	}
}

// SignIn verifies credentials and resolves the role. Credential failures
// leave the slot as it was; role failures clear it.
func (b *Bootstrapper) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	gen, turn := b.beginExplicit()
	defer b.endExplicit()

	if err := b.await(ctx, turn); err != nil {
		b.settle(gen)
		return nil, err
	}
	sess, err := b.identities.SignIn(ctx, email, password)
	if err == nil {
		b.markSession(true)
	}
	b.release(turn)
	if err != nil {
		metrics.SignInsTotal.WithLabelValues(string(domain.KindOf(err))).Inc()
		b.settle(gen)
		return nil, err
	}

	user, err := b.resolver.ResolveUser(ctx, sess.Identity)
	if err != nil {
		metrics.SignInsTotal.WithLabelValues(string(domain.KindOf(err))).Inc()
		b.apply(gen, nil, err)
		return nil, err
	}
	if !b.apply(gen, user, nil) {
		return nil, ErrSuperseded
	}
	metrics.SignInsTotal.WithLabelValues("ok").Inc()
	b.log.Info().Str("identity_id", user.ID).Str("role", string(user.Role)).Msg("signed in")
	return user, nil
}

// SignUp runs the signup steps. A *domain.PartialSignupError is returned as
// is, together with the outcome the identity store reported.
func (b *Bootstrapper) SignUp(ctx context.Context, email, password string, role domain.Role) (SignupOutcome, error) {
	gen, turn := b.beginExplicit()
	defer b.endExplicit()

	if err := b.await(ctx, turn); err != nil {
		b.settle(gen)
		return SignupFailed, err
	}
	report, err := b.signup.Run(ctx, b.identities, email, password, role)
	if report.Live() {
		b.markSession(true)
	}
	b.release(turn)
	if report == nil {
		b.settle(gen)
		return SignupFailed, err
	}
	if !report.Live() {
		b.settle(gen)
		return SignupPendingConfirmation, err
	}

	user, rerr := b.resolver.ResolveUser(ctx, report.Identity)
	if rerr != nil {
		b.apply(gen, nil, rerr)
		return SignupFailed, errors.Join(err, rerr)
	}
	if !b.apply(gen, user, nil) {
		return SignupSignedIn, errors.Join(err, ErrSuperseded)
	}
	return SignupSignedIn, err
}

// SignOut clears the slot at once and then invalidates the external session,
// after any sign-in or sign-up already in flight has reached the store. A
// second call finds no session and does not touch the identity store.
func (b *Bootstrapper) SignOut(ctx context.Context) error {
	b.mu.Lock()
	b.generation++
	turn := b.takeTurnLocked()
	changed := b.user != nil || b.resolving || b.lastErr != nil
	b.user, b.resolving, b.lastErr = nil, false, nil
	b.mu.Unlock()

	if changed {
		b.notify()
	}

	if err := b.await(ctx, turn); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	defer b.release(turn)

	b.mu.Lock()
	had := b.hasSession
	b.mu.Unlock()
	if !had {
		return nil
	}
	if err := b.identities.SignOut(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	b.markSession(false)
	b.log.Info().Msg("signed out")
	return nil
}

func (b *Bootstrapper) onSessionChanged(event domain.SessionEvent, sess *domain.Session) {
	b.mu.Lock()
	own := b.storeBusy
	b.mu.Unlock()
	// The call holding the store turn settles the slot for its own events.
	if own && (event == domain.EventSignedIn || event == domain.EventSignedOut) {
		return
	}

	if event == domain.EventSignedOut || sess == nil {
		b.mu.Lock()
		b.hasSession = false
		b.generation++
		changed := b.user != nil || b.resolving || b.lastErr != nil
		b.user, b.resolving, b.lastErr = nil, false, nil
		b.mu.Unlock()
		if changed {
			b.notify()
		}
		return
	}

	b.mu.Lock()
	b.hasSession = true
	pending := b.explicit > 0
	b.mu.Unlock()
	if event == domain.EventSignedIn && pending {
		return
	}

	gen := b.begin()
	identity := sess.Identity
	b.hop(func() {
		b.mu.Lock()
		ctx := b.ctx
		b.mu.Unlock()

		user, err := b.resolver.ResolveUser(ctx, identity)
		if err != nil {
			b.log.Warn().Err(err).Str("event", string(event)).Str("identity_id", identity.ID).Msg("session change left no usable role")
		}
		b.apply(gen, user, err)
	})
}

// hop runs task on a later scheduling turn; the identity store may forbid
// calls into itself from inside its own callback.
func (b *Bootstrapper) hop(task func()) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.tasks.Add(1)
	b.mu.Unlock()
	b.schedule(func() {
		defer b.tasks.Done()
		task()
	})
}

// begin starts a resolution triggered by the identity store.
func (b *Bootstrapper) begin() uint64 {
	gen, _ := b.nextGeneration(false)
	return gen
}

// beginExplicit starts a sign-in or sign-up and hands back its store turn.
func (b *Bootstrapper) beginExplicit() (uint64, storeTurn) {
	return b.nextGeneration(true)
}

func (b *Bootstrapper) nextGeneration(explicit bool) (uint64, storeTurn) {
	b.mu.Lock()
	var turn storeTurn
	if explicit {
		b.explicit++
		turn = b.takeTurnLocked()
	}
	b.generation++
	gen := b.generation
	changed := !b.resolving
	b.resolving = true
	b.mu.Unlock()

	if changed {
		b.notify()
	}
	return gen, turn
}

// storeTurn is one place in the queue of calls that change the identity
// store's session. wait closes when the previous call is done.
type storeTurn struct {
	wait <-chan struct{}
	done chan struct{}
}

func (b *Bootstrapper) takeTurnLocked() storeTurn {
	t := storeTurn{wait: b.storeTail, done: make(chan struct{})}
	b.storeTail = t.done
	return t
}

// await blocks until t is at the head of the queue. When ctx ends first the
// turn is handed on once the previous call finishes.
func (b *Bootstrapper) await(ctx context.Context, t storeTurn) error {
	select {
	case <-t.wait:
	case <-ctx.Done():
		go func() {
			<-t.wait
			close(t.done)
		}()
		return ctx.Err()
	}
	b.mu.Lock()
	b.storeBusy = true
	b.mu.Unlock()
	return nil
}

func (b *Bootstrapper) release(t storeTurn) {
	b.mu.Lock()
	b.storeBusy = false
	b.mu.Unlock()
	close(t.done)
}

func (b *Bootstrapper) endExplicit() {
	b.mu.Lock()
	b.explicit--
	b.mu.Unlock()
}

// apply stores the result of generation gen if it is still the latest.
func (b *Bootstrapper) apply(gen uint64, user *domain.User, err error) bool {
	b.mu.Lock()
	if gen != b.generation {
		b.mu.Unlock()
		metrics.StaleResolutionsTotal.Inc()
		b.log.Debug().Uint64("generation", gen).Msg("discarding superseded resolution")
		return false
	}
	b.user, b.resolving, b.lastErr = user, false, err
	b.mu.Unlock()

	b.notify()
	return true
}

// settle ends generation gen without touching the user.
func (b *Bootstrapper) settle(gen uint64) {
	b.mu.Lock()
	if gen != b.generation {
		b.mu.Unlock()
		return
	}
	b.resolving = false
	b.mu.Unlock()

	b.notify()
}

func (b *Bootstrapper) markSession(live bool) {
	b.mu.Lock()
	b.hasSession = live
	b.mu.Unlock()
}

// notify delivers the current state to listeners. Deliveries are serialised
// and always carry the latest state.
func (b *Bootstrapper) notify() {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	st := State{User: b.user, Resolving: b.resolving, Err: b.lastErr}
	fns := make([]func(State), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
