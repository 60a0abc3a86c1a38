package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrovagas/platform/internal/core/domain"
	"github.com/agrovagas/platform/internal/core/ports"
)

// SessionPersister keeps the current session across process restarts.
type SessionPersister interface {
	Load() (*domain.Session, error)
	Save(*domain.Session) error
	Clear() error
}

// Client is the identity store as seen by one process. It owns at most one
// session and reports every transition to its listeners. Listeners are
// invoked outside the client's lock, in registration order.
type Client struct {
	provider ports.IdentityProvider
	persist  SessionPersister
	log      zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	loaded    bool
	session   *domain.Session
	nextID    int
	listeners map[int]ports.SessionListener
	order     []int
}

var _ ports.IdentityStore = (*Client)(nil)

// NewClient builds a client over provider. persist may be nil, in which case
// the session lives only as long as the process.
func NewClient(provider ports.IdentityProvider, persist SessionPersister, log zerolog.Logger) *Client {
	return &Client{
		provider:  provider,
		persist:   persist,
		log:       log,
		now:       time.Now,
		listeners: make(map[int]ports.SessionListener),
	}
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	sess, err := c.provider.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.replace(sess)
	c.emit(domain.EventSignedIn, sess)
	return sess, nil
}

// SignUp registers a new identity. When the provider returns a live session it
// becomes the current one.
func (c *Client) SignUp(ctx context.Context, email, password string, attrs domain.Attributes) (*domain.SignUpResult, error) {
	res, err := c.provider.SignUp(ctx, email, password, attrs)
	if err != nil {
		return nil, err
	}
	if res.Session != nil {
		c.replace(res.Session)
		c.emit(domain.EventSignedIn, res.Session)
	}
	return res, nil
}

// SignOut revokes and drops the current session. Without a session it does
// nothing and emits nothing.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	c.loadLocked()
	sess := c.session
	c.mu.Unlock()

	if sess == nil {
		return nil
	}

	if err := c.provider.Revoke(ctx, sess.AccessToken); err != nil && !errors.Is(err, domain.ErrInvalidToken) {
		return fmt.Errorf("sign out: %w", err)
	}
	c.replace(nil)
	c.emit(domain.EventSignedOut, nil)
	return nil
}

// CurrentSession returns the live session, or nil. A persisted session that
// has expired or been revoked is dropped silently.
func (c *Client) CurrentSession(ctx context.Context) (*domain.Session, error) {
	c.mu.Lock()
	c.loadLocked()
	sess := c.session
	c.mu.Unlock()

	if sess == nil {
		return nil, nil
	}
	if sess.Expired(c.now()) {
		c.log.Debug().Msg("stored session expired")
		c.replace(nil)
		return nil, nil
	}

	identity, err := c.provider.Verify(ctx, sess.AccessToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			c.log.Debug().Err(err).Msg("stored session no longer valid")
			c.replace(nil)
			return nil, nil
		}
		return nil, err
	}

	fresh := &domain.Session{AccessToken: sess.AccessToken, ExpiresAt: sess.ExpiresAt, Identity: identity}
	c.mu.Lock()
	if c.session == sess {
		c.session = fresh
	}
	c.mu.Unlock()
	return fresh, nil
}

// Refresh swaps the current token for a new one.
func (c *Client) Refresh(ctx context.Context) (*domain.Session, error) {
	c.mu.Lock()
	c.loadLocked()
	sess := c.session
	c.mu.Unlock()

	if sess == nil {
		return nil, domain.ErrInvalidToken
	}
	next, err := c.provider.Refresh(ctx, sess.AccessToken)
	if err != nil {
		return nil, err
	}
	c.replace(next)
	c.emit(domain.EventTokenRefreshed, next)
	return next, nil
}

// Confirm confirms a pending signup. It does not sign the identity in.
func (c *Client) Confirm(ctx context.Context, confirmationToken string) (*domain.Identity, error) {
	return c.provider.Confirm(ctx, confirmationToken)
}

// OnSessionChanged registers fn and returns a function that removes it.
func (c *Client) OnSessionChanged(fn ports.SessionListener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.order = append(c.order, id)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) loadLocked() {
	if c.loaded {
		return
	}
	c.loaded = true
	if c.persist == nil {
		return
	}
	sess, err := c.persist.Load()
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to load stored session")
		return
	}
	c.session = sess
}

func (c *Client) replace(sess *domain.Session) {
	c.mu.Lock()
	c.loaded = true
	c.session = sess
	c.mu.Unlock()

	if c.persist == nil {
		return
	}
	var err error
	if sess == nil {
		err = c.persist.Clear()
	} else {
		err = c.persist.Save(sess)
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to persist session")
	}
}

func (c *Client) emit(event domain.SessionEvent, sess *domain.Session) {
	c.mu.Lock()
	fns := make([]ports.SessionListener, 0, len(c.listeners))
	live := c.order[:0]
	for _, id := range c.order {
		if fn, ok := c.listeners[id]; ok {
			fns = append(fns, fn)
			live = append(live, id)
		}
	}
	c.order = live
	c.mu.Unlock()

	for _, fn := range fns {
		fn(event, sess)
	}
}
