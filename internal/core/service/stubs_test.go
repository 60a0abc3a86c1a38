package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agrovagas/platform/internal/core/domain"
)

type stubRoleStore struct {
	mu        sync.Mutex
	rows      map[string][]domain.RoleAssignment
	findErr   error
	assignErr error
	findCalls int
}

func newStubRoleStore() *stubRoleStore {
	return &stubRoleStore{rows: make(map[string][]domain.RoleAssignment)}
}

func (s *stubRoleStore) FindByIdentity(_ context.Context, identityID string, limit int) ([]domain.RoleAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	rows := s.rows[identityID]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return append([]domain.RoleAssignment(nil), rows...), nil
}

func (s *stubRoleStore) Assign(_ context.Context, identityID string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assignErr != nil {
		return s.assignErr
	}
	s.rows[identityID] = append(s.rows[identityID], domain.RoleAssignment{
		ID:         fmt.Sprintf("ra-%d", len(s.rows[identityID])+1),
		IdentityID: identityID,
		Role:       role,
		CreatedAt:  time.Now(),
	})
	return nil
}

func (s *stubRoleStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findCalls
}

type stubProfileStore struct {
	mu      sync.Mutex
	err     error
	created map[string]domain.Role
}

func newStubProfileStore() *stubProfileStore {
	return &stubProfileStore{created: make(map[string]domain.Role)}
}

func (s *stubProfileStore) CreateEmpty(_ context.Context, identityID string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.created[identityID] = role
	return nil
}

type stubAccount struct {
	identity *domain.Identity
	password string
}

// stubProvider is an in-memory identity provider. Tokens are opaque strings
// mapped to identity ids.
type stubProvider struct {
	mu             sync.Mutex
	accounts       map[string]*stubAccount
	tokens         map[string]string
	revoked        map[string]bool
	requireConfirm bool
	signUpErr      error
	authErr        error
	next           int
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		accounts: make(map[string]*stubAccount),
		tokens:   make(map[string]string),
		revoked:  make(map[string]bool),
	}
}

// seed registers a confirmed account directly.
func (p *stubProvider) seed(email, password string, attrs domain.Attributes) *domain.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	id := &domain.Identity{ID: fmt.Sprintf("id-%d", p.next), Email: email, Attributes: attrs, Confirmed: true}
	p.accounts[email] = &stubAccount{identity: id, password: password}
	return id
}

func (p *stubProvider) issueLocked(identity *domain.Identity) *domain.Session {
	p.next++
	tok := fmt.Sprintf("tok-%d", p.next)
	p.tokens[tok] = identity.ID
	return &domain.Session{AccessToken: tok, ExpiresAt: time.Now().Add(time.Hour), Identity: identity}
}

func (p *stubProvider) SignUp(_ context.Context, email, password string, attrs domain.Attributes) (*domain.SignUpResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signUpErr != nil {
		return nil, p.signUpErr
	}
	if _, ok := p.accounts[email]; ok {
		return nil, domain.ErrEmailAlreadyRegistered
	}
	p.next++
	id := &domain.Identity{ID: fmt.Sprintf("id-%d", p.next), Email: email, Attributes: attrs.Clone(), Confirmed: !p.requireConfirm}
	p.accounts[email] = &stubAccount{identity: id, password: password}
	if p.requireConfirm {
		return &domain.SignUpResult{Identity: id, ConfirmationToken: "confirm-" + id.ID}, nil
	}
	return &domain.SignUpResult{Identity: id, Session: p.issueLocked(id)}, nil
}

func (p *stubProvider) Authenticate(_ context.Context, email, password string) (*domain.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.authErr != nil {
		return nil, p.authErr
	}
	acct, ok := p.accounts[email]
	if !ok || acct.password != password {
		return nil, domain.ErrInvalidCredentials
	}
	if !acct.identity.Confirmed {
		return nil, domain.ErrUnconfirmedIdentity
	}
	return p.issueLocked(acct.identity), nil
}

func (p *stubProvider) lookupLocked(token string) (*domain.Identity, error) {
	id, ok := p.tokens[token]
	if !ok || p.revoked[token] {
		return nil, domain.ErrInvalidToken
	}
	for _, acct := range p.accounts {
		if acct.identity.ID == id {
			return acct.identity, nil
		}
	}
	return nil, domain.ErrInvalidToken
}

func (p *stubProvider) Verify(_ context.Context, token string) (*domain.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lookupLocked(token)
}

func (p *stubProvider) Revoke(_ context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.lookupLocked(token); err != nil {
		return err
	}
	p.revoked[token] = true
	return nil
}

func (p *stubProvider) Refresh(_ context.Context, token string) (*domain.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	identity, err := p.lookupLocked(token)
	if err != nil {
		return nil, err
	}
	p.revoked[token] = true
	return p.issueLocked(identity), nil
}

func (p *stubProvider) Confirm(_ context.Context, token string) (*domain.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, acct := range p.accounts {
		if "confirm-"+acct.identity.ID == token {
			acct.identity.Confirmed = true
			return acct.identity, nil
		}
	}
	return nil, domain.ErrInvalidToken
}

func (p *stubProvider) isRevoked(token string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revoked[token]
}

var errStoreDown = errors.New("store unavailable")
