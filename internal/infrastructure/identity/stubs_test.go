package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/agrovagas/platform/internal/core/domain"
)

type memAccounts struct {
	mu   sync.Mutex
	byID map[string]*domain.Account
	next int
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byID: make(map[string]*domain.Account)}
}

func (m *memAccounts) Create(_ context.Context, account *domain.Account) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == account.Email {
			return nil, domain.ErrEmailAlreadyRegistered
		}
	}
	m.next++
	stored := *account
	stored.ID = fmt.Sprintf("acct-%d", m.next)
	m.byID[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (m *memAccounts) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			out := *a
			return &out, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *memAccounts) FindByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	out := *a
	return &out, nil
}

func (m *memAccounts) MarkConfirmed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Confirmed = true
	return nil
}

type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newMemRevoker() *memRevoker {
	return &memRevoker{revoked: make(map[string]time.Duration)}
}

func (r *memRevoker) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ttl > 0 {
		r.revoked[tokenID] = ttl
	}
	return nil
}

func (r *memRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[tokenID]
	return ok, nil
}

func testConfig() Config {
	return Config{JWTSecret: "test-secret", TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost}
}
