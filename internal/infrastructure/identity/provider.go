// Package identity implements the identity store: a stateless Provider that
// owns accounts and tokens, and a Client that holds one process's session on
// top of it.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/agrovagas/platform/internal/core/domain"
	"github.com/agrovagas/platform/internal/core/ports"
)

const (
	purposeAccess  = "access"
	purposeConfirm = "confirm"

	defaultTokenTTL        = time.Hour
	defaultConfirmationTTL = 48 * time.Hour
)

// Config tunes the provider.
type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
	// ConfirmationTTL bounds how long a signup confirmation token is valid.
	ConfirmationTTL time.Duration
	// RequireConfirmation withholds a session at signup and rejects sign-in
	// until the identity is confirmed.
	RequireConfirmation bool
	BcryptCost          int
}

type claims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Provider implements ports.IdentityProvider.
type Provider struct {
	accounts ports.AccountRepository
	revoker  ports.TokenRevoker
	cfg      Config
	now      func() time.Time
	log      zerolog.Logger
}

func NewProvider(accounts ports.AccountRepository, revoker ports.TokenRevoker, cfg Config, log zerolog.Logger) *Provider {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.ConfirmationTTL <= 0 {
		cfg.ConfirmationTTL = defaultConfirmationTTL
	}
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Provider{
		accounts: accounts,
		revoker:  revoker,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// Authenticate checks email and password. Unknown emails and wrong passwords
// are indistinguishable to the caller.
func (p *Provider) Authenticate(ctx context.Context, email, password string) (*domain.Session, error) {
	acct, err := p.accounts.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if p.cfg.RequireConfirmation && !acct.Confirmed {
		return nil, domain.ErrUnconfirmedIdentity
	}
	return p.session(acct)
}

// SignUp creates an account carrying attrs. With confirmation required the
// result holds a confirmation token and no session.
func (p *Provider) SignUp(ctx context.Context, email, password string, attrs domain.Attributes) (*domain.SignUpResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidSignup
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := p.now()
	created, err := p.accounts.Create(ctx, &domain.Account{
		Email:        email,
		PasswordHash: string(hash),
		Attributes:   attrs.Clone(),
		Confirmed:    !p.cfg.RequireConfirmation,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	if p.cfg.RequireConfirmation {
		token, _, err := p.issue(created, purposeConfirm, p.cfg.ConfirmationTTL)
		if err != nil {
			return nil, err
		}
		p.log.Info().Str("identity_id", created.ID).Msg("confirmation required")
		p.log.Debug().Str("identity_id", created.ID).Str("confirmation_token", token).Msg("confirmation token issued")
		return &domain.SignUpResult{Identity: created.Identity(), ConfirmationToken: token}, nil
	}

	sess, err := p.session(created)
	if err != nil {
		return nil, err
	}
	return &domain.SignUpResult{Identity: created.Identity(), Session: sess}, nil
}

// Verify returns the identity behind a live, unrevoked access token. The
// identity is read fresh so attribute updates are visible.
func (p *Provider) Verify(ctx context.Context, accessToken string) (*domain.Identity, error) {
	c, err := p.parse(accessToken, purposeAccess)
	if err != nil {
		return nil, err
	}
	acct, err := p.liveAccount(ctx, c)
	if err != nil {
		return nil, err
	}
	return acct.Identity(), nil
}

// Revoke invalidates accessToken for the rest of its lifetime.
func (p *Provider) Revoke(ctx context.Context, accessToken string) error {
	c, err := p.parse(accessToken, purposeAccess)
	if err != nil {
		return err
	}
	return p.revoker.Revoke(ctx, c.ID, c.ExpiresAt.Time.Sub(p.now()))
}

// Refresh exchanges a live token for a new one and revokes the old.
func (p *Provider) Refresh(ctx context.Context, accessToken string) (*domain.Session, error) {
	c, err := p.parse(accessToken, purposeAccess)
	if err != nil {
		return nil, err
	}
	acct, err := p.liveAccount(ctx, c)
	if err != nil {
		return nil, err
	}

	sess, err := p.session(acct)
	if err != nil {
		return nil, err
	}
	if err := p.revoker.Revoke(ctx, c.ID, c.ExpiresAt.Time.Sub(p.now())); err != nil {
		p.log.Warn().Err(err).Str("identity_id", acct.ID).Msg("failed to revoke refreshed token")
	}
	return sess, nil
}

// Confirm marks the identity behind a confirmation token as confirmed.
func (p *Provider) Confirm(ctx context.Context, confirmationToken string) (*domain.Identity, error) {
	c, err := p.parse(confirmationToken, purposeConfirm)
	if err != nil {
		return nil, err
	}
	if err := p.accounts.MarkConfirmed(ctx, c.Subject); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("confirm: %w", err)
	}
	acct, err := p.accounts.FindByID(ctx, c.Subject)
	if err != nil {
		return nil, fmt.Errorf("confirm: %w", err)
	}
	return acct.Identity(), nil
}

func (p *Provider) liveAccount(ctx context.Context, c *claims) (*domain.Account, error) {
	revoked, err := p.revoker.IsRevoked(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: revoked", domain.ErrInvalidToken)
	}

	acct, err := p.accounts.FindByID(ctx, c.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: unknown subject", domain.ErrInvalidToken)
		}
		return nil, fmt.Errorf("verify token: %w", err)
	}
	return acct, nil
}

func (p *Provider) session(acct *domain.Account) (*domain.Session, error) {
	token, exp, err := p.issue(acct, purposeAccess, p.cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	return &domain.Session{AccessToken: token, ExpiresAt: exp, Identity: acct.Identity()}, nil
}

func (p *Provider) issue(acct *domain.Account, purpose string, ttl time.Duration) (string, time.Time, error) {
	now := p.now()
	exp := now.Add(ttl)
	c := &claims{
		Email:   acct.Email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   acct.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(p.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (p *Provider) parse(token, purpose string) (*claims, error) {
	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		return []byte(p.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if c.Purpose != purpose || c.Subject == "" || c.ID == "" {
		return nil, fmt.Errorf("%w: wrong token purpose", domain.ErrInvalidToken)
	}
	return c, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
