package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"popquiz-service/internal/domain"
)

// Config controls token signing and password hashing.
type Config struct {
	Secret     []byte
	TokenTTL   time.Duration // default: 24 hours
	Issuer     string
	BcryptCost int
}

// Service implements Provider over an AccountStore.
type Service struct {
	accounts AccountStore
	tokens   *tokenManager
	cost     int
	validate *validator.Validate
	logger   zerolog.Logger
	now      func() time.Time
}

var _ Provider = (*Service)(nil)

func NewService(accounts AccountStore, cfg Config, logger zerolog.Logger) *Service {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "popquiz"
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		accounts: accounts,
		tokens:   newTokenManager(cfg.Secret, cfg.TokenTTL, cfg.Issuer),
		cost:     cfg.BcryptCost,
		validate: validator.New(),
		logger:   logger.With().Str("component", "auth").Logger(),
		now:      time.Now,
	}
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (Credentials, error) {
	email, err := s.normalizeEmail(email)
	if err != nil {
		return Credentials{}, err
	}
	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return Credentials{}, err
	}

	account := Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrEmailExists) {
			return Credentials{}, domain.ErrEmailExists
		}
		return Credentials{}, fmt.Errorf("create account: %w", err)
	}
	s.logger.Info().Str("user_id", account.ID).Msg("account created")
	return s.credentials(domain.Identity{UserID: account.ID, Email: account.Email})
}

// SignIn checks the password and issues a fresh token.
func (s *Service) SignIn(ctx context.Context, email, password string) (Credentials, error) {
	email, err := s.normalizeEmail(email)
	if err != nil {
		return Credentials{}, err
	}
	account, err := s.accounts.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Credentials{}, domain.ErrInvalidCredentials
		}
		return Credentials{}, fmt.Errorf("lookup account: %w", err)
	}
	if err := verifyPassword(account.PasswordHash, password); err != nil {
		return Credentials{}, domain.ErrInvalidCredentials
	}
	return s.credentials(domain.Identity{UserID: account.ID, Email: account.Email})
}

// SignOut revokes the token. Signing out with an already invalid token is an
// error so callers can tell a stale client apart.
func (s *Service) SignOut(_ context.Context, token string) error {
	c, err := s.tokens.parse(token)
	if err != nil {
		return err
	}
	if err := s.tokens.revoke(c); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Info().Str("user_id", c.Subject).Msg("signed out")
	return nil
}

// Verify resolves a token to the identity it was issued for.
func (s *Service) Verify(token string) (domain.Identity, error) {
	c, err := s.tokens.parse(token)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{UserID: c.Subject, Email: c.Email}, nil
}

func (s *Service) credentials(id domain.Identity) (Credentials, error) {
	token, expires, err := s.tokens.issue(id)
	if err != nil {
		return Credentials{}, fmt.Errorf("issue token: %w", err)
	}
	return Credentials{Identity: id, Token: token, ExpiresAt: expires}, nil
}

func (s *Service) normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}
