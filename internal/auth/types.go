// Package auth is the identity provider: email/password accounts, signed
// session tokens and the per-device current identity stream.
package auth

import (
	"context"
	"errors"
	"time"

	"popquiz-service/internal/domain"
)

// ErrAccountNotFound is returned by account stores on an email miss.
var ErrAccountNotFound = errors.New("account not found")

// Account is a stored email/password account.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// AccountStore persists accounts. Create must fail with domain.ErrEmailExists
// when the email is taken.
type AccountStore interface {
	Create(ctx context.Context, account Account) error
	ByEmail(ctx context.Context, email string) (Account, error)
}

// Credentials are returned on a successful sign up or sign in.
type Credentials struct {
	Identity  domain.Identity `json:"identity"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Provider is the identity provider surface used by clients and handlers.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (Credentials, error)
	SignIn(ctx context.Context, email, password string) (Credentials, error)
	SignOut(ctx context.Context, token string) error
	Verify(token string) (domain.Identity, error)
}
