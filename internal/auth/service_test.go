package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"popquiz-service/internal/domain"
)

type mapStore struct {
	mu       sync.Mutex
	accounts map[string]Account
}

func (m *mapStore) Create(_ context.Context, a Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.Email]; ok {
		return domain.ErrEmailExists
	}
	m.accounts[a.Email] = a
	return nil
}

func (m *mapStore) ByEmail(_ context.Context, email string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[email]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func newTestService() *Service {
	return NewService(&mapStore{accounts: map[string]Account{}}, Config{
		Secret:     []byte("test-secret"),
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, zerolog.Nop())
}

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	creds, err := svc.SignUp(ctx, "  Player@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "player@example.com", creds.Identity.Email)
	assert.NotEmpty(t, creds.Identity.UserID)
	assert.NotEmpty(t, creds.Token)

	again, err := svc.SignIn(ctx, "player@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, creds.Identity, again.Identity)

	id, err := svc.Verify(again.Token)
	require.NoError(t, err)
	assert.Equal(t, creds.Identity, id)
}

func TestSignUpErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	_, err := svc.SignUp(ctx, "taken@example.com", "secret1")
	require.NoError(t, err)

	cases := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"duplicate email", "TAKEN@example.com", "secret1", domain.ErrEmailExists},
		{"weak password", "new@example.com", "12345", domain.ErrWeakPassword},
		{"invalid email", "not-an-email", "secret1", domain.ErrInvalidEmail},
		{"empty email", "", "secret1", domain.ErrInvalidEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SignUp(ctx, tc.email, tc.password)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	_, err := svc.SignUp(ctx, "p@example.com", "secret1")
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, "p@example.com", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestSignOutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	creds, err := svc.SignUp(ctx, "p@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, creds.Token))

	_, err = svc.Verify(creds.Token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.ErrorIs(t, svc.SignOut(ctx, creds.Token), domain.ErrInvalidToken)
}

func TestVerifyRejectsForeignAndExpiredTokens(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	creds, err := svc.SignUp(ctx, "p@example.com", "secret1")
	require.NoError(t, err)

	other := NewService(&mapStore{accounts: map[string]Account{}}, Config{Secret: []byte("other")}, zerolog.Nop())
	_, err = other.Verify(creds.Token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	svc.tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Verify(creds.Token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = svc.Verify("garbage")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
