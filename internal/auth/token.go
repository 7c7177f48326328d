package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"popquiz-service/internal/domain"
)

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// tokenManager signs HS256 session tokens and tracks revoked token ids until
// they would have expired anyway.
type tokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func newTokenManager(secret []byte, ttl time.Duration, issuer string) *tokenManager {
	return &tokenManager{
		secret:  secret,
		ttl:     ttl,
		issuer:  issuer,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

func (m *tokenManager) issue(id domain.Identity) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	c := claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

func (m *tokenManager) parse(token string) (*claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Subject == "" {
		return nil, domain.ErrInvalidToken
	}

	m.mu.Lock()
	_, revoked := m.revoked[c.ID]
	m.mu.Unlock()
	if revoked {
		return nil, domain.ErrInvalidToken
	}
	return c, nil
}

func (m *tokenManager) revoke(c *claims) error {
	if c.ExpiresAt == nil {
		return errors.New("token has no expiry")
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, exp := range m.revoked {
		if exp.Before(now) {
			delete(m.revoked, id)
		}
	}
	m.revoked[c.ID] = c.ExpiresAt.Time
	return nil
}
