package memory

import (
	"context"
	"sync"

	"popquiz-service/internal/auth"
	"popquiz-service/internal/domain"
)

// AccountStore keeps accounts in process memory, keyed by email.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]auth.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]auth.Account)}
}

func (s *AccountStore) Create(_ context.Context, account auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.Email]; ok {
		return domain.ErrEmailExists
	}
	s.accounts[account.Email] = account
	return nil
}

func (s *AccountStore) ByEmail(_ context.Context, email string) (auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[email]
	if !ok {
		return auth.Account{}, auth.ErrAccountNotFound
	}
	return account, nil
}
