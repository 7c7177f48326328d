package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"popquiz-service/internal/auth"
	"popquiz-service/internal/domain"
)

const uniqueViolation = "23505"

// AccountStore persists identity provider accounts.
type AccountStore struct {
	pool *pgxpool.Pool
}

func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

func (s *AccountStore) Create(ctx context.Context, account auth.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)`,
		account.ID, account.Email, account.PasswordHash, account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrEmailExists
		}
		return err
	}
	return nil
}

func (s *AccountStore) ByEmail(ctx context.Context, email string) (auth.Account, error) {
	var account auth.Account
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at FROM accounts WHERE email=$1`, email).
		Scan(&account.ID, &account.Email, &account.PasswordHash, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.Account{}, auth.ErrAccountNotFound
		}
		return auth.Account{}, err
	}
	return account, nil
}
