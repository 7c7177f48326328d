package auth

import (
	"golang.org/x/crypto/bcrypt"

	"popquiz-service/internal/domain"
)

// MinPasswordLength matches the hosted provider's weak-password rule.
const MinPasswordLength = 6

func hashPassword(password string, cost int) (string, error) {
	if len(password) < MinPasswordLength {
		return "", domain.ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
