package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedQuizData is returned when a question set fails the shape check.
	ErrMalformedQuizData = errors.New("malformed quiz data")
	// ErrUnauthenticatedAction is returned when answering without a signed-in identity.
	ErrUnauthenticatedAction = errors.New("sign in to answer questions")
	// ErrUnknownCategory indicates a catalog lookup miss.
	ErrUnknownCategory = errors.New("unknown quiz category")
	// ErrStore marks failures of the backing score store.
	ErrStore = errors.New("score store error")
	// ErrNetworkTimeout is returned when a store call exceeds its deadline.
	ErrNetworkTimeout = errors.New("network timeout")
	// ErrInvalidPhase is returned when an operation is not allowed in the current phase.
	ErrInvalidPhase = errors.New("operation not allowed in current session phase")
	// ErrAlreadyAnswered is returned when the current question was already scored.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrSessionNotFound is returned when a quiz session is not registered.
	ErrSessionNotFound = errors.New("quiz session not found")

	ErrEmailExists        = errors.New("email already exists, use a different email or log in")
	ErrWeakPassword       = errors.New("password is too weak, use a stronger password")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// StoreError wraps a failed store operation. It matches ErrStore and the
// underlying cause with errors.Is.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStore, e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
