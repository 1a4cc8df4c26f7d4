package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrDraftNotFound indicates a draft was not found by the given identifier.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrTokenNotFound indicates no token is stored under the given name.
	ErrTokenNotFound = errors.New("token not found")

	// ErrInvalidDraft indicates a draft failed validation before being stored.
	ErrInvalidDraft = errors.New("invalid draft")

	// ErrInvalidToken indicates a token failed validation before being stored.
	ErrInvalidToken = errors.New("invalid token")
)

// DraftError wraps draft-related errors with additional context.
type DraftError struct {
	Op      string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	DraftID string
	Err     error
}

func (e *DraftError) Error() string {
	return fmt.Sprintf("%s operation failed for draft %s: %v", e.Op, e.DraftID, e.Err)
}

func (e *DraftError) Unwrap() error {
	return e.Err
}

func (e *DraftError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDraftError creates a new draft error with context.
func NewDraftError(op, draftID string, err error) *DraftError {
	return &DraftError{Op: op, DraftID: draftID, Err: err}
}

// TokenError wraps token-related errors with the token name.
type TokenError struct {
	Op   string
	Name string
	Err  error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("%s operation failed for token %s: %v", e.Op, e.Name, e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

func (e *TokenError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewTokenError(op, name string, err error) *TokenError {
	return &TokenError{Op: op, Name: name, Err: err}
}

// IsDraftNotFound checks if an error indicates a draft was not found.
func IsDraftNotFound(err error) bool {
	return errors.Is(err, ErrDraftNotFound)
}

// IsTokenNotFound checks if an error indicates a token was not found.
func IsTokenNotFound(err error) bool {
	return errors.Is(err, ErrTokenNotFound)
}
