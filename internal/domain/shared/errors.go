// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrInvariantBroken = errors.New("internal invariant violated")

	// Persistence errors
	ErrPersistence = errors.New("persistence failure")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progression", "challenge", "leaderboard"
	Op      string // Operation that failed, e.g., "ApplyTrade", "CompleteDay"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progression domain errors
var (
	ErrStateNotFound        = NewDomainError("progression", "Load", ErrNotFound, "progression state not found")
	ErrStateAlreadyExists   = NewDomainError("progression", "Create", ErrAlreadyExists, "progression state already exists")
	ErrUserNotFound         = NewDomainError("progression", "Load", ErrNotFound, "user not found")
	ErrInvalidGrantAmount   = NewDomainError("progression", "Grant", ErrValueOutOfRange, "xp grant amount must be positive")
	ErrBadgeEvalDiverged    = NewDomainError("progression", "EvaluateBadges", ErrInvariantBroken, "badge evaluation did not converge")
	ErrInvalidTenantID      = NewDomainError("progression", "Validate", ErrInvalidID, "invalid tenant ID")
	ErrInvalidUserID        = NewDomainError("progression", "Validate", ErrInvalidID, "invalid user ID")
)

// Challenge domain errors
var (
	ErrInvalidDayNumber   = NewDomainError("challenge", "CompleteDay", ErrValueOutOfRange, "day number must be between 1 and 30")
	ErrInvalidChallengeID = NewDomainError("challenge", "Validate", ErrInvalidID, "invalid challenge ID")
)

// Leaderboard domain errors
var (
	ErrLeaderboardEmpty    = NewDomainError("leaderboard", "Rank", ErrNotFound, "leaderboard is empty")
	ErrNotInLeaderboard    = NewDomainError("leaderboard", "GetUserRank", ErrNotFound, "user not in leaderboard")
	ErrDuplicateEntry      = NewDomainError("leaderboard", "Add", ErrAlreadyExists, "user already exists in ranking")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsPersistence checks if the error came from the storage collaborator.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}
