// Package shared contains common domain types, errors and events that are
// used across all domain packages. This package has zero external dependencies.
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
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrCycleDetected    = errors.New("cycle detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progression", "achievement", "leaderboard"
	Op      string // Operation that failed, e.g., "Append", "Evaluate"
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
	ErrInvalidEventType = NewDomainError("progression", "Validate", ErrInvalidInput, "unrecognized event type")
	ErrInvalidAmount    = NewDomainError("progression", "Validate", ErrValueOutOfRange, "xp amount must be a positive integer")
	ErrInvalidUserID    = NewDomainError("progression", "Validate", ErrInvalidID, "user id is required")
	ErrAvatarNotFound   = NewDomainError("progression", "Find", ErrNotFound, "avatar not found")
	ErrUnknownSkill     = NewDomainError("progression", "ApplyXP", ErrNotFound, "skill is not part of the aggregate")
)

// Achievement domain errors
var (
	ErrAchievementNotFound  = NewDomainError("achievement", "Find", ErrNotFound, "achievement not found")
	ErrAlreadyUnlocked      = NewDomainError("achievement", "Unlock", ErrAlreadyProcessed, "achievement already unlocked")
	ErrRewardCycleDetected  = NewDomainError("achievement", "ResolveRewards", ErrCycleDetected, "achievement reward chain forms a cycle")
	ErrInvalidCondition     = NewDomainError("achievement", "Validate", ErrInvalidInput, "invalid achievement condition")
	ErrInvalidDefinition    = NewDomainError("achievement", "Validate", ErrInvalidEntity, "invalid achievement definition")
)

// Leaderboard domain errors
var (
	ErrLeaderboardEmpty = NewDomainError("leaderboard", "Rank", ErrNotFound, "leaderboard has no entries")
	ErrInvalidLimit     = NewDomainError("leaderboard", "Validate", ErrValueOutOfRange, "invalid limit")
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
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}
