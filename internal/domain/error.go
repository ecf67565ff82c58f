package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflicting state transition")
	ErrForbidden          = errors.New("actor is not allowed to perform this action")
	ErrQueueEmpty         = errors.New("moderation queue is empty")
	ErrCooldown           = errors.New("submission cooldown active")
	ErrLockBusy           = errors.New("resource is locked by another actor")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Transport errors raised by the message gateway
	ErrDelivery         = errors.New("message delivery failed")
	ErrRateLimited      = errors.New("rate limited by messaging platform")
	ErrInvalidRecipient = errors.New("recipient is unreachable")
)

// ValidationError carries the i18n key describing why a submission was refused.
type ValidationError struct {
	Reason string
	Args   []any
}

func NewValidationError(reason string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Args: args}
}

func (e *ValidationError) Error() string { return "validation failed: " + e.Reason }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// RateLimitError is returned by the gateway when the platform throttles us.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// CooldownError tells the submitter how long to wait before posting again.
type CooldownError struct {
	Category  string
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown for %s active, %s remaining", e.Category, e.Remaining)
}
func (e *CooldownError) Unwrap() error { return ErrCooldown }

// IsTransient reports whether a delivery error is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidRecipient) {
		return false
	}
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrDelivery)
}
