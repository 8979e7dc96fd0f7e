package domain

import "fmt"

// Error types for consistent error handling across the billing engine.

// ErrValidation indicates a validation error (bad identifier, bad card).
// Never retried; surfaced to the caller before any network attempt.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrNotFound indicates a resource was not found.
// Batch processing treats this as a skipped row, not a failure.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUpstream indicates a failure in an external provider or gateway call.
type ErrUpstream struct {
	Service string
	Err     error
}

func (e *ErrUpstream) Error() string {
	return fmt.Sprintf("upstream error [%s]: %v", e.Service, e.Err)
}

func (e *ErrUpstream) Unwrap() error {
	return e.Err
}

// ErrUpstreamTimeout indicates an external call exceeded its deadline.
type ErrUpstreamTimeout struct {
	Operation string
}

func (e *ErrUpstreamTimeout) Error() string {
	return fmt.Sprintf("upstream timed out: %s", e.Operation)
}

// ErrAuthentication indicates the signature or credentials were rejected
// by an upstream API. Fatal for that call; never triggers sandbox fallback
// in production mode.
type ErrAuthentication struct {
	Service string
}

func (e *ErrAuthentication) Error() string {
	return fmt.Sprintf("authentication rejected by %s", e.Service)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrDuplicate indicates a duplicate operation (idempotency check).
type ErrDuplicate struct {
	Key string
}

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("duplicate operation: %s", e.Key)
}

// ErrLimitExceeded indicates a per-customer limit was exceeded
// (e.g. maximum number of linked cards).
type ErrLimitExceeded struct {
	LimitType string
	Limit     int
}

func (e *ErrLimitExceeded) Error() string {
	return fmt.Sprintf("limit exceeded [%s]: max %d", e.LimitType, e.Limit)
}

// ErrUnauthorized indicates an invalid or expired customer token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
