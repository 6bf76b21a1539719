package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by services. Handlers map them to HTTP status codes.
var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidInput          = errors.New("invalid input")
	ErrDuplicateRegistration = errors.New("user already registered for this event")
	ErrDuplicateWaitlist     = errors.New("user already on the waiting list for this event")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrCapacityExceeded      = errors.New("event capacity exceeded")
	ErrPaymentAlreadyLinked  = errors.New("payment already linked")
	ErrPaymentNotSettled     = errors.New("payment not settled")
	ErrEventHasRegistrations = errors.New("event has registrations")
)

// PersistenceError wraps a storage failure. Transient marks failures that may
// succeed when retried (lock timeouts, deadlocks, dropped connections).
type PersistenceError struct {
	Op        string
	Err       error
	Transient bool
}

func (e *PersistenceError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("persistence: %v", e.Err)
	}
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsTransient reports whether err wraps a transient PersistenceError.
func IsTransient(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Transient
}

// IsBusinessError reports whether err is an expected business-rule outcome
// rather than an infrastructure failure.
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrForbidden, ErrInvalidInput,
		ErrDuplicateRegistration, ErrDuplicateWaitlist,
		ErrInvalidTransition, ErrCapacityExceeded,
		ErrPaymentAlreadyLinked, ErrPaymentNotSettled,
		ErrEventHasRegistrations,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
