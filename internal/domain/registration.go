package domain

import (
	"context"
	"fmt"
	"time"
)

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "PENDING"
	RegistrationConfirmed RegistrationStatus = "CONFIRMED"
	RegistrationCancelled RegistrationStatus = "CANCELLED"
	RegistrationRejected  RegistrationStatus = "REJECTED"
)

// registrationTransitions is the single source of truth for allowed moves.
var registrationTransitions = map[RegistrationStatus][]RegistrationStatus{
	RegistrationPending:   {RegistrationConfirmed, RegistrationCancelled, RegistrationRejected},
	RegistrationConfirmed: {RegistrationCancelled},
}

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationConfirmed, RegistrationCancelled, RegistrationRejected:
		return true
	}
	return false
}

// HoldsSeat reports whether a registration in this status consumes capacity.
// PENDING registrations reserve their seat while payment is outstanding.
func (s RegistrationStatus) HoldsSeat() bool {
	return s == RegistrationPending || s == RegistrationConfirmed
}

// Terminal reports whether no further transition is possible.
func (s RegistrationStatus) Terminal() bool {
	return len(registrationTransitions[s]) == 0
}

// CanTransition reports whether moving from s to next is allowed.
func (s RegistrationStatus) CanTransition(next RegistrationStatus) bool {
	for _, allowed := range registrationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition validates the move from s to next and returns next.
func (s RegistrationStatus) Transition(next RegistrationStatus) (RegistrationStatus, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// InitialRegistrationStatus is the status a newly admitted registration starts in.
func InitialRegistrationStatus(requiresPayment bool) RegistrationStatus {
	if requiresPayment {
		return RegistrationPending
	}
	return RegistrationConfirmed
}

// Registration links a user to an event.
// swagger:model Registration
type Registration struct {
	ID          string             `json:"id"`
	EventID     string             `json:"event_id"`
	UserID      string             `json:"user_id"`
	Status      RegistrationStatus `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	ConfirmedAt *time.Time         `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time         `json:"cancelled_at,omitempty"`
}

// NewRegistration creates a registration in the given initial status. ID is set by the repository on create.
func NewRegistration(eventID, userID string, status RegistrationStatus, now time.Time) *Registration {
	reg := &Registration{
		EventID:   eventID,
		UserID:    userID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == RegistrationConfirmed {
		reg.ConfirmedAt = &now
	}
	return reg
}

// Apply moves the registration to next, stamping the matching timestamp.
func (r *Registration) Apply(next RegistrationStatus, now time.Time) error {
	status, err := r.Status.Transition(next)
	if err != nil {
		return err
	}
	r.Status = status
	r.UpdatedAt = now
	switch status {
	case RegistrationConfirmed:
		r.ConfirmedAt = &now
	case RegistrationCancelled, RegistrationRejected:
		r.CancelledAt = &now
	}
	return nil
}

// RegistrationOutcome tells whether a register call admitted the user or queued them.
type RegistrationOutcome string

const (
	OutcomeRegistered RegistrationOutcome = "registered"
	OutcomeWaitlisted RegistrationOutcome = "waitlisted"
)

// RegistrationResult is returned by Register. Exactly one of Registration and
// WaitlistEntry is set, matching Outcome.
type RegistrationResult struct {
	Outcome       RegistrationOutcome `json:"outcome"`
	Registration  *Registration       `json:"registration,omitempty"`
	WaitlistEntry *WaitlistEntry      `json:"waitlist_entry,omitempty"`
	Position      int                 `json:"position,omitempty"`
}

// RegistrationRepository defines storage operations for registrations.
type RegistrationRepository interface {
	// Create inserts an active registration. Returns ErrDuplicateRegistration
	// when the user already holds an active registration for the event.
	Create(ctx context.Context, reg *Registration) error
	GetByID(ctx context.Context, id string) (*Registration, error)
	LockByID(ctx context.Context, id string) (*Registration, error)
	GetActiveByEventAndUser(ctx context.Context, eventID, userID string) (*Registration, error)
	CountActiveByEvent(ctx context.Context, eventID string) (int, error)
	CountByEvent(ctx context.Context, eventID string) (int, error)
	UpdateStatus(ctx context.Context, reg *Registration) error
	ListByUserID(ctx context.Context, userID string) ([]*Registration, error)
	ListByEventID(ctx context.Context, eventID string, status RegistrationStatus) ([]*Registration, error)
}

// RegistrationService is the registration state machine.
type RegistrationService interface {
	Register(ctx context.Context, userID, eventID string) (*RegistrationResult, error)
	ConfirmPayment(ctx context.Context, registrationID string) (*Registration, error)
	Cancel(ctx context.Context, registrationID, actorID string) (*Registration, error)
	Reject(ctx context.Context, registrationID, actorID string) (*Registration, error)
	Get(ctx context.Context, registrationID, actorID string) (*Registration, error)
	ListByUser(ctx context.Context, userID string) ([]*Registration, error)
	ListByEvent(ctx context.Context, eventID, actorID string, status RegistrationStatus) ([]*Registration, error)
}
