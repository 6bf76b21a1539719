package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentConfirmed PaymentStatus = "CONFIRMED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:   {PaymentConfirmed, PaymentFailed, PaymentCancelled},
	PaymentConfirmed: {PaymentCancelled},
}

// ParsePaymentStatus validates a status received from a payment provider.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch st := PaymentStatus(s); st {
	case PaymentPending, PaymentConfirmed, PaymentFailed, PaymentCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, s)
}

// IsSuccess reports whether the payment has settled.
func (s PaymentStatus) IsSuccess() bool { return s == PaymentConfirmed }

// IsFailure reports whether the payment ended without settling.
func (s PaymentStatus) IsFailure() bool { return s == PaymentFailed || s == PaymentCancelled }

// Transition validates the move from s to next.
func (s PaymentStatus) Transition(next PaymentStatus) (PaymentStatus, error) {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return next, nil
		}
	}
	return s, fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, s, next)
}

// Payment is a payment optionally linked one-to-one to a registration.
// swagger:model Payment
type Payment struct {
	ID             string        `json:"id"`
	RegistrationID *string       `json:"registration_id,omitempty"`
	EventID        *string       `json:"event_id,omitempty"`
	BankAccountID  *string       `json:"bank_account_id,omitempty"`
	UserID         string        `json:"user_id"`
	AmountCents    int64         `json:"amount_cents"`
	Currency       string        `json:"currency"`
	VariableSymbol string        `json:"variable_symbol"`
	Status         PaymentStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
}

// PaymentRepository defines storage operations for payments.
type PaymentRepository interface {
	// Create inserts a payment. Returns ErrDuplicateVariableSymbol on a symbol collision.
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	LockByID(ctx context.Context, id string) (*Payment, error)
	GetByRegistrationID(ctx context.Context, registrationID string) (*Payment, error)
	// LinkRegistration sets the registration of an unlinked payment.
	// Returns ErrPaymentAlreadyLinked when either side is already linked.
	LinkRegistration(ctx context.Context, paymentID, registrationID string) error
	UpdateStatus(ctx context.Context, p *Payment) error
}

// ErrDuplicateVariableSymbol is returned when a generated variable symbol is already taken.
var ErrDuplicateVariableSymbol = errors.New("variable symbol already in use")

// PaymentService correlates payments with registrations.
type PaymentService interface {
	CreatePayment(ctx context.Context, registrationID, actorID string) (*Payment, error)
	LinkPayment(ctx context.Context, registrationID, paymentID string) (*Payment, error)
	OnPaymentStatusChange(ctx context.Context, paymentID string, status PaymentStatus) (*Payment, error)
}
