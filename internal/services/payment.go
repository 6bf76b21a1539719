package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"eventregistry/internal/domain"
)

const (
	variableSymbolLength   = 10
	variableSymbolAttempts = 5
)

type paymentService struct {
	*core
	newSymbol func() (string, error)
}

func NewPaymentService(d Deps) domain.PaymentService {
	return &paymentService{core: newCore(d), newSymbol: generateVariableSymbol}
}

// generateVariableSymbol returns a random 10-digit numeric reconciliation code.
func generateVariableSymbol() (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(variableSymbolLength), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", variableSymbolLength, n), nil
}

// CreatePayment opens a PENDING payment for the event price and links it to
// a PENDING registration.
func (s *paymentService) CreatePayment(ctx context.Context, registrationID, actorID string) (*domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var payment *domain.Payment
	err := s.inTx(ctx, "create_payment", func(ctx context.Context, tx *txn) error {
		event, reg, err := lockRegistration(ctx, tx, registrationID)
		if err != nil {
			return err
		}
		if actorID != reg.UserID {
			if err := s.requireManage(ctx, tx.repos, actorID, event); err != nil {
				return err
			}
		}
		if !event.RequiresPayment {
			return fmt.Errorf("%w: event does not require payment", domain.ErrInvalidInput)
		}
		if reg.Status != domain.RegistrationPending {
			return fmt.Errorf("%w: registration is %s", domain.ErrInvalidTransition, reg.Status)
		}
		if _, err := tx.repos.Payments.GetByRegistrationID(ctx, registrationID); err == nil {
			return domain.ErrPaymentAlreadyLinked
		} else if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("get payment: %w", err)
		}

		p := &domain.Payment{
			RegistrationID: &reg.ID,
			EventID:        &event.ID,
			UserID:         reg.UserID,
			AmountCents:    event.PriceCents,
			Currency:       event.Currency,
			Status:         domain.PaymentPending,
			CreatedAt:      tx.now,
			UpdatedAt:      tx.now,
		}
		for attempt := 0; ; attempt++ {
			if attempt == variableSymbolAttempts {
				return fmt.Errorf("create payment: %w after %d attempts", domain.ErrDuplicateVariableSymbol, attempt)
			}
			if p.VariableSymbol, err = s.newSymbol(); err != nil {
				return fmt.Errorf("generate variable symbol: %w", err)
			}
			err = tx.repos.Payments.Create(ctx, p)
			if errors.Is(err, domain.ErrDuplicateVariableSymbol) {
				continue
			}
			if err != nil {
				return fmt.Errorf("create payment: %w", err)
			}
			break
		}
		if err := audit(ctx, tx.repos, tx.now, "payment_created", "payment", p.ID, actorID, map[string]any{
			"registration_id": reg.ID,
			"variable_symbol": p.VariableSymbol,
			"amount_cents":    p.AmountCents,
		}); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// LinkPayment attaches an unlinked payment to a live registration without one.
// A payment that settled before it was linked confirms a PENDING registration.
func (s *paymentService) LinkPayment(ctx context.Context, registrationID, paymentID string) (*domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var payment *domain.Payment
	err := s.inTx(ctx, "link_payment", func(ctx context.Context, tx *txn) error {
		event, reg, err := lockRegistration(ctx, tx, registrationID)
		if err != nil {
			return err
		}
		if reg.Status.Terminal() {
			return fmt.Errorf("%w: registration is %s", domain.ErrInvalidTransition, reg.Status)
		}
		p, err := tx.repos.Payments.LockByID(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}
		if p.RegistrationID != nil {
			return domain.ErrPaymentAlreadyLinked
		}
		if _, err := tx.repos.Payments.GetByRegistrationID(ctx, registrationID); err == nil {
			return domain.ErrPaymentAlreadyLinked
		} else if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("get payment: %w", err)
		}
		if err := tx.repos.Payments.LinkRegistration(ctx, paymentID, registrationID); err != nil {
			return fmt.Errorf("link payment: %w", err)
		}
		p.RegistrationID = &reg.ID

		if p.Status.IsSuccess() && reg.Status == domain.RegistrationPending {
			if _, err := s.transition(ctx, tx, event, reg, domain.RegistrationConfirmed, domain.ActionPaymentSettled, domain.SystemActor); err != nil {
				return err
			}
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// OnPaymentStatusChange records a provider status update. A settled payment
// confirms its PENDING registration; a failed or cancelled one cancels the
// registration on behalf of the system, which frees the seat for the queue.
// Repeating the current status is a no-op.
func (s *paymentService) OnPaymentStatusChange(ctx context.Context, paymentID string, status domain.PaymentStatus) (*domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := domain.ParsePaymentStatus(string(status)); err != nil {
		return nil, err
	}

	var payment *domain.Payment
	err := s.inTx(ctx, "payment_status", func(ctx context.Context, tx *txn) error {
		p, err := tx.repos.Payments.GetByID(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("get payment: %w", err)
		}
		var (
			event *domain.Event
			reg   *domain.Registration
		)
		if p.RegistrationID != nil {
			if event, reg, err = lockRegistration(ctx, tx, *p.RegistrationID); err != nil {
				return err
			}
		}
		if p, err = tx.repos.Payments.LockByID(ctx, paymentID); err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}
		if p.Status == status {
			payment = p
			return nil
		}

		previous := p.Status
		if p.Status, err = p.Status.Transition(status); err != nil {
			return err
		}
		p.UpdatedAt = tx.now
		if status.IsSuccess() {
			paidAt := tx.now
			p.PaidAt = &paidAt
		}
		if err := tx.repos.Payments.UpdateStatus(ctx, p); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		details := map[string]any{
			"from": string(previous),
			"to":   string(status),
		}
		if reg != nil {
			details["registration_status"] = string(reg.Status)
			if status.IsSuccess() && reg.Status.Terminal() {
				details["settled_without_seat"] = true
				s.log.Warn("payment settled for a registration without a seat",
					"payment_id", p.ID, "registration_id", reg.ID, "registration_status", reg.Status)
			}
		}
		if err := audit(ctx, tx.repos, tx.now, "payment_status_changed", "payment", p.ID, domain.SystemActor, details); err != nil {
			return err
		}

		if reg != nil {
			switch {
			case status.IsSuccess() && reg.Status == domain.RegistrationPending:
				_, err = s.transition(ctx, tx, event, reg, domain.RegistrationConfirmed, domain.ActionPaymentSettled, domain.SystemActor)
			case status.IsFailure() && reg.Status.HoldsSeat():
				_, err = s.transition(ctx, tx, event, reg, domain.RegistrationCancelled, domain.ActionPaymentFailed, domain.SystemActor)
			}
			if err != nil {
				return err
			}
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.PaymentStatusChanged(string(status))
	return payment, nil
}
