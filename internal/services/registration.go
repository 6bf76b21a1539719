package services

import (
	"context"
	"errors"
	"fmt"

	"eventregistry/internal/domain"
)

type registrationService struct {
	*core
}

func NewRegistrationService(d Deps) domain.RegistrationService {
	return &registrationService{core: newCore(d)}
}

// Register admits the user into a free seat or queues them. Waiting users are
// served before the new registrant.
func (s *registrationService) Register(ctx context.Context, userID, eventID string) (*domain.RegistrationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", domain.ErrInvalidInput)
	}

	var result *domain.RegistrationResult
	err := s.inTx(ctx, "register", func(ctx context.Context, tx *txn) error {
		event, err := tx.repos.Events.LockByID(ctx, eventID)
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}
		if err := ensureNotRegistered(ctx, tx, eventID, userID, true); err != nil {
			return err
		}
		if _, err := s.fill(ctx, tx, event, domain.SystemActor); err != nil {
			return err
		}

		slots, err := freeSlots(ctx, tx, event)
		if err != nil {
			return err
		}
		if !slots.HasRoom() {
			entry, pos, err := enqueue(ctx, tx, event, userID)
			if err != nil {
				return err
			}
			result = &domain.RegistrationResult{Outcome: domain.OutcomeWaitlisted, WaitlistEntry: entry, Position: pos}
			return nil
		}

		reg := domain.NewRegistration(eventID, userID, domain.InitialRegistrationStatus(event.RequiresPayment), tx.now)
		if err := tx.repos.Registrations.Create(ctx, reg); err != nil {
			return fmt.Errorf("create registration: %w", err)
		}
		if err := appendHistory(ctx, tx, reg, nil, domain.ActionRegistered, userID); err != nil {
			return err
		}
		if reg.Status == domain.RegistrationConfirmed {
			tx.notify(domain.NotificationRegistrationConfirmed, reg)
		}
		result = &domain.RegistrationResult{Outcome: domain.OutcomeRegistered, Registration: reg}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Registered(string(result.Outcome))
	return result, nil
}

// ensureNotRegistered fails with ErrDuplicateRegistration when the user holds
// an active registration, or, if checkQueue is set, a waiting-list entry.
func ensureNotRegistered(ctx context.Context, tx *txn, eventID, userID string, checkQueue bool) error {
	_, err := tx.repos.Registrations.GetActiveByEventAndUser(ctx, eventID, userID)
	switch {
	case err == nil:
		return domain.ErrDuplicateRegistration
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("get active registration: %w", err)
	}
	if !checkQueue {
		return nil
	}
	_, err = tx.repos.Waitlist.GetByEventAndUser(ctx, eventID, userID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: already on the waiting list", domain.ErrDuplicateRegistration)
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("get waiting list entry: %w", err)
	}
	return nil
}

// ConfirmPayment moves a PENDING registration to CONFIRMED once its linked
// payment has settled.
func (s *registrationService) ConfirmPayment(ctx context.Context, registrationID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var reg *domain.Registration
	err := s.inTx(ctx, "confirm_payment", func(ctx context.Context, tx *txn) error {
		event, locked, err := lockRegistration(ctx, tx, registrationID)
		if err != nil {
			return err
		}
		if !locked.Status.CanTransition(domain.RegistrationConfirmed) {
			_, err := locked.Status.Transition(domain.RegistrationConfirmed)
			return err
		}
		payment, err := tx.repos.Payments.GetByRegistrationID(ctx, registrationID)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: no payment linked", domain.ErrPaymentNotSettled)
		}
		if err != nil {
			return fmt.Errorf("get payment: %w", err)
		}
		if !payment.Status.IsSuccess() {
			return fmt.Errorf("%w: payment is %s", domain.ErrPaymentNotSettled, payment.Status)
		}
		if _, err := s.transition(ctx, tx, event, locked, domain.RegistrationConfirmed, domain.ActionPaymentSettled, domain.SystemActor); err != nil {
			return err
		}
		reg = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Cancel releases the registration's seat. The registrant, the event manager
// and admins may cancel.
func (s *registrationService) Cancel(ctx context.Context, registrationID, actorID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var reg *domain.Registration
	err := s.inTx(ctx, "cancel", func(ctx context.Context, tx *txn) error {
		event, locked, err := lockRegistration(ctx, tx, registrationID)
		if err != nil {
			return err
		}
		if actorID != locked.UserID {
			if err := s.requireManage(ctx, tx.repos, actorID, event); err != nil {
				return err
			}
		}
		if _, err := s.transition(ctx, tx, event, locked, domain.RegistrationCancelled, domain.ActionCancelled, actorID); err != nil {
			return err
		}
		reg = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Reject turns down a PENDING registration. Only the event manager and admins may reject.
func (s *registrationService) Reject(ctx context.Context, registrationID, actorID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var reg *domain.Registration
	err := s.inTx(ctx, "reject", func(ctx context.Context, tx *txn) error {
		event, locked, err := lockRegistration(ctx, tx, registrationID)
		if err != nil {
			return err
		}
		if err := s.requireManage(ctx, tx.repos, actorID, event); err != nil {
			return err
		}
		if _, err := s.transition(ctx, tx, event, locked, domain.RegistrationRejected, domain.ActionRejected, actorID); err != nil {
			return err
		}
		reg = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *registrationService) Get(ctx context.Context, registrationID, actorID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	repos := s.store.Repos()
	reg, err := repos.Registrations.GetByID(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if reg.UserID == actorID {
		return reg, nil
	}
	event, err := repos.Events.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if err := s.requireManage(ctx, repos, actorID, event); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *registrationService) ListByUser(ctx context.Context, userID string) ([]*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	regs, err := s.store.Repos().Registrations.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// ListByEvent lists the event's registrations, optionally by status. Only the
// event manager and admins may list.
func (s *registrationService) ListByEvent(ctx context.Context, eventID, actorID string, status domain.RegistrationStatus) ([]*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	repos := s.store.Repos()
	event, err := repos.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if err := s.requireManage(ctx, repos, actorID, event); err != nil {
		return nil, err
	}
	regs, err := repos.Registrations.ListByEventID(ctx, eventID, status)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}
