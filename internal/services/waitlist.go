package services

import (
	"context"
	"fmt"

	"eventregistry/internal/domain"
)

type waitlistService struct {
	*core
}

func NewWaitlistService(d Deps) domain.WaitlistService {
	return &waitlistService{core: newCore(d)}
}

// Enqueue appends the user to the event's waiting list and returns the entry
// with its 1-based position.
func (s *waitlistService) Enqueue(ctx context.Context, userID, eventID string) (*domain.WaitlistEntry, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var (
		entry *domain.WaitlistEntry
		pos   int
	)
	err := s.inTx(ctx, "enqueue", func(ctx context.Context, tx *txn) error {
		event, err := tx.repos.Events.LockByID(ctx, eventID)
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}
		if err := ensureNotRegistered(ctx, tx, eventID, userID, false); err != nil {
			return err
		}
		entry, pos, err = enqueue(ctx, tx, event, userID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return entry, pos, nil
}

// PromoteNext hands one free seat to the head of the queue.
func (s *waitlistService) PromoteNext(ctx context.Context, eventID, actorID string) (*domain.Promotion, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var promotion *domain.Promotion
	err := s.inTx(ctx, "promote_next", func(ctx context.Context, tx *txn) error {
		event, err := tx.repos.Events.LockByID(ctx, eventID)
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}
		if actorID != domain.SystemActor {
			if err := s.requireManage(ctx, tx.repos, actorID, event); err != nil {
				return err
			}
		}
		promotion, err = s.promoteNext(ctx, tx, event, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return promotion, nil
}

func (s *waitlistService) Leave(ctx context.Context, userID, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.inTx(ctx, "leave_waitlist", func(ctx context.Context, tx *txn) error {
		if _, err := tx.repos.Events.LockByID(ctx, eventID); err != nil {
			return fmt.Errorf("lock event: %w", err)
		}
		entry, err := tx.repos.Waitlist.GetByEventAndUser(ctx, eventID, userID)
		if err != nil {
			return fmt.Errorf("get waiting list entry: %w", err)
		}
		if err := tx.repos.Waitlist.Delete(ctx, entry.ID); err != nil {
			return fmt.Errorf("delete waiting list entry: %w", err)
		}
		return nil
	})
}

func (s *waitlistService) Position(ctx context.Context, userID, eventID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	repos := s.store.Repos()
	entry, err := repos.Waitlist.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return 0, fmt.Errorf("get waiting list entry: %w", err)
	}
	pos, err := repos.Waitlist.Position(ctx, entry)
	if err != nil {
		return 0, fmt.Errorf("waiting list position: %w", err)
	}
	return pos, nil
}

func (s *waitlistService) List(ctx context.Context, eventID, actorID string, params domain.PaginationParams) ([]*domain.WaitlistEntry, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	repos := s.store.Repos()
	event, err := repos.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, 0, fmt.Errorf("get event: %w", err)
	}
	if err := s.requireManage(ctx, repos, actorID, event); err != nil {
		return nil, 0, err
	}
	total, err := repos.Waitlist.CountByEvent(ctx, eventID)
	if err != nil {
		return nil, 0, fmt.Errorf("count waiting list: %w", err)
	}
	entries, err := repos.Waitlist.ListByEvent(ctx, eventID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list waiting list: %w", err)
	}
	return entries, total, nil
}
