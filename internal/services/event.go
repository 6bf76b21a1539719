package services

import (
	"context"
	"fmt"
	"strings"

	"eventregistry/internal/domain"
)

type eventService struct {
	*core
}

func NewEventService(d Deps) domain.EventService {
	return &eventService{core: newCore(d)}
}

// CreateEvent stores a new event managed by actorID. Only managers and admins
// may create events.
func (s *eventService) CreateEvent(ctx context.Context, actorID string, in domain.CreateEventInput) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validateEventInput(in); err != nil {
		return nil, err
	}

	var event *domain.Event
	err := s.inTx(ctx, "create_event", func(ctx context.Context, tx *txn) error {
		roles, err := tx.repos.Roles.ListActiveByUserID(ctx, actorID, tx.now)
		if err != nil {
			return fmt.Errorf("list roles: %w", err)
		}
		if !domain.HasRole(roles, domain.RoleManager, domain.RoleAdmin) {
			return domain.ErrForbidden
		}

		e := domain.NewEvent(strings.TrimSpace(in.Title), in.StartsAt, in.EndsAt, in.Capacity, actorID, tx.now)
		e.Description = in.Description
		e.Category = in.Category
		e.RequiresPayment = in.RequiresPayment
		e.PriceCents = in.PriceCents
		e.Currency = strings.ToUpper(in.Currency)
		if err := tx.repos.Events.Create(ctx, e); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		if err := audit(ctx, tx.repos, tx.now, "event_created", "event", e.ID, actorID, map[string]any{
			"title":    e.Title,
			"capacity": e.Capacity.String(),
		}); err != nil {
			return err
		}
		event = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func validateEventInput(in domain.CreateEventInput) error {
	var problems []string
	if strings.TrimSpace(in.Title) == "" {
		problems = append(problems, "title is required")
	}
	if in.StartsAt.IsZero() || in.EndsAt.IsZero() {
		problems = append(problems, "starts_at and ends_at are required")
	} else if in.EndsAt.Before(in.StartsAt) {
		problems = append(problems, "ends_at must not be before starts_at")
	}
	if in.PriceCents < 0 {
		problems = append(problems, "price_cents must not be negative")
	}
	if in.RequiresPayment && (in.PriceCents == 0 || in.Currency == "") {
		problems = append(problems, "paid events need price_cents and currency")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.EventWithSlots, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	repos := s.store.Repos()
	event, err := repos.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	occupied, err := repos.Registrations.CountActiveByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count active registrations: %w", err)
	}
	waiting, err := repos.Waitlist.CountByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count waiting list: %w", err)
	}
	return &domain.EventWithSlots{
		Event:          event,
		AvailableSlots: event.Capacity.Free(occupied),
		WaitlistLength: waiting,
	}, nil
}

func (s *eventService) ListEvents(ctx context.Context, params domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, total, err := s.store.Repos().Events.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	return events, total, nil
}

// UpdateCapacity changes the seat limit. Lowering it below the seats already
// held fails with ErrCapacityExceeded; raising it promotes one waiting user per
// added seat, and lifting the limit drains the queue. The registrations created
// by promotion are returned.
func (s *eventService) UpdateCapacity(ctx context.Context, eventID, actorID string, capacity domain.Capacity) (*domain.Event, []*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var (
		event    *domain.Event
		promoted []*domain.Registration
	)
	err := s.inTx(ctx, "update_capacity", func(ctx context.Context, tx *txn) error {
		e, err := tx.repos.Events.LockByID(ctx, eventID)
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}
		if err := s.requireManage(ctx, tx.repos, actorID, e); err != nil {
			return err
		}
		occupied, err := tx.repos.Registrations.CountActiveByEvent(ctx, eventID)
		if err != nil {
			return fmt.Errorf("count active registrations: %w", err)
		}
		if limit, bounded := capacity.Limit(); bounded && limit < occupied {
			return fmt.Errorf("%w: %d seats are held", domain.ErrCapacityExceeded, occupied)
		}

		previous := e.Capacity
		if err := tx.repos.Events.UpdateCapacity(ctx, eventID, capacity, tx.now); err != nil {
			return fmt.Errorf("update capacity: %w", err)
		}
		e.Capacity = capacity
		e.UpdatedAt = tx.now

		added, unlimited := previous.Grows(capacity)
		if unlimited {
			added = -1
		}
		promotions, err := s.promoteUpTo(ctx, tx, e, added, actorID)
		if err != nil {
			return err
		}
		regs := make([]*domain.Registration, 0, len(promotions))
		for _, p := range promotions {
			regs = append(regs, p.Registration)
		}
		if err := audit(ctx, tx.repos, tx.now, "capacity_changed", "event", eventID, actorID, map[string]any{
			"from":     previous.String(),
			"to":       capacity.String(),
			"promoted": len(regs),
		}); err != nil {
			return err
		}
		event, promoted = e, regs
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return event, promoted, nil
}

// DeleteEvent removes an event that never had registrations. Its waiting list goes with it.
func (s *eventService) DeleteEvent(ctx context.Context, eventID, actorID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.inTx(ctx, "delete_event", func(ctx context.Context, tx *txn) error {
		e, err := tx.repos.Events.LockByID(ctx, eventID)
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}
		if err := s.requireManage(ctx, tx.repos, actorID, e); err != nil {
			return err
		}
		n, err := tx.repos.Registrations.CountByEvent(ctx, eventID)
		if err != nil {
			return fmt.Errorf("count registrations: %w", err)
		}
		if n > 0 {
			return domain.ErrEventHasRegistrations
		}
		if err := tx.repos.Events.Delete(ctx, eventID); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		return audit(ctx, tx.repos, tx.now, "event_deleted", "event", eventID, actorID, nil)
	})
}

// AvailableSlots returns capacity minus the PENDING and CONFIRMED registrations.
func (s *eventService) AvailableSlots(ctx context.Context, eventID string) (domain.Slots, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	repos := s.store.Repos()
	event, err := repos.Events.GetByID(ctx, eventID)
	if err != nil {
		return domain.Slots{}, fmt.Errorf("get event: %w", err)
	}
	occupied, err := repos.Registrations.CountActiveByEvent(ctx, eventID)
	if err != nil {
		return domain.Slots{}, fmt.Errorf("count active registrations: %w", err)
	}
	return event.Capacity.Free(occupied), nil
}
