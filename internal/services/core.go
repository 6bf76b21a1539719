package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"eventregistry/internal/domain"
	"eventregistry/internal/obs"
)

const defaultTimeout = 10 * time.Second

// Deps carries what every service needs. Only Store is required.
type Deps struct {
	Store    domain.Store
	Notifier domain.Notifier
	Clock    domain.Clock
	Logger   *slog.Logger
	Metrics  *obs.Metrics
	Timeout  time.Duration
	// Backoff builds the retry policy for transient persistence errors.
	// The default retries once after a short exponential delay.
	Backoff func() backoff.BackOff
}

type core struct {
	store          domain.Store
	notifier       domain.Notifier
	clock          domain.Clock
	log            *slog.Logger
	metrics        *obs.Metrics
	contextTimeout time.Duration
	buildBackoff   func() backoff.BackOff
}

func newCore(d Deps) *core {
	c := &core{
		store:          d.Store,
		notifier:       d.Notifier,
		clock:          d.Clock,
		log:            d.Logger,
		metrics:        d.Metrics,
		contextTimeout: d.Timeout,
		buildBackoff:   d.Backoff,
	}
	if c.clock == nil {
		c.clock = domain.SystemClock{}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.contextTimeout <= 0 {
		c.contextTimeout = defaultTimeout
	}
	if c.buildBackoff == nil {
		c.buildBackoff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxElapsedTime = 2 * time.Second
			return backoff.WithMaxRetries(b, 1)
		}
	}
	return c
}

// txn is the state of one transaction attempt.
type txn struct {
	repos         domain.Repositories
	now           time.Time
	notifications []domain.Notification
}

func (t *txn) notify(kind domain.NotificationType, reg *domain.Registration) {
	t.notifications = append(t.notifications, domain.Notification{
		Type:           kind,
		UserID:         reg.UserID,
		EventID:        reg.EventID,
		RegistrationID: reg.ID,
		OccurredAt:     t.now,
	})
}

// inTx runs fn in a transaction. A transient persistence error reruns the
// whole transaction according to the backoff policy; any other error is
// returned as is. Notifications queued by the successful attempt are sent
// after commit.
func (c *core) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx *txn) error) error {
	var committed *txn
	attempt := func() error {
		tx := &txn{now: c.clock.Now()}
		err := c.store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
			tx.repos = repos
			return fn(ctx, tx)
		})
		if err != nil {
			if domain.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		committed = tx
		return nil
	}
	onRetry := func(err error, wait time.Duration) {
		c.metrics.TxRetried(op)
		c.log.Warn("retrying transaction", "op", op, "error", err, "wait", wait)
	}
	if err := backoff.RetryNotify(attempt, backoff.WithContext(c.buildBackoff(), ctx), onRetry); err != nil {
		return err
	}
	c.dispatch(ctx, committed.notifications)
	return nil
}

// dispatch delivers notifications. Failures are logged, never returned: the
// transition they describe has already committed.
func (c *core) dispatch(ctx context.Context, notes []domain.Notification) {
	if c.notifier == nil {
		return
	}
	for _, n := range notes {
		if err := c.notifier.Notify(ctx, n); err != nil {
			c.metrics.Notified(string(n.Type), "failed")
			c.log.Error("notification failed",
				"type", n.Type, "user_id", n.UserID, "event_id", n.EventID, "error", err)
			continue
		}
		c.metrics.Notified(string(n.Type), "sent")
	}
}

// canManage reports whether actorID may administer the event: its manager or an admin.
func (c *core) canManage(ctx context.Context, repos domain.Repositories, actorID string, event *domain.Event) (bool, error) {
	if actorID == "" {
		return false, nil
	}
	if actorID == event.ManagerID {
		return true, nil
	}
	roles, err := repos.Roles.ListActiveByUserID(ctx, actorID, c.clock.Now())
	if err != nil {
		return false, fmt.Errorf("list roles: %w", err)
	}
	return domain.HasRole(roles, domain.RoleAdmin), nil
}

func (c *core) requireManage(ctx context.Context, repos domain.Repositories, actorID string, event *domain.Event) error {
	ok, err := c.canManage(ctx, repos, actorID, event)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}

// lockRegistration locks the registration's event and then the registration
// itself, keeping the event-first lock order used by every seat-changing
// operation.
func lockRegistration(ctx context.Context, tx *txn, registrationID string) (*domain.Event, *domain.Registration, error) {
	reg, err := tx.repos.Registrations.GetByID(ctx, registrationID)
	if err != nil {
		return nil, nil, fmt.Errorf("get registration: %w", err)
	}
	event, err := tx.repos.Events.LockByID(ctx, reg.EventID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock event: %w", err)
	}
	reg, err = tx.repos.Registrations.LockByID(ctx, registrationID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock registration: %w", err)
	}
	return event, reg, nil
}

// freeSlots counts the seats left on a locked event.
func freeSlots(ctx context.Context, tx *txn, event *domain.Event) (domain.Slots, error) {
	occupied, err := tx.repos.Registrations.CountActiveByEvent(ctx, event.ID)
	if err != nil {
		return domain.Slots{}, fmt.Errorf("count active registrations: %w", err)
	}
	return event.Capacity.Free(occupied), nil
}

// promoteNext admits the earliest waiting user into a free seat of the locked
// event. Entries whose user already holds an active registration are dropped
// and the next entry is tried. It returns nil when the queue is empty, even on
// a full event, and ErrCapacityExceeded when someone waits but no seat is free.
func (c *core) promoteNext(ctx context.Context, tx *txn, event *domain.Event, performedBy string) (*domain.Promotion, error) {
	for {
		entry, err := tx.repos.Waitlist.Head(ctx, event.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("waiting list head: %w", err)
		}
		slots, err := freeSlots(ctx, tx, event)
		if err != nil {
			return nil, err
		}
		if !slots.HasRoom() {
			return nil, domain.ErrCapacityExceeded
		}
		if err := tx.repos.Waitlist.Delete(ctx, entry.ID); err != nil {
			return nil, fmt.Errorf("delete waiting list entry: %w", err)
		}

		reg := domain.NewRegistration(event.ID, entry.UserID, domain.InitialRegistrationStatus(event.RequiresPayment), tx.now)
		err = tx.repos.Registrations.Create(ctx, reg)
		if errors.Is(err, domain.ErrDuplicateRegistration) {
			c.log.Warn("dropping waiting list entry of registered user", "event_id", event.ID, "user_id", entry.UserID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create registration: %w", err)
		}
		if err := appendHistory(ctx, tx, reg, nil, domain.ActionPromoted, performedBy); err != nil {
			return nil, err
		}

		tx.notify(domain.NotificationWaitlistPromoted, reg)
		if reg.Status == domain.RegistrationConfirmed {
			tx.notify(domain.NotificationRegistrationConfirmed, reg)
		}
		c.metrics.Promoted()
		return &domain.Promotion{Entry: entry, Registration: reg}, nil
	}
}

// fill promotes waiting users until the event is full or the queue is empty.
func (c *core) fill(ctx context.Context, tx *txn, event *domain.Event, performedBy string) ([]*domain.Promotion, error) {
	return c.promoteUpTo(ctx, tx, event, -1, performedBy)
}

// promoteUpTo promotes at most limit waiting users, stopping early when the
// event is full or the queue is empty. A negative limit only stops there.
func (c *core) promoteUpTo(ctx context.Context, tx *txn, event *domain.Event, limit int, performedBy string) ([]*domain.Promotion, error) {
	var promoted []*domain.Promotion
	for limit < 0 || len(promoted) < limit {
		p, err := c.promoteNext(ctx, tx, event, performedBy)
		if errors.Is(err, domain.ErrCapacityExceeded) || (err == nil && p == nil) {
			return promoted, nil
		}
		if err != nil {
			return promoted, err
		}
		promoted = append(promoted, p)
	}
	return promoted, nil
}

// enqueue appends the user to the locked event's waiting list.
func enqueue(ctx context.Context, tx *txn, event *domain.Event, userID string) (*domain.WaitlistEntry, int, error) {
	entry := domain.NewWaitlistEntry(event.ID, userID, tx.now)
	if err := tx.repos.Waitlist.Create(ctx, entry); err != nil {
		return nil, 0, fmt.Errorf("enqueue: %w", err)
	}
	pos, err := tx.repos.Waitlist.Position(ctx, entry)
	if err != nil {
		return nil, 0, fmt.Errorf("waiting list position: %w", err)
	}
	return entry, pos, nil
}

// transition applies next to a locked registration, persists it and records
// history. When the previous status held a seat and the new one does not, the
// freed seat goes to the head of the waiting list.
func (c *core) transition(ctx context.Context, tx *txn, event *domain.Event, reg *domain.Registration,
	next domain.RegistrationStatus, action, performedBy string) (*domain.Promotion, error) {
	from := reg.Status
	if err := reg.Apply(next, tx.now); err != nil {
		return nil, err
	}
	if err := tx.repos.Registrations.UpdateStatus(ctx, reg); err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}
	if err := appendHistory(ctx, tx, reg, &from, action, performedBy); err != nil {
		return nil, err
	}
	c.metrics.Transition(string(next))
	if next == domain.RegistrationConfirmed {
		tx.notify(domain.NotificationRegistrationConfirmed, reg)
	}
	if !from.HoldsSeat() || next.HoldsSeat() {
		return nil, nil
	}
	if err := voidPendingPayment(ctx, tx, reg); err != nil {
		return nil, err
	}
	p, err := c.promoteNext(ctx, tx, event, domain.SystemActor)
	if errors.Is(err, domain.ErrCapacityExceeded) {
		// Still full; the freed seat was over the limit.
		return nil, nil
	}
	return p, err
}

// voidPendingPayment cancels the outstanding payment of a registration that
// gave up its seat, so a late settlement cannot buy a seat nobody holds.
func voidPendingPayment(ctx context.Context, tx *txn, reg *domain.Registration) error {
	p, err := tx.repos.Payments.GetByRegistrationID(ctx, reg.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get payment: %w", err)
	}
	if p, err = tx.repos.Payments.LockByID(ctx, p.ID); err != nil {
		return fmt.Errorf("lock payment: %w", err)
	}
	if p.Status != domain.PaymentPending {
		return nil
	}
	p.Status = domain.PaymentCancelled
	p.UpdatedAt = tx.now
	if err := tx.repos.Payments.UpdateStatus(ctx, p); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return audit(ctx, tx.repos, tx.now, "payment_status_changed", "payment", p.ID, domain.SystemActor, map[string]any{
		"from":                string(domain.PaymentPending),
		"to":                  string(domain.PaymentCancelled),
		"registration_status": string(reg.Status),
	})
}

func appendHistory(ctx context.Context, tx *txn, reg *domain.Registration, from *domain.RegistrationStatus, action, performedBy string) error {
	h := &domain.RegistrationHistory{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		FromStatus:     from,
		ToStatus:       reg.Status,
		Action:         action,
		CreatedAt:      tx.now,
	}
	if performedBy != "" {
		h.PerformedBy = &performedBy
	}
	if err := tx.repos.History.Append(ctx, h); err != nil {
		return fmt.Errorf("append registration history: %w", err)
	}
	return nil
}

func audit(ctx context.Context, repos domain.Repositories, now time.Time, action, entityType, entityID, actorID string, details map[string]any) error {
	entry := &domain.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		Timestamp:  now,
	}
	if actorID != "" {
		entry.ActorID = &actorID
	}
	if err := repos.AuditLogs.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}
