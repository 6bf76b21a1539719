package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"eventregistry/internal/domain"
)

// memState is the whole database of memStore. Values are stored by value so
// a snapshot is a shallow copy of every map.
type memState struct {
	events    map[string]domain.Event
	regs      map[string]domain.Registration
	waitlist  map[string]domain.WaitlistEntry
	payments  map[string]domain.Payment
	roles     map[string][]string
	history   []domain.RegistrationHistory
	audit     []domain.AuditLog
	notifLogs []domain.NotificationLog
	nextID    int
	nextSeq   int64
}

func (st *memState) clone() *memState {
	c := *st
	c.events = make(map[string]domain.Event, len(st.events))
	for k, v := range st.events {
		c.events[k] = v
	}
	c.regs = make(map[string]domain.Registration, len(st.regs))
	for k, v := range st.regs {
		c.regs[k] = v
	}
	c.waitlist = make(map[string]domain.WaitlistEntry, len(st.waitlist))
	for k, v := range st.waitlist {
		c.waitlist[k] = v
	}
	c.payments = make(map[string]domain.Payment, len(st.payments))
	for k, v := range st.payments {
		c.payments[k] = v
	}
	c.roles = make(map[string][]string, len(st.roles))
	for k, v := range st.roles {
		c.roles[k] = append([]string(nil), v...)
	}
	c.history = append([]domain.RegistrationHistory(nil), st.history...)
	c.audit = append([]domain.AuditLog(nil), st.audit...)
	c.notifLogs = append([]domain.NotificationLog(nil), st.notifLogs...)
	return &c
}

func (st *memState) id(prefix string) string {
	st.nextID++
	return fmt.Sprintf("%s-%d", prefix, st.nextID)
}

// memStore is an in-memory domain.Store. A transaction holds the store mutex
// for its whole duration, which gives the same per-event serialisation as the
// row lock in PostgreSQL, and restores a snapshot on rollback.
type memStore struct {
	mu sync.Mutex
	st *memState

	// txErrs are returned by successive WithinTx calls before fn runs.
	txErrs []error
	// pingErr and purgeErrs drive the cleanup repository.
	pingErr   error
	purgeErrs map[domain.CleanupCategory]error
	purged    map[domain.CleanupCategory]time.Time
	txCount   int
	// auditDeadlines records, per audit append, whether its context had a deadline.
	auditDeadlines map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		st: &memState{
			events:   make(map[string]domain.Event),
			regs:     make(map[string]domain.Registration),
			waitlist: make(map[string]domain.WaitlistEntry),
			payments: make(map[string]domain.Payment),
			roles:    make(map[string][]string),
		},
		purgeErrs: make(map[domain.CleanupCategory]error),
		purged:    make(map[domain.CleanupCategory]time.Time),

		auditDeadlines: make(map[string]bool),
	}
}

func (s *memStore) Repos() domain.Repositories {
	return s.repos(false)
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++
	if len(s.txErrs) > 0 {
		err := s.txErrs[0]
		s.txErrs = s.txErrs[1:]
		return err
	}
	snapshot := s.st.clone()
	if err := fn(ctx, s.repos(true)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *memStore) repos(inTx bool) domain.Repositories {
	a := &memAccess{s: s, inTx: inTx}
	return domain.Repositories{
		Events:           memEvents{a},
		Registrations:    memRegs{a},
		Waitlist:         memWaitlist{a},
		Payments:         memPayments{a},
		History:          memHistory{a},
		AuditLogs:        memAudit{a},
		Users:            memUsers{a},
		Roles:            memRoles{a},
		NotificationLogs: memNotifLogs{a},
		Cleanup:          memCleanup{a},
	}
}

// memAccess takes the store mutex for calls made outside a transaction.
type memAccess struct {
	s    *memStore
	inTx bool
}

func (a *memAccess) with(fn func(st *memState) error) error {
	if !a.inTx {
		a.s.mu.Lock()
		defer a.s.mu.Unlock()
	}
	return fn(a.s.st)
}

// seed helpers used by tests outside any transaction.

func (s *memStore) addEvent(e domain.Event) *domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = s.st.id("ev")
	}
	s.st.events[e.ID] = e
	return &e
}

func (s *memStore) grant(userID string, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.roles[userID] = append(s.st.roles[userID], roles...)
}

func (s *memStore) addPayment(p domain.Payment) *domain.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = s.st.id("pay")
	}
	s.st.payments[p.ID] = p
	return &p
}

func (s *memStore) registration(id string) domain.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.regs[id]
}

func (s *memStore) activeRegistration(eventID, userID string) (domain.Registration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.st.regs {
		if r.EventID == eventID && r.UserID == userID && r.Status.HoldsSeat() {
			return r, true
		}
	}
	return domain.Registration{}, false
}

func (s *memStore) queue(eventID string) []domain.WaitlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedQueue(s.st, eventID)
}

func (s *memStore) countByStatus(eventID string, status domain.RegistrationStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.st.regs {
		if r.EventID == eventID && r.Status == status {
			n++
		}
	}
	return n
}

func (s *memStore) historyFor(regID string) []domain.RegistrationHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RegistrationHistory
	for _, h := range s.st.history {
		if h.RegistrationID == regID {
			out = append(out, h)
		}
	}
	return out
}

func (s *memStore) payment(id string) domain.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.payments[id]
}

func (s *memStore) auditFor(action string) []domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditLog
	for _, a := range s.st.audit {
		if a.Action == action {
			out = append(out, a)
		}
	}
	return out
}

func (s *memStore) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, a := range s.st.audit {
		out = append(out, a.Action)
	}
	return out
}

func sortedQueue(st *memState, eventID string) []domain.WaitlistEntry {
	var out []domain.WaitlistEntry
	for _, e := range st.waitlist {
		if e.EventID == eventID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

type memEvents struct{ *memAccess }

func (r memEvents) Create(ctx context.Context, e *domain.Event) error {
	return r.with(func(st *memState) error {
		e.ID = st.id("ev")
		st.events[e.ID] = *e
		return nil
	})
}

func (r memEvents) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var out *domain.Event
	err := r.with(func(st *memState) error {
		e, ok := st.events[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &e
		return nil
	})
	return out, err
}

func (r memEvents) LockByID(ctx context.Context, id string) (*domain.Event, error) {
	return r.GetByID(ctx, id)
}

func (r memEvents) List(ctx context.Context, params domain.PaginationParams) ([]*domain.Event, int, error) {
	var out []*domain.Event
	var total int
	err := r.with(func(st *memState) error {
		all := make([]domain.Event, 0, len(st.events))
		for _, e := range st.events {
			all = append(all, e)
		}
		sort.Slice(all, func(i, j int) bool {
			if !all[i].StartsAt.Equal(all[j].StartsAt) {
				return all[i].StartsAt.Before(all[j].StartsAt)
			}
			return all[i].ID < all[j].ID
		})
		total = len(all)
		out = make([]*domain.Event, 0)
		for i := params.Offset(); i < len(all) && len(out) < params.Limit(); i++ {
			e := all[i]
			out = append(out, &e)
		}
		return nil
	})
	return out, total, err
}

func (r memEvents) UpdateCapacity(ctx context.Context, id string, capacity domain.Capacity, updatedAt time.Time) error {
	return r.with(func(st *memState) error {
		e, ok := st.events[id]
		if !ok {
			return domain.ErrNotFound
		}
		e.Capacity = capacity
		e.UpdatedAt = updatedAt
		st.events[id] = e
		return nil
	})
}

func (r memEvents) Delete(ctx context.Context, id string) error {
	return r.with(func(st *memState) error {
		if _, ok := st.events[id]; !ok {
			return domain.ErrNotFound
		}
		delete(st.events, id)
		for k, e := range st.waitlist {
			if e.EventID == id {
				delete(st.waitlist, k)
			}
		}
		return nil
	})
}

type memRegs struct{ *memAccess }

func (r memRegs) Create(ctx context.Context, reg *domain.Registration) error {
	return r.with(func(st *memState) error {
		for _, existing := range st.regs {
			if existing.EventID == reg.EventID && existing.UserID == reg.UserID && existing.Status.HoldsSeat() {
				return domain.ErrDuplicateRegistration
			}
		}
		reg.ID = st.id("reg")
		st.regs[reg.ID] = *reg
		return nil
	})
}

func (r memRegs) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	var out *domain.Registration
	err := r.with(func(st *memState) error {
		reg, ok := st.regs[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &reg
		return nil
	})
	return out, err
}

func (r memRegs) LockByID(ctx context.Context, id string) (*domain.Registration, error) {
	return r.GetByID(ctx, id)
}

func (r memRegs) GetActiveByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	var out *domain.Registration
	err := r.with(func(st *memState) error {
		for _, reg := range st.regs {
			if reg.EventID == eventID && reg.UserID == userID && reg.Status.HoldsSeat() {
				reg := reg
				out = &reg
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r memRegs) count(eventID string, match func(domain.RegistrationStatus) bool) (int, error) {
	n := 0
	err := r.with(func(st *memState) error {
		for _, reg := range st.regs {
			if reg.EventID == eventID && match(reg.Status) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memRegs) CountActiveByEvent(ctx context.Context, eventID string) (int, error) {
	return r.count(eventID, domain.RegistrationStatus.HoldsSeat)
}

func (r memRegs) CountByEvent(ctx context.Context, eventID string) (int, error) {
	return r.count(eventID, func(domain.RegistrationStatus) bool { return true })
}

func (r memRegs) UpdateStatus(ctx context.Context, reg *domain.Registration) error {
	return r.with(func(st *memState) error {
		if _, ok := st.regs[reg.ID]; !ok {
			return domain.ErrNotFound
		}
		st.regs[reg.ID] = *reg
		return nil
	})
}

func (r memRegs) list(match func(domain.Registration) bool) ([]*domain.Registration, error) {
	out := make([]*domain.Registration, 0)
	err := r.with(func(st *memState) error {
		for _, reg := range st.regs {
			if match(reg) {
				reg := reg
				out = append(out, &reg)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

// ListByUserID returns the newest registration first, like the SQL repository.
func (r memRegs) ListByUserID(ctx context.Context, userID string) ([]*domain.Registration, error) {
	out, err := r.list(func(reg domain.Registration) bool { return reg.UserID == userID })
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, err
}

func (r memRegs) ListByEventID(ctx context.Context, eventID string, status domain.RegistrationStatus) ([]*domain.Registration, error) {
	return r.list(func(reg domain.Registration) bool {
		return reg.EventID == eventID && (status == "" || reg.Status == status)
	})
}

type memWaitlist struct{ *memAccess }

func (r memWaitlist) Create(ctx context.Context, entry *domain.WaitlistEntry) error {
	return r.with(func(st *memState) error {
		for _, e := range st.waitlist {
			if e.EventID == entry.EventID && e.UserID == entry.UserID {
				return domain.ErrDuplicateWaitlist
			}
		}
		entry.ID = st.id("wl")
		st.nextSeq++
		entry.Seq = st.nextSeq
		st.waitlist[entry.ID] = *entry
		return nil
	})
}

func (r memWaitlist) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.WaitlistEntry, error) {
	var out *domain.WaitlistEntry
	err := r.with(func(st *memState) error {
		for _, e := range st.waitlist {
			if e.EventID == eventID && e.UserID == userID {
				e := e
				out = &e
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r memWaitlist) Head(ctx context.Context, eventID string) (*domain.WaitlistEntry, error) {
	var out *domain.WaitlistEntry
	err := r.with(func(st *memState) error {
		q := sortedQueue(st, eventID)
		if len(q) == 0 {
			return domain.ErrNotFound
		}
		out = &q[0]
		return nil
	})
	return out, err
}

func (r memWaitlist) Delete(ctx context.Context, id string) error {
	return r.with(func(st *memState) error {
		if _, ok := st.waitlist[id]; !ok {
			return domain.ErrNotFound
		}
		delete(st.waitlist, id)
		return nil
	})
}

func (r memWaitlist) CountByEvent(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.with(func(st *memState) error {
		n = len(sortedQueue(st, eventID))
		return nil
	})
	return n, err
}

func (r memWaitlist) Position(ctx context.Context, entry *domain.WaitlistEntry) (int, error) {
	var pos int
	err := r.with(func(st *memState) error {
		for i, e := range sortedQueue(st, entry.EventID) {
			if e.ID == entry.ID {
				pos = i + 1
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return pos, err
}

func (r memWaitlist) ListByEvent(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.WaitlistEntry, error) {
	out := make([]*domain.WaitlistEntry, 0)
	err := r.with(func(st *memState) error {
		q := sortedQueue(st, eventID)
		for i := params.Offset(); i < len(q) && len(out) < params.Limit(); i++ {
			e := q[i]
			out = append(out, &e)
		}
		return nil
	})
	return out, err
}

type memPayments struct{ *memAccess }

func (r memPayments) Create(ctx context.Context, p *domain.Payment) error {
	return r.with(func(st *memState) error {
		for _, existing := range st.payments {
			if existing.VariableSymbol == p.VariableSymbol {
				return domain.ErrDuplicateVariableSymbol
			}
			if p.RegistrationID != nil && existing.RegistrationID != nil && *existing.RegistrationID == *p.RegistrationID {
				return domain.ErrPaymentAlreadyLinked
			}
		}
		p.ID = st.id("pay")
		st.payments[p.ID] = *p
		return nil
	})
}

func (r memPayments) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	var out *domain.Payment
	err := r.with(func(st *memState) error {
		p, ok := st.payments[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r memPayments) LockByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r memPayments) GetByRegistrationID(ctx context.Context, registrationID string) (*domain.Payment, error) {
	var out *domain.Payment
	err := r.with(func(st *memState) error {
		for _, p := range st.payments {
			if p.RegistrationID != nil && *p.RegistrationID == registrationID {
				p := p
				out = &p
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r memPayments) LinkRegistration(ctx context.Context, paymentID, registrationID string) error {
	return r.with(func(st *memState) error {
		p, ok := st.payments[paymentID]
		if !ok || p.RegistrationID != nil {
			return domain.ErrPaymentAlreadyLinked
		}
		for _, other := range st.payments {
			if other.RegistrationID != nil && *other.RegistrationID == registrationID {
				return domain.ErrPaymentAlreadyLinked
			}
		}
		id := registrationID
		p.RegistrationID = &id
		st.payments[paymentID] = p
		return nil
	})
}

func (r memPayments) UpdateStatus(ctx context.Context, p *domain.Payment) error {
	return r.with(func(st *memState) error {
		if _, ok := st.payments[p.ID]; !ok {
			return domain.ErrNotFound
		}
		st.payments[p.ID] = *p
		return nil
	})
}

type memHistory struct{ *memAccess }

func (r memHistory) Append(ctx context.Context, h *domain.RegistrationHistory) error {
	return r.with(func(st *memState) error {
		h.ID = st.id("hist")
		st.history = append(st.history, *h)
		return nil
	})
}

func (r memHistory) ListByRegistrationID(ctx context.Context, registrationID string) ([]*domain.RegistrationHistory, error) {
	out := make([]*domain.RegistrationHistory, 0)
	err := r.with(func(st *memState) error {
		for _, h := range st.history {
			if h.RegistrationID == registrationID {
				h := h
				out = append(out, &h)
			}
		}
		return nil
	})
	return out, err
}

type memAudit struct{ *memAccess }

func (r memAudit) Append(ctx context.Context, entry *domain.AuditLog) error {
	return r.with(func(st *memState) error {
		entry.ID = st.id("audit")
		st.audit = append(st.audit, *entry)
		_, hasDeadline := ctx.Deadline()
		r.s.auditDeadlines[entry.Action] = hasDeadline
		return nil
	})
}

type memUsers struct{ *memAccess }

func (r memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return &domain.User{ID: id, Email: id + "@example.com"}, nil
}

type memRoles struct{ *memAccess }

func (r memRoles) ListActiveByUserID(ctx context.Context, userID string, now time.Time) ([]string, error) {
	var out []string
	err := r.with(func(st *memState) error {
		out = append(out, st.roles[userID]...)
		return nil
	})
	return out, err
}

type memNotifLogs struct{ *memAccess }

func (r memNotifLogs) Create(ctx context.Context, entry *domain.NotificationLog) error {
	return r.with(func(st *memState) error {
		entry.ID = st.id("notif")
		st.notifLogs = append(st.notifLogs, *entry)
		return nil
	})
}

type memCleanup struct{ *memAccess }

func (r memCleanup) Ping(ctx context.Context) error {
	return r.s.pingErr
}

func (r memCleanup) Purge(ctx context.Context, category domain.CleanupCategory, cutoff time.Time) (int64, error) {
	var n int64
	err := r.with(func(st *memState) error {
		if err := r.s.purgeErrs[category]; err != nil {
			return err
		}
		r.s.purged[category] = cutoff
		if category != domain.CleanupOldAuditLogs {
			return nil
		}
		kept := st.audit[:0]
		for _, a := range st.audit {
			if a.Timestamp.Before(cutoff) {
				n++
				continue
			}
			kept = append(kept, a)
		}
		st.audit = kept
		return nil
	})
	return n, err
}

// recordingNotifier collects notifications and optionally fails.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, note domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, note)
	return nil
}

func (n *recordingNotifier) ofType(kind domain.NotificationType) []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.Notification
	for _, note := range n.sent {
		if note.Type == kind {
			out = append(out, note)
		}
	}
	return out
}

// tickingClock advances by one millisecond on every read so queue order is strict.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func testDeps(store *memStore, notifier domain.Notifier) Deps {
	return Deps{
		Store:    store,
		Notifier: notifier,
		Clock:    &tickingClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)},
		Timeout:  5 * time.Second,
		Backoff: func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 1)
		},
	}
}
