package services

import (
	"testing"
	"time"

	"eventregistry/internal/domain"
)

const managerID = "manager-1"

type harness struct {
	store    *memStore
	notifier *recordingNotifier
	events   domain.EventService
	regs     domain.RegistrationService
	waitlist domain.WaitlistService
	payments *paymentService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newMemStore()
	notifier := &recordingNotifier{}
	d := testDeps(store, notifier)
	return &harness{
		store:    store,
		notifier: notifier,
		events:   NewEventService(d),
		regs:     NewRegistrationService(d),
		waitlist: NewWaitlistService(d),
		payments: NewPaymentService(d).(*paymentService),
	}
}

func (h *harness) freeEvent(capacity domain.Capacity) *domain.Event {
	return h.store.addEvent(domain.Event{
		Title:     "Go meetup",
		StartsAt:  time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC),
		EndsAt:    time.Date(2026, 6, 1, 21, 0, 0, 0, time.UTC),
		Capacity:  capacity,
		ManagerID: managerID,
	})
}

func (h *harness) paidEvent(capacity domain.Capacity) *domain.Event {
	return h.store.addEvent(domain.Event{
		Title:           "Workshop",
		StartsAt:        time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC),
		EndsAt:          time.Date(2026, 6, 2, 17, 0, 0, 0, time.UTC),
		Capacity:        capacity,
		RequiresPayment: true,
		PriceCents:      2500,
		Currency:        "CZK",
		ManagerID:       managerID,
	})
}
