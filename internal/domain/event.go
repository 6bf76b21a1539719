package domain

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Capacity is the seat limit of an event: either unlimited or bounded by a
// non-negative number of seats. The zero value is unlimited.
type Capacity struct {
	limit   int
	bounded bool
}

// UnlimitedCapacity returns a capacity without a seat limit.
func UnlimitedCapacity() Capacity {
	return Capacity{}
}

// BoundedCapacity returns a capacity of n seats. n must not be negative.
func BoundedCapacity(n int) (Capacity, error) {
	if n < 0 {
		return Capacity{}, fmt.Errorf("%w: capacity must not be negative", ErrInvalidInput)
	}
	return Capacity{limit: n, bounded: true}, nil
}

// MustBoundedCapacity is BoundedCapacity for constants known to be valid.
func MustBoundedCapacity(n int) Capacity {
	c, err := BoundedCapacity(n)
	if err != nil {
		panic(err)
	}
	return c
}

// IsUnlimited reports whether the capacity has no seat limit.
func (c Capacity) IsUnlimited() bool { return !c.bounded }

// Limit returns the seat limit and true, or 0 and false when unlimited.
func (c Capacity) Limit() (int, bool) { return c.limit, c.bounded }

// Free returns the seats left once occupied seats are taken. Never negative.
func (c Capacity) Free(occupied int) Slots {
	if !c.bounded {
		return UnlimitedSlots()
	}
	n := c.limit - occupied
	if n < 0 {
		n = 0
	}
	return SlotCount(n)
}

// Grows reports how many seats next adds over c. A change from bounded to
// unlimited reports unlimited=true: every waiting entry may be admitted.
func (c Capacity) Grows(next Capacity) (added int, unlimited bool) {
	switch {
	case !next.bounded && c.bounded:
		return 0, true
	case !next.bounded || !c.bounded:
		return 0, false
	case next.limit > c.limit:
		return next.limit - c.limit, false
	default:
		return 0, false
	}
}

func (c Capacity) String() string {
	if !c.bounded {
		return "unlimited"
	}
	return strconv.Itoa(c.limit)
}

// MarshalJSON encodes unlimited as null and bounded capacity as a number.
func (c Capacity) MarshalJSON() ([]byte, error) {
	if !c.bounded {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(c.limit)), nil
}

func (c *Capacity) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*c = UnlimitedCapacity()
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("%w: capacity must be an integer or null", ErrInvalidInput)
	}
	bc, err := BoundedCapacity(n)
	if err != nil {
		return err
	}
	*c = bc
	return nil
}

// Value stores unlimited capacity as NULL.
func (c Capacity) Value() (driver.Value, error) {
	if !c.bounded {
		return nil, nil
	}
	return int64(c.limit), nil
}

// Scan reads a nullable integer column.
func (c *Capacity) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = UnlimitedCapacity()
		return nil
	case int64:
		bc, err := BoundedCapacity(int(v))
		if err != nil {
			return err
		}
		*c = bc
		return nil
	case []byte:
		n, err := strconv.Atoi(string(v))
		if err != nil {
			return fmt.Errorf("scan capacity: %w", err)
		}
		return c.Scan(int64(n))
	default:
		return fmt.Errorf("scan capacity: unsupported type %T", src)
	}
}

// Slots is the number of seats still available for an event.
type Slots struct {
	count     int
	unlimited bool
}

// UnlimitedSlots returns availability for an event without a seat limit.
func UnlimitedSlots() Slots { return Slots{unlimited: true} }

// SlotCount returns n available seats; negative values clamp to zero.
func SlotCount(n int) Slots {
	if n < 0 {
		n = 0
	}
	return Slots{count: n}
}

func (s Slots) IsUnlimited() bool { return s.unlimited }

// Count returns the number of free seats; meaningless when unlimited.
func (s Slots) Count() int { return s.count }

// HasRoom reports whether at least one seat is free.
func (s Slots) HasRoom() bool { return s.unlimited || s.count > 0 }

// MarshalJSON encodes unlimited availability as the string "unlimited".
func (s Slots) MarshalJSON() ([]byte, error) {
	if s.unlimited {
		return []byte(`"unlimited"`), nil
	}
	return []byte(strconv.Itoa(s.count)), nil
}

func (s Slots) String() string {
	if s.unlimited {
		return "unlimited"
	}
	return strconv.Itoa(s.count)
}

// Event represents a scheduled event that users register for.
// swagger:model Event
type Event struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Category        string    `json:"category,omitempty"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	Capacity        Capacity  `json:"capacity" swaggertype:"integer"`
	RequiresPayment bool      `json:"requires_payment"`
	PriceCents      int64     `json:"price_cents"`
	Currency        string    `json:"currency,omitempty"`
	ManagerID       string    `json:"manager_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewEvent returns a new Event with the given fields. ID is set by the repository on create.
func NewEvent(title string, startsAt, endsAt time.Time, capacity Capacity, managerID string, now time.Time) *Event {
	return &Event{
		Title:     title,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		Capacity:  capacity,
		ManagerID: managerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// EventWithSlots bundles an event with its current availability.
type EventWithSlots struct {
	Event          *Event `json:"event"`
	AvailableSlots Slots  `json:"available_slots" swaggertype:"integer"`
	WaitlistLength int    `json:"waitlist_length"`
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// LockByID reads the event and holds a row lock until the transaction ends.
	LockByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, params PaginationParams) ([]*Event, int, error)
	UpdateCapacity(ctx context.Context, id string, capacity Capacity, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// CreateEventInput carries the fields a manager supplies when creating an event.
type CreateEventInput struct {
	Title           string
	Description     string
	Category        string
	StartsAt        time.Time
	EndsAt          time.Time
	Capacity        Capacity
	RequiresPayment bool
	PriceCents      int64
	Currency        string
}

// EventService manages events and their capacity.
type EventService interface {
	CreateEvent(ctx context.Context, actorID string, in CreateEventInput) (*Event, error)
	GetEvent(ctx context.Context, eventID string) (*EventWithSlots, error)
	ListEvents(ctx context.Context, params PaginationParams) ([]*Event, int, error)
	// UpdateCapacity changes the seat limit; added seats are handed to the waiting list.
	UpdateCapacity(ctx context.Context, eventID, actorID string, capacity Capacity) (*Event, []*Registration, error)
	DeleteEvent(ctx context.Context, eventID, actorID string) error
	AvailableSlots(ctx context.Context, eventID string) (Slots, error)
}
