package domain

import (
	"context"
	"time"
)

// WaitlistEntry queues a user for a full event. Entries are served in
// CreatedAt order; Seq breaks ties in insertion order.
// swagger:model WaitlistEntry
type WaitlistEntry struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"-"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewWaitlistEntry creates an entry for the user. ID and Seq are set by the repository on create.
func NewWaitlistEntry(eventID, userID string, now time.Time) *WaitlistEntry {
	return &WaitlistEntry{
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: now,
	}
}

// Promotion records a waiting-list entry turned into a registration.
type Promotion struct {
	Entry        *WaitlistEntry `json:"entry"`
	Registration *Registration  `json:"registration"`
}

// WaitlistRepository defines storage operations for the waiting list.
type WaitlistRepository interface {
	// Create appends an entry. Returns ErrDuplicateWaitlist when the user is already queued.
	Create(ctx context.Context, entry *WaitlistEntry) error
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*WaitlistEntry, error)
	// Head returns the earliest entry for the event or ErrNotFound when empty.
	Head(ctx context.Context, eventID string) (*WaitlistEntry, error)
	Delete(ctx context.Context, id string) error
	CountByEvent(ctx context.Context, eventID string) (int, error)
	// Position returns the 1-based queue position of the entry.
	Position(ctx context.Context, entry *WaitlistEntry) (int, error)
	ListByEvent(ctx context.Context, eventID string, params PaginationParams) ([]*WaitlistEntry, error)
}

// WaitlistService is the FIFO waiting-list queue.
type WaitlistService interface {
	Enqueue(ctx context.Context, userID, eventID string) (*WaitlistEntry, int, error)
	// PromoteNext admits the earliest waiting user into a free seat. A nil
	// promotion with a nil error means the queue was empty.
	PromoteNext(ctx context.Context, eventID, actorID string) (*Promotion, error)
	Leave(ctx context.Context, userID, eventID string) error
	Position(ctx context.Context, userID, eventID string) (int, error)
	List(ctx context.Context, eventID, actorID string, params PaginationParams) ([]*WaitlistEntry, int, error)
}
