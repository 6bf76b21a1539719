package domain

import (
	"context"
	"time"
)

// NotificationType names a registration event published to the notifier.
type NotificationType string

const (
	NotificationRegistrationConfirmed NotificationType = "registration_confirmed"
	NotificationWaitlistPromoted      NotificationType = "waitlist_promoted"
)

// Notification is emitted after a transition commits.
type Notification struct {
	Type           NotificationType `json:"type"`
	UserID         string           `json:"userId"`
	EventID        string           `json:"eventId"`
	RegistrationID string           `json:"registrationId,omitempty"`
	OccurredAt     time.Time        `json:"occurredAt"`
}

// Notifier consumes notifications. Delivery failures never roll back the
// transition that produced the notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, text string) error
}

// Notification log statuses.
const (
	NotificationSent    = "sent"
	NotificationSkipped = "skipped"
	NotificationFailed  = "failed"
)

// NotificationLog records a delivery attempt.
type NotificationLog struct {
	ID             string           `json:"id"`
	Type           NotificationType `json:"type"`
	UserID         string           `json:"user_id"`
	EventID        string           `json:"event_id"`
	RegistrationID *string          `json:"registration_id,omitempty"`
	Channel        string           `json:"channel"`
	Status         string           `json:"status"`
	Error          *string          `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// NotificationLogRepository appends notification delivery records.
type NotificationLogRepository interface {
	Create(ctx context.Context, entry *NotificationLog) error
}
