package domain

import (
	"context"
	"time"
)

// Registration history actions.
const (
	ActionRegistered     = "registered"
	ActionPromoted       = "promoted"
	ActionPaymentSettled = "payment_settled"
	ActionCancelled      = "cancelled"
	ActionPaymentFailed  = "payment_failed"
	ActionRejected       = "rejected"
)

// RegistrationHistory is an append-only record of one registration transition.
// FromStatus is nil for the row written when the registration is created.
type RegistrationHistory struct {
	ID             string              `json:"id"`
	RegistrationID string              `json:"registration_id"`
	EventID        string              `json:"event_id"`
	UserID         string              `json:"user_id"`
	FromStatus     *RegistrationStatus `json:"from_status,omitempty"`
	ToStatus       RegistrationStatus  `json:"to_status"`
	Action         string              `json:"action"`
	PerformedBy    *string             `json:"performed_by,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// RegistrationHistoryRepository appends and reads registration history.
type RegistrationHistoryRepository interface {
	Append(ctx context.Context, h *RegistrationHistory) error
	ListByRegistrationID(ctx context.Context, registrationID string) ([]*RegistrationHistory, error)
}

// AuditLog is a generic append-only audit record.
type AuditLog struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	ActorID    *string        `json:"actor_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// AuditLogRepository appends audit records.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *AuditLog) error
}
