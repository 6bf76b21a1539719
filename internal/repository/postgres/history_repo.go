package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"eventregistry/internal/domain"
)

type registrationHistoryRepository struct {
	DB querier
}

func NewRegistrationHistoryRepository(db querier) domain.RegistrationHistoryRepository {
	return &registrationHistoryRepository{DB: db}
}

func (r *registrationHistoryRepository) Append(ctx context.Context, h *domain.RegistrationHistory) error {
	query := `
		INSERT INTO registration_history (registration_id, event_id, user_id, from_status, to_status, action, performed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var from *string
	if h.FromStatus != nil {
		s := string(*h.FromStatus)
		from = &s
	}
	err := r.DB.QueryRowContext(ctx, query,
		h.RegistrationID, h.EventID, h.UserID, from, h.ToStatus, h.Action, h.PerformedBy, h.CreatedAt,
	).Scan(&h.ID)
	return mapError("append registration history", err)
}

func (r *registrationHistoryRepository) ListByRegistrationID(ctx context.Context, registrationID string) ([]*domain.RegistrationHistory, error) {
	query := `
		SELECT id, registration_id, event_id, user_id, from_status, to_status, action, performed_by, created_at
		FROM registration_history
		WHERE registration_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, registrationID)
	if err != nil {
		return nil, mapError("list registration history", err)
	}
	defer rows.Close()

	out := make([]*domain.RegistrationHistory, 0)
	for rows.Next() {
		h := &domain.RegistrationHistory{}
		var from, performedBy sql.NullString
		if err := rows.Scan(&h.ID, &h.RegistrationID, &h.EventID, &h.UserID, &from, &h.ToStatus, &h.Action, &performedBy, &h.CreatedAt); err != nil {
			return nil, mapError("scan registration history", err)
		}
		if from.Valid {
			st := domain.RegistrationStatus(from.String)
			h.FromStatus = &st
		}
		if performedBy.Valid {
			h.PerformedBy = &performedBy.String
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list registration history", err)
	}
	return out, nil
}

type auditLogRepository struct {
	DB querier
}

func NewAuditLogRepository(db querier) domain.AuditLogRepository {
	return &auditLogRepository{DB: db}
}

func (r *auditLogRepository) Append(ctx context.Context, entry *domain.AuditLog) error {
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO audit_logs (action, entity_type, entity_id, actor_id, details, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err = r.DB.QueryRowContext(ctx, query,
		entry.Action, entry.EntityType, entry.EntityID, entry.ActorID, raw, entry.Timestamp,
	).Scan(&entry.ID)
	return mapError("append audit log", err)
}

type notificationLogRepository struct {
	DB querier
}

func NewNotificationLogRepository(db querier) domain.NotificationLogRepository {
	return &notificationLogRepository{DB: db}
}

func (r *notificationLogRepository) Create(ctx context.Context, entry *domain.NotificationLog) error {
	query := `
		INSERT INTO notification_logs (type, user_id, event_id, registration_id, channel, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		entry.Type, entry.UserID, entry.EventID, entry.RegistrationID, entry.Channel, entry.Status, entry.Error, entry.CreatedAt,
	).Scan(&entry.ID)
	return mapError("insert notification log", err)
}
