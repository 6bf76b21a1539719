package postgres

import (
	"context"
	"fmt"
	"time"

	"eventregistry/internal/domain"
)

// purgeQueries holds one DELETE per cleanup category; $1 is the cutoff.
var purgeQueries = map[domain.CleanupCategory]string{
	domain.CleanupExpiredUserRoles: `
		DELETE FROM user_roles
		WHERE expires_at IS NOT NULL AND expires_at < $1`,
	domain.CleanupOldAuditLogs: `
		DELETE FROM audit_logs
		WHERE timestamp < $1`,
	domain.CleanupFailedPayments: `
		DELETE FROM payments
		WHERE status = 'FAILED' AND updated_at < $1`,
	domain.CleanupExpiredWaitingList: `
		DELETE FROM waiting_list w
		USING events e
		WHERE w.event_id = e.id AND e.ends_at < $1`,
	domain.CleanupCancelledRegistrations: `
		DELETE FROM registrations
		WHERE status IN ('CANCELLED', 'REJECTED') AND COALESCE(cancelled_at, updated_at) < $1`,
	domain.CleanupOldNotificationLogs: `
		DELETE FROM notification_logs
		WHERE created_at < $1`,
}

type cleanupRepository struct {
	DB querier
}

func NewCleanupRepository(db querier) domain.CleanupRepository {
	return &cleanupRepository{DB: db}
}

func (r *cleanupRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.DB.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return mapError("ping", err)
	}
	return nil
}

func (r *cleanupRepository) Purge(ctx context.Context, category domain.CleanupCategory, cutoff time.Time) (int64, error) {
	query, ok := purgeQueries[category]
	if !ok {
		return 0, fmt.Errorf("%w: unknown cleanup category %q", domain.ErrInvalidInput, category)
	}
	result, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, mapError("purge "+string(category), err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, mapError("purge "+string(category), err)
	}
	return n, nil
}
