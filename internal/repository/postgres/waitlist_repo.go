package postgres

import (
	"context"

	"eventregistry/internal/domain"
)

const waitlistColumns = `id, seq, event_id, user_id, created_at`

type waitlistRepository struct {
	DB querier
}

func NewWaitlistRepository(db querier) domain.WaitlistRepository {
	return &waitlistRepository{DB: db}
}

func (r *waitlistRepository) Create(ctx context.Context, entry *domain.WaitlistEntry) error {
	query := `
		INSERT INTO waiting_list (event_id, user_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, seq
	`
	err := r.DB.QueryRowContext(ctx, query, entry.EventID, entry.UserID, entry.CreatedAt).Scan(&entry.ID, &entry.Seq)
	if isUniqueViolation(err, "waiting_list_event_user_key") {
		return domain.ErrDuplicateWaitlist
	}
	return mapError("insert waiting list entry", err)
}

func (r *waitlistRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waiting_list WHERE event_id = $1 AND user_id = $2`
	e, err := scanWaitlistEntry(r.DB.QueryRowContext(ctx, query, eventID, userID))
	if err != nil {
		return nil, mapError("get waiting list entry", err)
	}
	return e, nil
}

func (r *waitlistRepository) Head(ctx context.Context, eventID string) (*domain.WaitlistEntry, error) {
	query := `
		SELECT ` + waitlistColumns + `
		FROM waiting_list
		WHERE event_id = $1
		ORDER BY created_at ASC, seq ASC
		LIMIT 1
		FOR UPDATE
	`
	e, err := scanWaitlistEntry(r.DB.QueryRowContext(ctx, query, eventID))
	if err != nil {
		return nil, mapError("get waiting list head", err)
	}
	return e, nil
}

func (r *waitlistRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM waiting_list WHERE id = $1`, id)
	if err != nil {
		return mapError("delete waiting list entry", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *waitlistRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM waiting_list WHERE event_id = $1`, eventID).Scan(&n)
	if err != nil {
		return 0, mapError("count waiting list", err)
	}
	return n, nil
}

func (r *waitlistRepository) Position(ctx context.Context, entry *domain.WaitlistEntry) (int, error) {
	query := `
		SELECT COUNT(*) + 1
		FROM waiting_list
		WHERE event_id = $1 AND (created_at < $2 OR (created_at = $2 AND seq < $3))
	`
	var pos int
	if err := r.DB.QueryRowContext(ctx, query, entry.EventID, entry.CreatedAt, entry.Seq).Scan(&pos); err != nil {
		return 0, mapError("waiting list position", err)
	}
	return pos, nil
}

func (r *waitlistRepository) ListByEvent(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.WaitlistEntry, error) {
	query := `
		SELECT ` + waitlistColumns + `
		FROM waiting_list
		WHERE event_id = $1
		ORDER BY created_at ASC, seq ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID, params.Limit(), params.Offset())
	if err != nil {
		return nil, mapError("list waiting list", err)
	}
	defer rows.Close()

	entries := make([]*domain.WaitlistEntry, 0)
	for rows.Next() {
		e, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, mapError("scan waiting list entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list waiting list", err)
	}
	return entries, nil
}

func scanWaitlistEntry(row rowScanner) (*domain.WaitlistEntry, error) {
	e := &domain.WaitlistEntry{}
	if err := row.Scan(&e.ID, &e.Seq, &e.EventID, &e.UserID, &e.CreatedAt); err != nil {
		return nil, err
	}
	return e, nil
}
