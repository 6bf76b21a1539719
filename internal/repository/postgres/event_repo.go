package postgres

import (
	"context"
	"time"

	"eventregistry/internal/domain"
)

const eventColumns = `id, title, description, category, starts_at, ends_at, capacity,
		requires_payment, price_cents, currency, manager_id, created_at, updated_at`

type eventRepository struct {
	DB querier
}

func NewEventRepository(db querier) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, description, category, starts_at, ends_at, capacity,
			requires_payment, price_cents, currency, manager_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		e.Title, e.Description, e.Category, e.StartsAt, e.EndsAt, e.Capacity,
		e.RequiresPayment, e.PriceCents, e.Currency, e.ManagerID, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	return mapError("insert event", err)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError("get event", err)
	}
	return e, nil
}

// LockByID takes a row lock on the event. Every operation that changes how
// many seats are held goes through this lock, which serialises them per event.
func (r *eventRepository) LockByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError("lock event", err)
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context, params domain.PaginationParams) ([]*domain.Event, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&total); err != nil {
		return nil, 0, mapError("count events", err)
	}
	query := `SELECT ` + eventColumns + `
		FROM events
		ORDER BY starts_at ASC, id ASC
		LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, params.Limit(), params.Offset())
	if err != nil {
		return nil, 0, mapError("list events", err)
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, mapError("scan event", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError("list events", err)
	}
	return events, total, nil
}

func (r *eventRepository) UpdateCapacity(ctx context.Context, id string, capacity domain.Capacity, updatedAt time.Time) error {
	query := `UPDATE events SET capacity = $1, updated_at = $2 WHERE id = $3`
	result, err := r.DB.ExecContext(ctx, query, capacity, updatedAt, id)
	if err != nil {
		return mapError("update event capacity", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return mapError("delete event", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Category, &e.StartsAt, &e.EndsAt, &e.Capacity,
		&e.RequiresPayment, &e.PriceCents, &e.Currency, &e.ManagerID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}
