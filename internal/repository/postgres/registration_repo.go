package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventregistry/internal/domain"
)

const registrationColumns = `id, event_id, user_id, status, created_at, updated_at, confirmed_at, cancelled_at`

type registrationRepository struct {
	DB querier
}

func NewRegistrationRepository(db querier) domain.RegistrationRepository {
	return &registrationRepository{
		DB: db,
	}
}

// Create inserts an active registration. The partial unique index on active
// (event_id, user_id) pairs turns a concurrent duplicate into no row, which
// keeps the surrounding transaction usable.
func (r *registrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	query := `
		INSERT INTO registrations (event_id, user_id, status, created_at, updated_at, confirmed_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id, user_id) WHERE status IN ('PENDING', 'CONFIRMED') DO NOTHING
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		reg.EventID, reg.UserID, reg.Status, reg.CreatedAt, reg.UpdatedAt, reg.ConfirmedAt, reg.CancelledAt,
	).Scan(&reg.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrDuplicateRegistration
	}
	return mapError("insert registration", err)
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError("get registration", err)
	}
	return reg, nil
}

func (r *registrationRepository) LockByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1 FOR UPDATE`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError("lock registration", err)
	}
	return reg, nil
}

func (r *registrationRepository) GetActiveByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND user_id = $2 AND status IN ('PENDING', 'CONFIRMED')
	`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, eventID, userID))
	if err != nil {
		return nil, mapError("get active registration", err)
	}
	return reg, nil
}

func (r *registrationRepository) CountActiveByEvent(ctx context.Context, eventID string) (int, error) {
	query := `SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status IN ('PENDING', 'CONFIRMED')`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, eventID).Scan(&n); err != nil {
		return 0, mapError("count active registrations", err)
	}
	return n, nil
}

func (r *registrationRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	query := `SELECT COUNT(*) FROM registrations WHERE event_id = $1`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, eventID).Scan(&n); err != nil {
		return 0, mapError("count registrations", err)
	}
	return n, nil
}

func (r *registrationRepository) UpdateStatus(ctx context.Context, reg *domain.Registration) error {
	query := `
		UPDATE registrations
		SET status = $1, updated_at = $2, confirmed_at = $3, cancelled_at = $4
		WHERE id = $5
	`
	result, err := r.DB.ExecContext(ctx, query, reg.Status, reg.UpdatedAt, reg.ConfirmedAt, reg.CancelledAt, reg.ID)
	if err != nil {
		return mapError("update registration status", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *registrationRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, userID)
}

// ListByEventID lists the event's registrations, filtered by status unless status is empty.
func (r *registrationRepository) ListByEventID(ctx context.Context, eventID string, status domain.RegistrationStatus) ([]*domain.Registration, error) {
	if status == "" {
		query := `
			SELECT ` + registrationColumns + `
			FROM registrations
			WHERE event_id = $1
			ORDER BY created_at ASC
		`
		return r.list(ctx, query, eventID)
	}
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND status = $2
		ORDER BY created_at ASC
	`
	return r.list(ctx, query, eventID, status)
}

func (r *registrationRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Registration, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("list registrations", err)
	}
	defer rows.Close()

	regs := make([]*domain.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, mapError("scan registration", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list registrations", err)
	}
	return regs, nil
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var confirmedAt, cancelledAt sql.NullTime
	err := row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.Status, &reg.CreatedAt, &reg.UpdatedAt, &confirmedAt, &cancelledAt)
	if err != nil {
		return nil, err
	}
	if confirmedAt.Valid {
		reg.ConfirmedAt = &confirmedAt.Time
	}
	if cancelledAt.Valid {
		reg.CancelledAt = &cancelledAt.Time
	}
	return reg, nil
}
