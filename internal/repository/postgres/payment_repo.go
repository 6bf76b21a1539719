package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventregistry/internal/domain"
)

const paymentColumns = `id, registration_id, event_id, bank_account_id, user_id, amount_cents, currency,
		variable_symbol, status, created_at, updated_at, paid_at`

type paymentRepository struct {
	DB querier
}

func NewPaymentRepository(db querier) domain.PaymentRepository {
	return &paymentRepository{DB: db}
}

// Create inserts a payment. A taken variable symbol produces no row rather
// than an error, so the caller can try another symbol in the same transaction.
func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (registration_id, event_id, bank_account_id, user_id, amount_cents, currency,
			variable_symbol, status, created_at, updated_at, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (variable_symbol) DO NOTHING
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		p.RegistrationID, p.EventID, p.BankAccountID, p.UserID, p.AmountCents, p.Currency,
		p.VariableSymbol, p.Status, p.CreatedAt, p.UpdatedAt, p.PaidAt,
	).Scan(&p.ID)
	switch {
	case errors.Is(err, sql.ErrNoRows), isUniqueViolation(err, "payments_variable_symbol_key"):
		return domain.ErrDuplicateVariableSymbol
	case isUniqueViolation(err, "payments_registration_id_key"):
		return domain.ErrPaymentAlreadyLinked
	}
	return mapError("insert payment", err)
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError("get payment", err)
	}
	return p, nil
}

func (r *paymentRepository) LockByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	p, err := scanPayment(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError("lock payment", err)
	}
	return p, nil
}

func (r *paymentRepository) GetByRegistrationID(ctx context.Context, registrationID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE registration_id = $1`
	p, err := scanPayment(r.DB.QueryRowContext(ctx, query, registrationID))
	if err != nil {
		return nil, mapError("get payment by registration", err)
	}
	return p, nil
}

// LinkRegistration only touches unlinked payments, so a payment that is
// already linked (or a registration that already has one) yields
// ErrPaymentAlreadyLinked.
func (r *paymentRepository) LinkRegistration(ctx context.Context, paymentID, registrationID string) error {
	query := `
		UPDATE payments
		SET registration_id = $1, updated_at = NOW()
		WHERE id = $2 AND registration_id IS NULL
	`
	result, err := r.DB.ExecContext(ctx, query, registrationID, paymentID)
	if isUniqueViolation(err, "payments_registration_id_key") {
		return domain.ErrPaymentAlreadyLinked
	}
	if err != nil {
		return mapError("link payment", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrPaymentAlreadyLinked
	}
	return nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, p *domain.Payment) error {
	query := `UPDATE payments SET status = $1, updated_at = $2, paid_at = $3 WHERE id = $4`
	result, err := r.DB.ExecContext(ctx, query, p.Status, p.UpdatedAt, p.PaidAt, p.ID)
	if err != nil {
		return mapError("update payment status", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	p := &domain.Payment{}
	var regID, eventID, bankID sql.NullString
	var paidAt sql.NullTime
	err := row.Scan(&p.ID, &regID, &eventID, &bankID, &p.UserID, &p.AmountCents, &p.Currency,
		&p.VariableSymbol, &p.Status, &p.CreatedAt, &p.UpdatedAt, &paidAt)
	if err != nil {
		return nil, err
	}
	if regID.Valid {
		p.RegistrationID = &regID.String
	}
	if eventID.Valid {
		p.EventID = &eventID.String
	}
	if bankID.Valid {
		p.BankAccountID = &bankID.String
	}
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}
	return p, nil
}
