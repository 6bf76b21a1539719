package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"eventregistry/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx so repositories work the
// same inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to PostgreSQL using the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

type store struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// NewStore returns a domain.Store backed by db. lockTimeout bounds how long a
// transaction waits for a row lock; zero leaves the server default.
func NewStore(db *sql.DB, lockTimeout time.Duration) domain.Store {
	return &store{db: db, lockTimeout: lockTimeout}
}

func (s *store) Repos() domain.Repositories {
	return newRepositories(s.db)
}

func (s *store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if s.lockTimeout > 0 {
		// SET LOCAL does not accept bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return mapError("set lock timeout", err)
		}
	}

	if err = fn(ctx, newRepositories(tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

func newRepositories(q querier) domain.Repositories {
	return domain.Repositories{
		Events:           NewEventRepository(q),
		Registrations:    NewRegistrationRepository(q),
		Waitlist:         NewWaitlistRepository(q),
		Payments:         NewPaymentRepository(q),
		History:          NewRegistrationHistoryRepository(q),
		AuditLogs:        NewAuditLogRepository(q),
		Users:            NewUserRepository(q),
		Roles:            NewRoleRepository(q),
		NotificationLogs: NewNotificationLogRepository(q),
		Cleanup:          NewCleanupRepository(q),
	}
}
