package domain

import "context"

// Repositories groups the repositories that share one database handle,
// either the pool or an open transaction.
type Repositories struct {
	Events           EventRepository
	Registrations    RegistrationRepository
	Waitlist         WaitlistRepository
	Payments         PaymentRepository
	History          RegistrationHistoryRepository
	AuditLogs        AuditLogRepository
	Users            UserRepository
	Roles            RoleRepository
	NotificationLogs NotificationLogRepository
	Cleanup          CleanupRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	// Repos returns repositories bound to the connection pool.
	Repos() Repositories
	// WithinTx runs fn in one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
