package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"eventregistry/internal/domain"
)

// mapError translates driver errors into domain errors. sql.ErrNoRows becomes
// domain.ErrNotFound; everything else is wrapped in a PersistenceError whose
// Transient flag marks failures worth retrying.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &domain.PersistenceError{Op: op, Err: err, Transient: isTransient(err)}
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch code {
		case pgerrcode.LockNotAvailable,
			pgerrcode.DeadlockDetected,
			pgerrcode.SerializationFailure,
			pgerrcode.TooManyConnections,
			pgerrcode.AdminShutdown,
			pgerrcode.CannotConnectNow:
			return true
		}
		return pgerrcode.IsConnectionException(code)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isUniqueViolation reports whether err is a unique violation, optionally of
// the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
