package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nikolayk812/orderdesk/internal/domain"
)

// SQLSTATE codes that describe a condition a retry can clear.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateAdminShutdown        = "57P01"
	sqlStateTooManyConnections   = "53300"
)

// classify marks retryable storage failures as domain.TransientError and
// passes every other error through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	if isTransient(err) {
		return &domain.TransientError{Op: op, Err: err}
	}

	return err
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure,
			sqlStateDeadlockDetected,
			sqlStateLockNotAvailable,
			sqlStateAdminShutdown,
			sqlStateTooManyConnections:
			return true
		}
		return false
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	return pgconn.Timeout(err) || pgconn.SafeToRetry(err)
}
