package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Typed, recoverable conditions returned to callers. Handlers map each to a
// distinct response code; none of these should ever crash the process.
var (
	ErrValidation          = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrAlreadyClosed       = errors.New("session already closed")
	ErrSessionClosed       = errors.New("session is not accepting attendance")
	ErrDuplicateAttendance = errors.New("attendance already marked")
	ErrVerificationFailed  = errors.New("verification failed")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailTaken          = errors.New("email already registered")
	ErrUnavailable         = errors.New("service unavailable")
)

// isUniqueViolation reports whether a store error is a Postgres unique
// constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isNoRows reports whether a store error means "no matching row".
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// maxStoreAttempts bounds internal retries of transient store faults before
// the caller sees ErrUnavailable.
const maxStoreAttempts = 3

// isTransientStoreErr reports whether a Postgres error is worth retrying:
// serialization failures, deadlocks, and connection-level faults.
func isTransientStoreErr(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "08000", "08003", "08006":
			return true
		}
	}
	return false
}

// retryStore runs fn up to maxStoreAttempts times, backing off between
// transient faults. Non-transient errors return immediately; exhausted
// retries surface as ErrUnavailable wrapping the last fault.
func retryStore(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxStoreAttempts; attempt++ {
		if err = fn(); err == nil || !isTransientStoreErr(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 100 * time.Millisecond):
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
