package db

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Retry policy for transiently unavailable storage. Non-transient errors
// propagate immediately; transient ones are retried with linearly
// increasing backoff up to maxAttempts total attempts.
const (
	maxAttempts = 3
	baseBackoff = 500 * time.Millisecond
)

// transientPgCodes is the fixed set of Postgres error codes treated as
// transiently unavailable: connection exceptions (class 08), server
// restart/overload signals, and retryable transaction failures.
var transientPgCodes = map[string]bool{
	"08000": true, // connection_exception
	"08001": true, // sqlclient_unable_to_establish_sqlconnection
	"08006": true, // connection_failure
	"53300": true, // too_many_connections
	"57P03": true, // cannot_connect_now
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
}

// IsTransient reports whether err belongs to the retryable error classes.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientPgCodes[pgErr.Code]
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// RetryTransient runs fn, retrying only transient storage failures.
// Backoff grows linearly: base, 2*base, ... between attempts.
func RetryTransient(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-time.After(time.Duration(attempt) * baseBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
