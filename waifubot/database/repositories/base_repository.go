package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

const readRetryInterval = 50 * time.Millisecond

// RepositoryError represents a repository-level error
type RepositoryError struct {
	Operation string
	Entity    string
	Err       error
}

func (re *RepositoryError) Error() string {
	return fmt.Sprintf("repository error during %s for %s: %v", re.Operation, re.Entity, re.Err)
}

func (re *RepositoryError) Unwrap() error {
	return re.Err
}

// handleError wraps driver failures with context and classifies connectivity loss as
// waifu.ErrStorageUnavailable. Domain sentinels pass through untouched.
func handleError(operation, entity string, err error) error {
	if err == nil {
		return nil
	}
	if waifu.IsPrecondition(err) || errors.Is(err, waifu.ErrDuplicateSerial) {
		return err
	}
	if IsUnavailable(err) && !errors.Is(err, waifu.ErrStorageUnavailable) {
		err = fmt.Errorf("%w: %w", waifu.ErrStorageUnavailable, err)
	}
	return &RepositoryError{Operation: operation, Entity: entity, Err: err}
}

// IsUnavailable reports whether err means the store could not be reached.
func IsUnavailable(err error) bool {
	if errors.Is(err, waifu.ErrStorageUnavailable) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsUniqueViolation matches both postgres SQLSTATE 23505 and sqlite constraint errors.
func IsUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsSerializationFailure reports a transaction aborted by the database's conflict detection.
// The aborted transaction left no effects, so it is safe to run again.
func IsSerializationFailure(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		code := pgErr.Field('C')
		return code == "40001" || code == "40P01"
	}
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// withReadRetry retries an idempotent read on storage unavailability.
func withReadRetry(ctx context.Context, read func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < waifu.ReadRetries; attempt++ {
		if err = read(ctx); err == nil || !IsUnavailable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(readRetryInterval * time.Duration(attempt+1)):
		}
	}
	return err
}

func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
