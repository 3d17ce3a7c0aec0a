package utils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/disgoorg/waifu-bot/waifubot/database/repositories"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

const (
	DefaultTxTimeout = 10 * time.Second
	maxTxAttempts    = 3
)

// TransactionOptions configures transaction behavior
type TransactionOptions struct {
	IsolationLevel sql.IsolationLevel
	Timeout        time.Duration
}

// StandardTransactionOptions is read committed with the default timeout.
func StandardTransactionOptions() *TransactionOptions {
	return &TransactionOptions{
		IsolationLevel: sql.LevelReadCommitted,
		Timeout:        DefaultTxTimeout,
	}
}

// SerializableTransactionOptions is used where two rows must move together, such as trades.
func SerializableTransactionOptions() *TransactionOptions {
	return &TransactionOptions{
		IsolationLevel: sql.LevelSerializable,
		Timeout:        DefaultTxTimeout,
	}
}

// EconomicTransactionManager runs economy mutations as single transactions.
type EconomicTransactionManager struct {
	db *bun.DB
}

func NewEconomicTransactionManager(db *bun.DB) *EconomicTransactionManager {
	return &EconomicTransactionManager{db: db}
}

// WithTransaction runs fn in one transaction and commits if it returns nil. Transactions aborted
// by a serialization conflict are rolled back entirely and run again, up to three attempts;
// any other error is returned as is.
func (etm *EconomicTransactionManager) WithTransaction(ctx context.Context, opts *TransactionOptions, fn func(context.Context, bun.Tx) error) error {
	if opts == nil {
		opts = StandardTransactionOptions()
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = etm.run(ctx, opts, fn)
		if err == nil || !repositories.IsSerializationFailure(err) {
			return err
		}
		slog.Debug("Retrying conflicted transaction",
			slog.String("type", "db"),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
	}
	return fmt.Errorf("%w: transaction kept conflicting: %w", waifu.ErrBusy, err)
}

func (etm *EconomicTransactionManager) run(ctx context.Context, opts *TransactionOptions, fn func(context.Context, bun.Tx) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	tx, err := etm.db.BeginTx(timeoutCtx, &sql.TxOptions{
		Isolation: etm.isolation(opts.IsolationLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", classify(err))
	}
	defer tx.Rollback()

	if err := fn(timeoutCtx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return nil
}

// isolation maps the requested level onto what the driver accepts. SQLite transactions are
// already serializable and its drivers reject explicit levels.
func (etm *EconomicTransactionManager) isolation(level sql.IsolationLevel) sql.IsolationLevel {
	if etm.db.Dialect().Name() == dialect.SQLite {
		return sql.LevelDefault
	}
	return level
}

func classify(err error) error {
	if repositories.IsUnavailable(err) && !errors.Is(err, waifu.ErrStorageUnavailable) {
		return fmt.Errorf("%w: %w", waifu.ErrStorageUnavailable, err)
	}
	return err
}
