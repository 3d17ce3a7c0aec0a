package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/disgoorg/waifu-bot/waifubot/database/models"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

// AccountRepository holds currency and Mgem balances. Unknown users read as zero and accounts
// are created by their first credit. Debits are conditional updates: a delta that would take
// either balance below zero fails with waifu.ErrInsufficientFunds and changes nothing.
type AccountRepository interface {
	Get(ctx context.Context, userID string) (*models.Account, error)
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	GetMgems(ctx context.Context, userID string) (int64, error)
	AdjustBalance(ctx context.Context, idb bun.IDB, userID string, delta decimal.Decimal) (decimal.Decimal, error)
	AdjustMgems(ctx context.Context, idb bun.IDB, userID string, delta int64) (int64, error)
	// Seed inserts an account unless one already exists; it reports whether a row was written.
	Seed(ctx context.Context, idb bun.IDB, account *models.Account) (bool, error)
}

type accountRepository struct {
	db *bun.DB
}

func NewAccountRepository(db *bun.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) idb(idb bun.IDB) bun.IDB {
	if idb == nil {
		return r.db
	}
	return idb
}

func (r *accountRepository) Get(ctx context.Context, userID string) (*models.Account, error) {
	return r.get(ctx, r.db, userID, true)
}

func (r *accountRepository) get(ctx context.Context, idb bun.IDB, userID string, retry bool) (*models.Account, error) {
	account := new(models.Account)
	read := func(ctx context.Context) error {
		return idb.NewSelect().
			Model(account).
			Where("user_id = ?", userID).
			Scan(ctx)
	}

	var err error
	if retry {
		err = withReadRetry(ctx, read)
	} else {
		err = read(ctx)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &models.Account{UserID: userID, Balance: decimal.Zero}, nil
	}
	if err != nil {
		return nil, handleError("get", "account", err)
	}
	account.Balance = account.Balance.Round(2)
	return account, nil
}

func (r *accountRepository) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	account, err := r.Get(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func (r *accountRepository) GetMgems(ctx context.Context, userID string) (int64, error) {
	account, err := r.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.Mgems, nil
}

func (r *accountRepository) AdjustBalance(ctx context.Context, idb bun.IDB, userID string, delta decimal.Decimal) (decimal.Decimal, error) {
	if userID == "" {
		return decimal.Zero, fmt.Errorf("%w: empty user id", waifu.ErrInvalidArgument)
	}
	delta = delta.Round(2)
	idb = r.idb(idb)
	now := time.Now().UTC()

	var balance decimal.Decimal
	var err error
	switch {
	case delta.IsZero():
		account, err := r.get(ctx, idb, userID, false)
		if err != nil {
			return decimal.Zero, err
		}
		return account.Balance, nil
	// SQLite keeps numeric columns as REAL, so sums are rounded to cents before they are
	// stored or compared against the floor.
	case delta.IsPositive():
		err = idb.NewRaw(
			"INSERT INTO accounts (user_id, balance, mgems, created_at, updated_at) VALUES (?, ?, 0, ?, ?) "+
				"ON CONFLICT (user_id) DO UPDATE SET balance = ROUND(accounts.balance + EXCLUDED.balance, 2), "+
				"updated_at = EXCLUDED.updated_at "+
				"RETURNING balance",
			userID, delta, now, now,
		).Scan(ctx, &balance)
	default:
		err = idb.NewRaw(
			"UPDATE accounts SET balance = ROUND(balance + ?, 2), updated_at = ? "+
				"WHERE user_id = ? AND ROUND(balance + ?, 2) >= 0 "+
				"RETURNING balance",
			delta, now, userID, delta,
		).Scan(ctx, &balance)
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: balance cannot cover %s", waifu.ErrInsufficientFunds, delta.Neg())
		}
	}
	if err != nil {
		return decimal.Zero, handleError("adjust_balance", "account", err)
	}
	return balance.Round(2), nil
}

func (r *accountRepository) AdjustMgems(ctx context.Context, idb bun.IDB, userID string, delta int64) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: empty user id", waifu.ErrInvalidArgument)
	}
	idb = r.idb(idb)
	now := time.Now().UTC()

	var mgems int64
	var err error
	switch {
	case delta == 0:
		account, err := r.get(ctx, idb, userID, false)
		if err != nil {
			return 0, err
		}
		return account.Mgems, nil
	case delta > 0:
		err = idb.NewRaw(
			"INSERT INTO accounts (user_id, balance, mgems, created_at, updated_at) VALUES (?, 0, ?, ?, ?) "+
				"ON CONFLICT (user_id) DO UPDATE SET mgems = accounts.mgems + EXCLUDED.mgems, "+
				"updated_at = EXCLUDED.updated_at "+
				"RETURNING mgems",
			userID, delta, now, now,
		).Scan(ctx, &mgems)
	default:
		err = idb.NewRaw(
			"UPDATE accounts SET mgems = mgems + ?, updated_at = ? "+
				"WHERE user_id = ? AND mgems + ? >= 0 "+
				"RETURNING mgems",
			delta, now, userID, delta,
		).Scan(ctx, &mgems)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: not enough Mgems for %d", waifu.ErrInsufficientFunds, -delta)
		}
	}
	if err != nil {
		return 0, handleError("adjust_mgems", "account", err)
	}
	return mgems, nil
}

func (r *accountRepository) Seed(ctx context.Context, idb bun.IDB, account *models.Account) (bool, error) {
	if account.UserID == "" || account.Balance.IsNegative() || account.Mgems < 0 {
		return false, fmt.Errorf("%w: invalid account seed", waifu.ErrInvalidArgument)
	}
	now := time.Now().UTC()
	account.Balance = account.Balance.Round(2)
	account.CreatedAt, account.UpdatedAt = now, now

	res, err := r.idb(idb).NewInsert().
		Model(account).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, handleError("seed", "account", err)
	}
	return rowsAffected(res) == 1, nil
}
