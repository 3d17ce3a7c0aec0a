package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/disgoorg/waifu-bot/waifubot/database/models"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

// TradeRepository persists trade offers. Rows are never removed; a trade leaves pending exactly once
// through Transition.
type TradeRepository interface {
	Create(ctx context.Context, idb bun.IDB, trade *models.Trade) error
	Get(ctx context.Context, idb bun.IDB, id string) (*models.Trade, error)
	HasPending(ctx context.Context, idb bun.IDB, userID string) (bool, error)
	Transition(ctx context.Context, idb bun.IDB, id string, to models.TradeStatus, at time.Time) (bool, error)
	ListPending(ctx context.Context, userID string) ([]*models.Trade, error)
	ListHistory(ctx context.Context, userID string, limit int) ([]*models.Trade, error)
	CancelStale(ctx context.Context, before, at time.Time) (int64, error)
}

type tradeRepository struct {
	db *bun.DB
}

func NewTradeRepository(db *bun.DB) TradeRepository {
	return &tradeRepository{db: db}
}

func (r *tradeRepository) idb(idb bun.IDB) bun.IDB {
	if idb == nil {
		return r.db
	}
	return idb
}

func (r *tradeRepository) Create(ctx context.Context, idb bun.IDB, trade *models.Trade) error {
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = time.Now().UTC()
	}
	trade.Status = models.TradePending
	trade.CompletedAt = time.Time{}

	_, err := r.idb(idb).NewInsert().Model(trade).Exec(ctx)
	return handleError("create", "trade", err)
}

func (r *tradeRepository) Get(ctx context.Context, idb bun.IDB, id string) (*models.Trade, error) {
	trade := new(models.Trade)
	read := func(ctx context.Context) error {
		return r.idb(idb).NewSelect().
			Model(trade).
			Where("id = ?", id).
			Scan(ctx)
	}

	var err error
	if idb == nil {
		err = withReadRetry(ctx, read)
	} else {
		err = read(ctx)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", waifu.ErrTradeNotFound, id)
	}
	if err != nil {
		return nil, handleError("get", "trade", err)
	}
	return trade, nil
}

// HasPending counts trades where userID is on either side.
func (r *tradeRepository) HasPending(ctx context.Context, idb bun.IDB, userID string) (bool, error) {
	exists, err := r.idb(idb).NewSelect().
		Model((*models.Trade)(nil)).
		Where("status = ?", models.TradePending).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("offerer_id = ?", userID).WhereOr("offeree_id = ?", userID)
		}).
		Exists(ctx)
	return exists, handleError("has_pending", "trade", err)
}

// Transition moves a pending trade to a terminal status. It returns false if the trade
// had already left pending.
func (r *tradeRepository) Transition(ctx context.Context, idb bun.IDB, id string, to models.TradeStatus, at time.Time) (bool, error) {
	if !to.Terminal() {
		return false, fmt.Errorf("%w: %s is not a terminal trade status", waifu.ErrInvalidArgument, to)
	}
	res, err := r.idb(idb).NewUpdate().
		Model((*models.Trade)(nil)).
		Set("status = ?", to).
		Set("completed_at = ?", at.UTC()).
		Where("id = ?", id).
		Where("status = ?", models.TradePending).
		Exec(ctx)
	if err != nil {
		return false, handleError("transition", "trade", err)
	}
	return rowsAffected(res) == 1, nil
}

func (r *tradeRepository) ListPending(ctx context.Context, userID string) ([]*models.Trade, error) {
	var trades []*models.Trade
	err := withReadRetry(ctx, func(ctx context.Context) error {
		trades = trades[:0]
		return r.db.NewSelect().
			Model(&trades).
			Where("status = ?", models.TradePending).
			WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("offerer_id = ?", userID).WhereOr("offeree_id = ?", userID)
			}).
			Order("created_at DESC").
			Scan(ctx)
	})
	if err != nil {
		return nil, handleError("list_pending", "trade", err)
	}
	return trades, nil
}

func (r *tradeRepository) ListHistory(ctx context.Context, userID string, limit int) ([]*models.Trade, error) {
	if limit <= 0 {
		limit = 10
	}
	var trades []*models.Trade
	err := withReadRetry(ctx, func(ctx context.Context) error {
		trades = trades[:0]
		return r.db.NewSelect().
			Model(&trades).
			Where("offerer_id = ? OR offeree_id = ?", userID, userID).
			Order("created_at DESC").
			Limit(limit).
			Scan(ctx)
	})
	if err != nil {
		return nil, handleError("list_history", "trade", err)
	}
	return trades, nil
}

// CancelStale cancels every pending trade created before the cutoff.
func (r *tradeRepository) CancelStale(ctx context.Context, before, at time.Time) (int64, error) {
	res, err := r.db.NewUpdate().
		Model((*models.Trade)(nil)).
		Set("status = ?", models.TradeCancelled).
		Set("completed_at = ?", at.UTC()).
		Where("status = ?", models.TradePending).
		Where("created_at < ?", before.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, handleError("cancel_stale", "trade", err)
	}
	return rowsAffected(res), nil
}
