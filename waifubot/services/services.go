package services

import (
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/disgoorg/waifu-bot/waifubot/database/repositories"
	"github.com/disgoorg/waifu-bot/waifubot/economy/utils"
	"github.com/disgoorg/waifu-bot/waifubot/metrics"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

// Stores bundles the repositories and transaction manager every economy service works against.
type Stores struct {
	Tx       *utils.EconomicTransactionManager
	Cards    repositories.CardRepository
	Serials  repositories.SerialRepository
	Accounts repositories.AccountRepository
	Trades   repositories.TradeRepository
}

func NewStores(db *bun.DB) *Stores {
	return &Stores{
		Tx:       utils.NewEconomicTransactionManager(db),
		Cards:    repositories.NewCardRepository(db),
		Serials:  repositories.NewSerialRepository(db),
		Accounts: repositories.NewAccountRepository(db),
		Trades:   repositories.NewTradeRepository(db),
	}
}

var reasons = []struct {
	err  error
	name string
}{
	{waifu.ErrBusy, "busy"},
	{waifu.ErrInsufficientFunds, "insufficient_funds"},
	{waifu.ErrNotOwner, "not_owner"},
	{waifu.ErrCardLocked, "locked"},
	{waifu.ErrCardNotFound, "card_not_found"},
	{waifu.ErrDuplicateOffer, "duplicate_offer"},
	{waifu.ErrAlreadyMaxTier, "max_tier"},
	{waifu.ErrEmptyTier, "empty_tier"},
	{waifu.ErrTradeNotFound, "trade_not_found"},
	{waifu.ErrInvalidArgument, "invalid_argument"},
}

func reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.name
		}
	}
	return "other"
}

// observe records a failed operation: expected rejections at debug level, anything else as an error.
func observe(operation, userID string, start time.Time, err error) {
	if err == nil {
		return
	}
	if waifu.IsPrecondition(err) {
		metrics.RejectionsTotal.WithLabelValues(operation, reason(err)).Inc()
		slog.Debug("Request rejected",
			slog.String("type", "cmd"),
			slog.String("operation", operation),
			slog.String("user_id", userID),
			slog.String("reason", reason(err)),
			slog.Duration("took", time.Since(start)),
		)
		return
	}
	metrics.StorageErrorsTotal.WithLabelValues(operation).Inc()
	slog.Error("Operation failed",
		slog.String("type", "error"),
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.Duration("took", time.Since(start)),
		slog.Any("error", err),
	)
}
