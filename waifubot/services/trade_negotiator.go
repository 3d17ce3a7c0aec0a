package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/disgoorg/waifu-bot/waifubot/database/models"
	"github.com/disgoorg/waifu-bot/waifubot/economy/session"
	"github.com/disgoorg/waifu-bot/waifubot/economy/utils"
	"github.com/disgoorg/waifu-bot/waifubot/logger"
	"github.com/disgoorg/waifu-bot/waifubot/metrics"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

var (
	errTradeDrifted    = errors.New("trade cards changed hands")
	errTradeNotPending = errors.New("trade is no longer pending")
)

// TradeNegotiator runs the offer state machine: pending moves exactly once to completed,
// declined, cancelled or failed. Acting on a trade that already left pending returns false.
type TradeNegotiator struct {
	stores   *Stores
	sessions *session.Manager
	expiry   time.Duration
	now      func() time.Time
}

func NewTradeNegotiator(stores *Stores, sessions *session.Manager, policy waifu.Policy) *TradeNegotiator {
	return &TradeNegotiator{
		stores:   stores,
		sessions: sessions,
		expiry:   policy.TradeExpiry,
		now:      time.Now,
	}
}

// Propose records a pending swap of offererCard for offereeCard. Both cards must be held by
// their named party and unlocked, and neither party may already be in a pending trade.
func (n *TradeNegotiator) Propose(ctx context.Context, offererID, offereeID, offererCard, offereeCard string) (trade *models.Trade, err error) {
	start := n.now()
	defer func() { observe("trade_propose", offererID, start, err) }()

	if offererID == "" || offereeID == "" {
		return nil, fmt.Errorf("%w: both users are required", waifu.ErrInvalidArgument)
	}
	if offererID == offereeID {
		return nil, fmt.Errorf("%w: cannot trade with yourself", waifu.ErrInvalidArgument)
	}

	release, err := n.sessions.Acquire(offererID)
	if err != nil {
		return nil, err
	}
	defer release()

	trade = &models.Trade{
		ID:          uuid.NewString(),
		OffererID:   offererID,
		OffereeID:   offereeID,
		OffererCard: waifu.NormalizeSerial(offererCard),
		OffereeCard: waifu.NormalizeSerial(offereeCard),
		CreatedAt:   n.now().UTC(),
	}

	err = n.stores.Tx.WithTransaction(ctx, utils.SerializableTransactionOptions(), func(ctx context.Context, tx bun.Tx) error {
		for _, user := range []string{offererID, offereeID} {
			pending, err := n.stores.Trades.HasPending(ctx, tx, user)
			if err != nil {
				return err
			}
			if pending {
				return fmt.Errorf("%w: %s", waifu.ErrDuplicateOffer, user)
			}
		}
		if err := n.checkCard(ctx, tx, trade.OffererCard, offererID); err != nil {
			return err
		}
		if err := n.checkCard(ctx, tx, trade.OffereeCard, offereeID); err != nil {
			return err
		}
		return n.stores.Trades.Create(ctx, tx, trade)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Trade proposed",
		slog.String("type", "cmd"),
		slog.String("trade_id", trade.ID),
		slog.String("offerer", offererID),
		slog.String("offeree", offereeID),
		slog.String("offerer_card", trade.OffererCard),
		slog.String("offeree_card", trade.OffereeCard),
	)
	return trade, nil
}

func (n *TradeNegotiator) checkCard(ctx context.Context, idb bun.IDB, serial, ownerID string) error {
	card, err := n.stores.Cards.Get(ctx, idb, serial)
	if err != nil {
		return err
	}
	if card.OwnerID != ownerID {
		return fmt.Errorf("%w: %s", waifu.ErrNotOwner, serial)
	}
	if card.Locked {
		return fmt.Errorf("%w: %s", waifu.ErrCardLocked, serial)
	}
	return nil
}

// Accept swaps both cards in one transaction and completes the trade. If either card moved or was
// locked since the proposal, the trade is marked failed, no card changes hands and false is returned.
func (n *TradeNegotiator) Accept(ctx context.Context, tradeID string) (ok bool, err error) {
	start := n.now()
	trade, err := n.stores.Trades.Get(ctx, nil, tradeID)
	if err != nil {
		return false, err
	}
	defer func() { observe("trade_accept", trade.OffereeID, start, err) }()

	if trade.Status != models.TradePending {
		return false, nil
	}

	release, err := n.sessions.Acquire(trade.OffereeID)
	if err != nil {
		return false, err
	}
	defer release()

	err = n.stores.Tx.WithTransaction(ctx, utils.SerializableTransactionOptions(), func(ctx context.Context, tx bun.Tx) error {
		moved, err := n.stores.Cards.Transfer(ctx, tx, trade.OffererCard, trade.OffererID, trade.OffereeID)
		if err != nil {
			return err
		}
		if !moved {
			return errTradeDrifted
		}
		if moved, err = n.stores.Cards.Transfer(ctx, tx, trade.OffereeCard, trade.OffereeID, trade.OffererID); err != nil {
			return err
		}
		if !moved {
			return errTradeDrifted
		}

		done, err := n.stores.Trades.Transition(ctx, tx, trade.ID, models.TradeCompleted, n.now())
		if err != nil {
			return err
		}
		if !done {
			return errTradeNotPending
		}
		return nil
	})

	switch {
	case err == nil:
		metrics.TradesTotal.WithLabelValues(string(models.TradeCompleted)).Inc()
		slog.Info("Trade completed",
			slog.String("type", "cmd"),
			slog.String("trade_id", trade.ID),
			slog.Duration("took", time.Since(start)),
		)
		return true, nil
	case errors.Is(err, errTradeNotPending):
		return false, nil
	case errors.Is(err, errTradeDrifted):
		failed, err := n.stores.Trades.Transition(ctx, nil, trade.ID, models.TradeFailed, n.now())
		if err != nil {
			return false, err
		}
		if failed {
			metrics.TradesTotal.WithLabelValues(string(models.TradeFailed)).Inc()
			slog.Info("Trade failed",
				slog.String("type", "cmd"),
				slog.String("trade_id", trade.ID),
				slog.String("reason", errTradeDrifted.Error()),
			)
		}
		return false, nil
	}
	return false, err
}

func (n *TradeNegotiator) Decline(ctx context.Context, tradeID string) (bool, error) {
	return n.close(ctx, tradeID, models.TradeDeclined)
}

func (n *TradeNegotiator) Cancel(ctx context.Context, tradeID string) (bool, error) {
	return n.close(ctx, tradeID, models.TradeCancelled)
}

func (n *TradeNegotiator) close(ctx context.Context, tradeID string, status models.TradeStatus) (bool, error) {
	if _, err := n.stores.Trades.Get(ctx, nil, tradeID); err != nil {
		return false, err
	}
	ok, err := n.stores.Trades.Transition(ctx, nil, tradeID, status, n.now())
	if err != nil || !ok {
		return false, err
	}
	metrics.TradesTotal.WithLabelValues(string(status)).Inc()
	slog.Info("Trade closed",
		slog.String("type", "cmd"),
		slog.String("trade_id", tradeID),
		slog.String("status", string(status)),
	)
	return true, nil
}

func (n *TradeNegotiator) Get(ctx context.Context, tradeID string) (*models.Trade, error) {
	return n.stores.Trades.Get(ctx, nil, tradeID)
}

// Pending lists the user's open trades on either side.
func (n *TradeNegotiator) Pending(ctx context.Context, userID string) ([]*models.Trade, error) {
	return n.stores.Trades.ListPending(ctx, userID)
}

func (n *TradeNegotiator) History(ctx context.Context, userID string, limit int) ([]*models.Trade, error) {
	return n.stores.Trades.ListHistory(ctx, userID, limit)
}

// CancelStale cancels pending trades older than the configured expiry. A zero expiry disables it.
func (n *TradeNegotiator) CancelStale(ctx context.Context) (int64, error) {
	if n.expiry <= 0 {
		return 0, nil
	}
	now := n.now()
	cancelled, err := n.stores.Trades.CancelStale(ctx, now.Add(-n.expiry), now)
	if err != nil {
		return 0, err
	}
	if cancelled > 0 {
		metrics.TradesTotal.WithLabelValues(string(models.TradeCancelled)).Add(float64(cancelled))
		logger.LogSystem("Stale trades cancelled",
			slog.Int64("count", cancelled),
			slog.Duration("expiry", n.expiry),
		)
	}
	return cancelled, nil
}

// RunHousekeeping calls CancelStale every interval until ctx is done.
func (n *TradeNegotiator) RunHousekeeping(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := n.CancelStale(ctx); err != nil {
				logger.LogError("Failed to cancel stale trades", err)
			}
		}
	}
}
