package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/disgoorg/waifu-bot/waifubot/database/models"
	"github.com/disgoorg/waifu-bot/waifubot/economy/session"
	"github.com/disgoorg/waifu-bot/waifubot/metrics"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

type GiftService struct {
	stores   *Stores
	sessions *session.Manager
}

func NewGiftService(stores *Stores, sessions *session.Manager) *GiftService {
	return &GiftService{stores: stores, sessions: sessions}
}

func checkParties(fromID, toID string) error {
	if fromID == "" || toID == "" {
		return fmt.Errorf("%w: both users are required", waifu.ErrInvalidArgument)
	}
	if fromID == toID {
		return fmt.Errorf("%w: cannot gift to yourself", waifu.ErrInvalidArgument)
	}
	return nil
}

// GiftCard hands an unlocked card to another user. It returns false if fromID does not hold the
// card or the card is locked.
func (s *GiftService) GiftCard(ctx context.Context, fromID, toID, serial string) (ok bool, err error) {
	start := time.Now()
	defer func() { observe("gift_card", fromID, start, err) }()

	if err := checkParties(fromID, toID); err != nil {
		return false, err
	}
	release, err := s.sessions.Acquire(fromID)
	if err != nil {
		return false, err
	}
	defer release()

	ok, err = s.stores.Cards.Transfer(ctx, nil, serial, fromID, toID)
	if err != nil || !ok {
		return ok, err
	}

	metrics.GiftsTotal.WithLabelValues("card").Inc()
	slog.Info("Card gifted",
		slog.String("type", "cmd"),
		slog.String("from", fromID),
		slog.String("to", toID),
		slog.String("serial", waifu.NormalizeSerial(serial)),
	)
	return true, nil
}

// GiftCurrency moves amount from one balance to another. It returns the sender's new balance.
func (s *GiftService) GiftCurrency(ctx context.Context, fromID, toID string, amount decimal.Decimal) (balance decimal.Decimal, err error) {
	start := time.Now()
	defer func() { observe("gift_currency", fromID, start, err) }()

	if err := checkParties(fromID, toID); err != nil {
		return decimal.Zero, err
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", waifu.ErrInvalidArgument)
	}
	release, err := s.sessions.Acquire(fromID)
	if err != nil {
		return decimal.Zero, err
	}
	defer release()

	err = s.stores.Tx.WithTransaction(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if balance, err = s.stores.Accounts.AdjustBalance(ctx, tx, fromID, amount.Neg()); err != nil {
			return err
		}
		_, err = s.stores.Accounts.AdjustBalance(ctx, tx, toID, amount)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}

	metrics.GiftsTotal.WithLabelValues("currency").Inc()
	slog.Info("Currency gifted",
		slog.String("type", "cmd"),
		slog.String("from", fromID),
		slog.String("to", toID),
		slog.String("amount", amount.String()),
	)
	return balance, nil
}

// GiftMgems moves n Mgems between users. It returns the sender's new Mgem count.
func (s *GiftService) GiftMgems(ctx context.Context, fromID, toID string, n int64) (mgems int64, err error) {
	start := time.Now()
	defer func() { observe("gift_mgems", fromID, start, err) }()

	if err := checkParties(fromID, toID); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", waifu.ErrInvalidArgument)
	}
	release, err := s.sessions.Acquire(fromID)
	if err != nil {
		return 0, err
	}
	defer release()

	err = s.stores.Tx.WithTransaction(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if mgems, err = s.stores.Accounts.AdjustMgems(ctx, tx, fromID, -n); err != nil {
			return err
		}
		_, err = s.stores.Accounts.AdjustMgems(ctx, tx, toID, n)
		return err
	})
	if err != nil {
		return 0, err
	}

	metrics.GiftsTotal.WithLabelValues("mgems").Inc()
	slog.Info("Mgems gifted",
		slog.String("type", "cmd"),
		slog.String("from", fromID),
		slog.String("to", toID),
		slog.Int64("amount", n),
	)
	return mgems, nil
}

// Grant applies administrative deltas. Negative deltas still cannot take an account below zero.
func (s *GiftService) Grant(ctx context.Context, userID string, balanceDelta decimal.Decimal, mgemsDelta int64) (account *models.Account, err error) {
	start := time.Now()
	defer func() { observe("grant", userID, start, err) }()

	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", waifu.ErrInvalidArgument)
	}
	err = s.stores.Tx.WithTransaction(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if !balanceDelta.IsZero() {
			if _, err := s.stores.Accounts.AdjustBalance(ctx, tx, userID, balanceDelta); err != nil {
				return err
			}
		}
		if mgemsDelta != 0 {
			if _, err := s.stores.Accounts.AdjustMgems(ctx, tx, userID, mgemsDelta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Grant applied",
		slog.String("type", "cmd"),
		slog.String("user_id", userID),
		slog.String("balance_delta", balanceDelta.String()),
		slog.Int64("mgems_delta", mgemsDelta),
	)
	return s.stores.Accounts.Get(ctx, userID)
}
