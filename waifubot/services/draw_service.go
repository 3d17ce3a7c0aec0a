package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/disgoorg/waifu-bot/waifubot/catalog"
	"github.com/disgoorg/waifu-bot/waifubot/database/models"
	"github.com/disgoorg/waifu-bot/waifubot/economy/session"
	"github.com/disgoorg/waifu-bot/waifubot/metrics"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

type DrawResult struct {
	Card    *models.Card
	Entry   *catalog.Entry
	Cost    decimal.Decimal
	Balance decimal.Decimal
}

type DrawService struct {
	stores   *Stores
	catalog  *catalog.Catalog
	roller   *waifu.Roller
	policy   waifu.Policy
	sessions *session.Manager
	src      waifu.RandSource
}

func NewDrawService(stores *Stores, cat *catalog.Catalog, policy waifu.Policy, sessions *session.Manager, src waifu.RandSource) (*DrawService, error) {
	if src == nil {
		src = waifu.DefaultSource
	}
	roller, err := waifu.NewRoller(policy.Weights, src)
	if err != nil {
		return nil, err
	}
	return &DrawService{
		stores:   stores,
		catalog:  cat,
		roller:   roller,
		policy:   policy,
		sessions: sessions,
		src:      src,
	}, nil
}

// Odds exposes the tier probabilities for a minimum, for display.
func (s *DrawService) Odds(minimum waifu.Tier) (map[waifu.Tier]float64, error) {
	return s.roller.Odds(minimum)
}

// Draw spends the draw cost and issues one new card. Debit, serial allocation and insert commit
// together or not at all.
func (s *DrawService) Draw(ctx context.Context, userID string, minimum waifu.Tier) (result *DrawResult, err error) {
	start := time.Now()
	defer func() { observe("draw", userID, start, err) }()

	cost, err := s.policy.DrawCost(minimum)
	if err != nil {
		return nil, err
	}

	release, err := s.sessions.Acquire(userID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.sessions.CheckCooldown(userID); err != nil {
		return nil, err
	}

	balance, err := s.stores.Accounts.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(cost) {
		return nil, fmt.Errorf("%w: draw costs %s, balance is %s", waifu.ErrInsufficientFunds, cost, balance)
	}

	tier, err := s.roller.Roll(minimum)
	if err != nil {
		return nil, err
	}
	entry, err := s.catalog.Pick(tier, s.src)
	if err != nil {
		return nil, err
	}

	card := &models.Card{CatalogID: entry.ID, Tier: tier, OwnerID: userID}
	err = s.stores.Tx.WithTransaction(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if balance, err = s.stores.Accounts.AdjustBalance(ctx, tx, userID, cost.Neg()); err != nil {
			return err
		}
		if card.Serial, err = s.stores.Serials.Next(ctx, tx, tier); err != nil {
			return err
		}
		return s.stores.Cards.Create(ctx, tx, card)
	})
	if err != nil {
		return nil, err
	}

	s.sessions.StartCooldown(userID)
	metrics.DrawsTotal.WithLabelValues(minimum.String(), string(tier)).Inc()
	metrics.DrawDuration.Observe(time.Since(start).Seconds())
	slog.Info("Card drawn",
		slog.String("type", "cmd"),
		slog.String("user_id", userID),
		slog.String("serial", card.Serial),
		slog.String("catalog_id", entry.ID),
		slog.String("minimum", minimum.String()),
		slog.String("cost", cost.String()),
		slog.Duration("took", time.Since(start)),
	)

	return &DrawResult{Card: card, Entry: entry, Cost: cost, Balance: balance}, nil
}
