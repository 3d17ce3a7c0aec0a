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

type SaleResult struct {
	Card    *models.Card
	Value   decimal.Decimal
	Balance decimal.Decimal
}

type SaleService struct {
	stores   *Stores
	catalog  *catalog.Catalog
	policy   waifu.Policy
	sessions *session.Manager
}

func NewSaleService(stores *Stores, cat *catalog.Catalog, policy waifu.Policy, sessions *session.Manager) *SaleService {
	return &SaleService{stores: stores, catalog: cat, policy: policy, sessions: sessions}
}

// Value prices a card by its current tier and its catalog entry's popularity rank.
// Cards whose entry left the catalog sell at the tier minimum.
func (s *SaleService) Value(card *models.Card) decimal.Decimal {
	rank, size, ok := s.catalog.Rank(card.CatalogID)
	if !ok {
		return s.policy.SaleRanges[card.Tier].Min
	}
	return s.policy.SaleValue(card.Tier, rank, size)
}

// Quote returns what Sell would pay for serial right now, without selling.
func (s *SaleService) Quote(ctx context.Context, serial string) (*models.Card, decimal.Decimal, error) {
	card, err := s.stores.Cards.Get(ctx, nil, serial)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return card, s.Value(card), nil
}

// Sell deletes the card and credits its value in one transaction. A card that was already sold,
// moved or locked is not credited.
func (s *SaleService) Sell(ctx context.Context, ownerID, serial string) (result *SaleResult, err error) {
	start := time.Now()
	defer func() { observe("sell", ownerID, start, err) }()

	release, err := s.sessions.Acquire(ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	card, err := s.stores.Cards.Get(ctx, nil, serial)
	if err != nil {
		return nil, err
	}
	switch {
	case card.OwnerID != ownerID:
		return nil, fmt.Errorf("%w: %s", waifu.ErrNotOwner, card.Serial)
	case card.Locked:
		return nil, fmt.Errorf("%w: %s", waifu.ErrCardLocked, card.Serial)
	}

	result = &SaleResult{}
	err = s.stores.Tx.WithTransaction(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		taken, err := s.stores.Cards.Take(ctx, tx, card.Serial, ownerID)
		if err != nil {
			return err
		}
		if taken == nil {
			return fmt.Errorf("%w: %s is no longer available", waifu.ErrCardNotFound, card.Serial)
		}
		result.Card = taken
		result.Value = s.Value(taken)
		result.Balance, err = s.stores.Accounts.AdjustBalance(ctx, tx, ownerID, result.Value)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.SalesTotal.WithLabelValues(string(result.Card.Tier)).Inc()
	slog.Info("Card sold",
		slog.String("type", "cmd"),
		slog.String("user_id", ownerID),
		slog.String("serial", result.Card.Serial),
		slog.String("value", result.Value.String()),
		slog.Duration("took", time.Since(start)),
	)
	return result, nil
}
