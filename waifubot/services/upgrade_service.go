package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/uptrace/bun"

	"github.com/disgoorg/waifu-bot/waifubot/economy/session"
	"github.com/disgoorg/waifu-bot/waifubot/metrics"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

type UpgradeQuote struct {
	Serial    string
	Tier      waifu.Tier
	Level     int
	NextTier  waifu.Tier
	NextLevel int
	Promotes  bool
	Cost      int64
}

type UpgradeService struct {
	stores   *Stores
	policy   waifu.Policy
	sessions *session.Manager
}

func NewUpgradeService(stores *Stores, policy waifu.Policy, sessions *session.Manager) *UpgradeService {
	return &UpgradeService{stores: stores, policy: policy, sessions: sessions}
}

func (s *UpgradeService) Quote(ctx context.Context, ownerID, serial string) (*UpgradeQuote, error) {
	card, err := s.stores.Cards.Get(ctx, nil, serial)
	if err != nil {
		return nil, err
	}
	if card.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: %s", waifu.ErrNotOwner, card.Serial)
	}
	tier, level, err := waifu.Advance(card.Tier, card.Level)
	if err != nil {
		return nil, err
	}
	return &UpgradeQuote{
		Serial:    card.Serial,
		Tier:      card.Tier,
		Level:     card.Level,
		NextTier:  tier,
		NextLevel: level,
		Promotes:  tier != card.Tier,
		Cost:      s.policy.UpgradeCost(card.Tier, card.Level),
	}, nil
}

// Upgrade charges the step's Mgem cost and applies it atomically.
func (s *UpgradeService) Upgrade(ctx context.Context, ownerID, serial string) (result *waifu.UpgradeResult, err error) {
	start := time.Now()
	defer func() { observe("upgrade", ownerID, start, err) }()

	release, err := s.sessions.Acquire(ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	quote, err := s.Quote(ctx, ownerID, serial)
	if err != nil {
		return nil, err
	}
	mgems, err := s.stores.Accounts.GetMgems(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if mgems < quote.Cost {
		return nil, fmt.Errorf("%w: upgrade costs %d Mgems, you have %d", waifu.ErrInsufficientFunds, quote.Cost, mgems)
	}

	err = s.stores.Tx.WithTransaction(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.stores.Accounts.AdjustMgems(ctx, tx, ownerID, -quote.Cost); err != nil {
			return err
		}
		res, err := s.stores.Cards.Upgrade(ctx, tx, quote.Serial, ownerID)
		if err != nil {
			return err
		}
		if res.FromTier != quote.Tier || res.FromLevel != quote.Level {
			return fmt.Errorf("%w: card %s changed while upgrading", waifu.ErrBusy, quote.Serial)
		}
		res.Cost = quote.Cost
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.UpgradesTotal.WithLabelValues(string(result.Tier), strconv.FormatBool(result.Promoted)).Inc()
	slog.Info("Card upgraded",
		slog.String("type", "cmd"),
		slog.String("user_id", ownerID),
		slog.String("serial", result.Serial),
		slog.String("tier", string(result.Tier)),
		slog.Int("level", result.Level),
		slog.Int64("cost", result.Cost),
		slog.Duration("took", time.Since(start)),
	)
	return result, nil
}
