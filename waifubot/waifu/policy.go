package waifu

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// PromotionLevel is the level at which the next upgrade promotes a card to the next tier.
const PromotionLevel = 3

// SaleRange bounds what a card of one tier can be sold for.
type SaleRange struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// Policy is the tunable game-balance table. Nothing in the ledger or account store reads it;
// services consult it before mutating.
type Policy struct {
	Weights Weights

	// DrawCosts is keyed by draw minimum; TierAny is the plain draw.
	DrawCosts map[Tier]decimal.Decimal

	// UpgradeBase is the Mgem price of one upgrade step below SS.
	UpgradeBase map[Tier]int64
	SSBaseCost  int64
	SSGrowth    float64

	SaleRanges map[Tier]SaleRange

	DrawCooldown time.Duration
	TradeExpiry  time.Duration
}

func DefaultPolicy() Policy {
	d := decimal.NewFromInt
	return Policy{
		Weights: DefaultWeights(),
		DrawCosts: map[Tier]decimal.Decimal{
			TierAny: d(3),
			TierC:   d(10),
			TierB:   d(30),
			TierA:   d(100),
		},
		UpgradeBase: map[Tier]int64{
			TierD:  1,
			TierC:  2,
			TierB:  3,
			TierA:  4,
			TierS:  5,
			TierSS: 10,
		},
		SSBaseCost: 10,
		SSGrowth:   1.7,
		SaleRanges: map[Tier]SaleRange{
			TierSS: {Min: d(1500), Max: d(3000)},
			TierS:  {Min: d(400), Max: d(1000)},
			TierA:  {Min: d(60), Max: d(90)},
			TierB:  {Min: d(18), Max: d(27)},
			TierC:  {Min: d(6), Max: d(9)},
			TierD:  {Min: decimal.RequireFromString("1.8"), Max: decimal.RequireFromString("2.7")},
		},
		TradeExpiry: 24 * time.Hour,
	}
}

func (p Policy) Validate() error {
	if err := p.Weights.Validate(); err != nil {
		return err
	}
	for _, minimum := range append([]Tier{TierAny}, MinimumTiers...) {
		cost, ok := p.DrawCosts[minimum]
		if !ok || !cost.IsPositive() {
			return fmt.Errorf("%w: draw cost for minimum %s must be positive", ErrInvalidArgument, minimum)
		}
	}
	for _, tier := range Tiers {
		if tier != TierSS && p.UpgradeBase[tier] <= 0 {
			return fmt.Errorf("%w: upgrade cost for tier %s must be positive", ErrInvalidArgument, tier)
		}
		r, ok := p.SaleRanges[tier]
		if !ok || r.Min.IsNegative() || r.Max.LessThan(r.Min) {
			return fmt.Errorf("%w: sale range for tier %s is invalid", ErrInvalidArgument, tier)
		}
	}
	if p.SSBaseCost <= 0 || p.SSGrowth < 1 {
		return fmt.Errorf("%w: SS upgrade cost must be positive and non-decreasing", ErrInvalidArgument)
	}
	if p.DrawCooldown < 0 || p.TradeExpiry < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidArgument)
	}
	return nil
}

// DrawCost is the currency price of a draw with the given minimum.
func (p Policy) DrawCost(minimum Tier) (decimal.Decimal, error) {
	if !ValidMinimum(minimum) {
		return decimal.Zero, fmt.Errorf("%w: %q is not a draw minimum", ErrInvalidArgument, string(minimum))
	}
	cost, ok := p.DrawCosts[minimum]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no draw cost for minimum %s", ErrInvalidArgument, minimum)
	}
	return cost, nil
}

// UpgradeCost is the Mgem price of upgrading a card currently at tier/level.
// SS cards grow geometrically: SSBaseCost * SSGrowth^(level-1), rounded and saturated at
// math.MaxInt64 once the product leaves the int64 range.
func (p Policy) UpgradeCost(tier Tier, level int) int64 {
	if level < 1 {
		level = 1
	}
	if tier != TierSS {
		return p.UpgradeBase[tier]
	}
	cost := math.Round(float64(p.SSBaseCost) * math.Pow(p.SSGrowth, float64(level-1)))
	if math.IsNaN(cost) || cost >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(cost)
}

// SaleValue interpolates linearly inside the tier's range: rank 1 (most popular) sells for Max,
// the last rank for Min. Ranks outside [1, tierSize] are clamped.
func (p Policy) SaleValue(tier Tier, rank, tierSize int) decimal.Decimal {
	r, ok := p.SaleRanges[tier]
	if !ok {
		return decimal.Zero
	}
	if tierSize <= 1 {
		return r.Max.Round(2)
	}
	rank = max(1, min(rank, tierSize))

	frac := decimal.NewFromInt(int64(rank - 1)).Div(decimal.NewFromInt(int64(tierSize - 1)))
	return r.Max.Sub(r.Max.Sub(r.Min).Mul(frac)).Round(2)
}

// Advance computes the tier and level after one upgrade step.
// Below PromotionLevel the level rises; at PromotionLevel the card is promoted and reset to 1;
// SS cards keep levelling.
func Advance(tier Tier, level int) (Tier, int, error) {
	if !tier.Valid() {
		return TierAny, 0, fmt.Errorf("%w: unknown tier %q", ErrInvalidArgument, string(tier))
	}
	if level < 1 {
		return TierAny, 0, fmt.Errorf("%w: level %d", ErrInvalidArgument, level)
	}
	if tier == TierSS || level < PromotionLevel {
		return tier, level + 1, nil
	}
	next, err := tier.Next()
	if err != nil {
		return TierAny, 0, err
	}
	return next, 1, nil
}

// UpgradeResult describes one applied upgrade step.
type UpgradeResult struct {
	Serial    string
	FromTier  Tier
	FromLevel int
	Tier      Tier
	Level     int
	Promoted  bool
	Cost      int64
}
