package waifu

import (
	"fmt"
	"math/rand/v2"
)

// RandSource is the randomness a Roller or catalog pick draws from.
// *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	Float64() float64
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) IntN(n int) int   { return rand.IntN(n) }

// DefaultSource is backed by the goroutine-safe top-level math/rand/v2 functions.
var DefaultSource RandSource = globalSource{}

// Weights maps each tier to its relative draw weight.
type Weights map[Tier]float64

// DefaultWeights roughly matches 0.1% SS, 0.9% S, 4% A, 10% B, 20% C, 65% D.
func DefaultWeights() Weights {
	return Weights{
		TierSS: 0.1,
		TierS:  0.9,
		TierA:  4,
		TierB:  10,
		TierC:  20,
		TierD:  65,
	}
}

// Validate requires a positive weight for every tier and D > C > B > A > S > SS.
func (w Weights) Validate() error {
	for i, tier := range Tiers {
		weight, ok := w[tier]
		if !ok || weight <= 0 {
			return fmt.Errorf("%w: weight for tier %s must be positive", ErrInvalidArgument, tier)
		}
		if i > 0 && weight <= w[Tiers[i-1]] {
			return fmt.Errorf("%w: tier %s must weigh more than tier %s", ErrInvalidArgument, tier, Tiers[i-1])
		}
	}
	return nil
}

// Roller picks a tier from weighted odds. It holds no state besides its source.
type Roller struct {
	weights Weights
	src     RandSource
}

func NewRoller(weights Weights, src RandSource) (*Roller, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		src = DefaultSource
	}
	w := make(Weights, len(weights))
	for k, v := range weights {
		w[k] = v
	}
	return &Roller{weights: w, src: src}, nil
}

// Roll draws a tier. With a minimum of A, B or C only that tier and rarer ones are eligible,
// re-normalized. TierAny draws from the full table.
func (r *Roller) Roll(minimum Tier) (Tier, error) {
	if !ValidMinimum(minimum) {
		return TierAny, fmt.Errorf("%w: %q is not a draw minimum", ErrInvalidArgument, string(minimum))
	}

	eligible := r.eligible(minimum)
	var total float64
	for _, tier := range eligible {
		total += r.weights[tier]
	}

	roll := r.src.Float64() * total
	var acc float64
	for _, tier := range eligible {
		acc += r.weights[tier]
		if roll < acc {
			return tier, nil
		}
	}
	// float rounding on roll ~= total
	return eligible[len(eligible)-1], nil
}

// Odds returns the normalized probability of each eligible tier.
func (r *Roller) Odds(minimum Tier) (map[Tier]float64, error) {
	if !ValidMinimum(minimum) {
		return nil, fmt.Errorf("%w: %q is not a draw minimum", ErrInvalidArgument, string(minimum))
	}
	eligible := r.eligible(minimum)
	var total float64
	for _, tier := range eligible {
		total += r.weights[tier]
	}
	odds := make(map[Tier]float64, len(eligible))
	for _, tier := range eligible {
		odds[tier] = r.weights[tier] / total
	}
	return odds, nil
}

func (r *Roller) eligible(minimum Tier) []Tier {
	out := make([]Tier, 0, len(Tiers))
	for _, tier := range Tiers {
		if tier.AtLeast(minimum) {
			out = append(out, tier)
		}
	}
	return out
}
