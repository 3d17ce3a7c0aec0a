package waifu

import (
	"fmt"
	"strings"
)

// Tier is a card rarity. The zero value means "any tier" where a minimum is accepted.
type Tier string

const (
	TierAny Tier = ""
	TierSS  Tier = "SS"
	TierS   Tier = "S"
	TierA   Tier = "A"
	TierB   Tier = "B"
	TierC   Tier = "C"
	TierD   Tier = "D"
)

// Tiers lists every tier from rarest to most common.
var Tiers = []Tier{TierSS, TierS, TierA, TierB, TierC, TierD}

// MinimumTiers are the tiers a targeted draw may ask for.
var MinimumTiers = []Tier{TierA, TierB, TierC}

// ParseTier accepts any casing and surrounding whitespace.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if t.Valid() {
		return t, nil
	}
	return TierAny, fmt.Errorf("%w: unknown tier %q", ErrInvalidArgument, s)
}

func (t Tier) Valid() bool {
	return t.Rank() >= 0
}

// Rank is 0 for SS and grows towards D; -1 for anything else.
func (t Tier) Rank() int {
	for i, tier := range Tiers {
		if tier == t {
			return i
		}
	}
	return -1
}

// RarerThan reports whether t is strictly rarer than other.
func (t Tier) RarerThan(other Tier) bool {
	return t.Valid() && other.Valid() && t.Rank() < other.Rank()
}

// AtLeast reports whether t is minimum or rarer.
func (t Tier) AtLeast(minimum Tier) bool {
	if minimum == TierAny {
		return t.Valid()
	}
	return t.Valid() && minimum.Valid() && t.Rank() <= minimum.Rank()
}

// Next returns the tier one step rarer.
func (t Tier) Next() (Tier, error) {
	switch {
	case t == TierSS:
		return TierSS, ErrAlreadyMaxTier
	case !t.Valid():
		return TierAny, fmt.Errorf("%w: unknown tier %q", ErrInvalidArgument, string(t))
	}
	return Tiers[t.Rank()-1], nil
}

func (t Tier) String() string {
	if t == TierAny {
		return "any"
	}
	return string(t)
}

// ValidMinimum reports whether t may be used as a draw minimum.
func ValidMinimum(t Tier) bool {
	if t == TierAny {
		return true
	}
	for _, m := range MinimumTiers {
		if m == t {
			return true
		}
	}
	return false
}
