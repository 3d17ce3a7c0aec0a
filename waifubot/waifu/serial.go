package waifu

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatSerial renders "{tier}-{counter:06d}". Counters past six digits are not truncated.
func FormatSerial(tier Tier, counter int64) string {
	return fmt.Sprintf("%s-%06d", tier, counter)
}

// ParseSerial splits a serial back into its tier and counter.
func ParseSerial(serial string) (Tier, int64, error) {
	serial = strings.ToUpper(strings.TrimSpace(serial))
	idx := strings.LastIndex(serial, "-")
	if idx <= 0 || idx == len(serial)-1 {
		return TierAny, 0, fmt.Errorf("%w: malformed serial %q", ErrInvalidArgument, serial)
	}
	tier := Tier(serial[:idx])
	if !tier.Valid() {
		return TierAny, 0, fmt.Errorf("%w: malformed serial %q", ErrInvalidArgument, serial)
	}
	n, err := strconv.ParseInt(serial[idx+1:], 10, 64)
	if err != nil || n <= 0 {
		return TierAny, 0, fmt.Errorf("%w: malformed serial %q", ErrInvalidArgument, serial)
	}
	return tier, n, nil
}

// NormalizeSerial uppercases and trims user input without validating it.
func NormalizeSerial(serial string) string {
	return strings.ToUpper(strings.TrimSpace(serial))
}
