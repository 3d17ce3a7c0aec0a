package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

const CardsPerPage = 10

var tierColors = map[waifu.Tier]int{
	waifu.TierSS: 0xFFD75A,
	waifu.TierS:  0xFA7878,
	waifu.TierA:  0xAA78FF,
	waifu.TierB:  0x5AAAFF,
	waifu.TierC:  0x6ED28C,
	waifu.TierD:  0xBEBEBE,
}

func TierColor(t waifu.Tier) int {
	if c, ok := tierColors[t]; ok {
		return c
	}
	return InfoColor
}

// FormatMoney renders a balance as dollars with cents.
func FormatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// FormatLevel renders a level as a run of stars, capped for display.
func FormatLevel(level int) string {
	if level > 10 {
		return fmt.Sprintf("★×%d", level)
	}
	return strings.Repeat("★", max(level, 0))
}

// CardLine is the one-line listing format: "`SS-000001` **Rem** SS ★★ 🔒".
func CardLine(serial, name string, tier waifu.Tier, level int, locked bool) string {
	line := fmt.Sprintf("`%s` **%s** %s %s", serial, name, tier, FormatLevel(level))
	if locked {
		line += " 🔒"
	}
	return line
}

// PageCount is at least one so empty listings still render.
func PageCount(total, perPage int) int {
	return max(1, (total+perPage-1)/perPage)
}
