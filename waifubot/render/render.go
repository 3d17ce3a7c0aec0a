package render

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/disgoorg/waifu-bot/waifubot/catalog"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

// ErrArtNotFound is returned by an ArtSource that has no image for a key.
var ErrArtNotFound = errors.New("art not found")

// Input is everything a card image depends on.
type Input struct {
	Serial     string
	Tier       waifu.Tier
	Level      int
	Entry      *catalog.Entry
	OwnerLabel string
}

// Name is the entry name, or the serial if the entry left the catalog.
func (in Input) Name() string {
	if in.Entry != nil {
		return in.Entry.Name
	}
	return in.Serial
}

func (in Input) artKey() string {
	if in.Entry == nil {
		return ""
	}
	return in.Entry.Image
}

// Renderer turns a card into a PNG. Output need not be byte-stable across calls,
// but a higher level always renders with more ornament.
type Renderer interface {
	Render(ctx context.Context, in Input) ([]byte, error)
}

// ArtSource fetches the raw portrait bytes for a catalog image key.
type ArtSource interface {
	Art(ctx context.Context, key string) ([]byte, error)
}

// Ornament is how much decoration a card level earns.
type Ornament struct {
	Stars     int
	Sparkles  int
	Border    float64
	GlowAlpha uint8
	Badge     string
}

// ornamentSaturation is the level at which stars, border and glow stop growing.
// Sparkles keep growing past it on a log scale and the badge always shows the level.
const ornamentSaturation = 10

func OrnamentFor(level int) Ornament {
	level = max(1, level)
	capped := min(level, ornamentSaturation)
	sparkles := capped * 6
	if level > ornamentSaturation {
		sparkles += int(24 * math.Log2(float64(level-ornamentSaturation+1)))
	}
	return Ornament{
		Stars:     capped,
		Sparkles:  sparkles,
		Border:    4 + float64(capped)*1.5,
		GlowAlpha: uint8(40 + capped*20),
		Badge:     fmt.Sprintf("Lv %d", level),
	}
}

type palette struct {
	top, bottom, accent [3]uint8
}

var palettes = map[waifu.Tier]palette{
	waifu.TierSS: {top: [3]uint8{255, 215, 90}, bottom: [3]uint8{200, 60, 160}, accent: [3]uint8{255, 245, 200}},
	waifu.TierS:  {top: [3]uint8{250, 120, 120}, bottom: [3]uint8{120, 30, 90}, accent: [3]uint8{255, 210, 210}},
	waifu.TierA:  {top: [3]uint8{170, 120, 255}, bottom: [3]uint8{60, 30, 130}, accent: [3]uint8{225, 210, 255}},
	waifu.TierB:  {top: [3]uint8{90, 170, 255}, bottom: [3]uint8{20, 60, 130}, accent: [3]uint8{200, 230, 255}},
	waifu.TierC:  {top: [3]uint8{110, 210, 140}, bottom: [3]uint8{30, 90, 60}, accent: [3]uint8{210, 250, 220}},
	waifu.TierD:  {top: [3]uint8{190, 190, 190}, bottom: [3]uint8{80, 80, 90}, accent: [3]uint8{240, 240, 240}},
}

func paletteFor(tier waifu.Tier) palette {
	if p, ok := palettes[tier]; ok {
		return p
	}
	return palettes[waifu.TierD]
}
