package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math/rand/v2"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	cardWidth  = 400
	cardHeight = 600
	artTop     = 70
	artHeight  = 380
)

// RasterRenderer draws cards in-process with gg.
type RasterRenderer struct {
	art   ArtSource
	title font.Face
	body  font.Face
	small font.Face
}

// NewRasterRenderer parses the embedded Go fonts. art may be nil.
func NewRasterRenderer(art ArtSource) (*RasterRenderer, error) {
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	return &RasterRenderer{
		art:   art,
		title: truetype.NewFace(bold, &truetype.Options{Size: 30}),
		body:  truetype.NewFace(regular, &truetype.Options{Size: 20}),
		small: truetype.NewFace(regular, &truetype.Options{Size: 15}),
	}, nil
}

func rgba(c [3]uint8, a uint8) color.RGBA {
	return color.RGBA{c[0], c[1], c[2], a}
}

func (r *RasterRenderer) Render(ctx context.Context, in Input) ([]byte, error) {
	pal := paletteFor(in.Tier)
	orn := OrnamentFor(in.Level)
	dc := gg.NewContext(cardWidth, cardHeight)

	grad := gg.NewLinearGradient(0, 0, cardWidth, cardHeight)
	grad.AddColorStop(0, rgba(pal.top, 255))
	grad.AddColorStop(1, rgba(pal.bottom, 255))
	dc.SetFillStyle(grad)
	dc.DrawRoundedRectangle(0, 0, cardWidth, cardHeight, 24)
	dc.Fill()

	r.drawArt(ctx, dc, in, pal)

	// Glow and border both thicken with level.
	dc.SetColor(rgba(pal.accent, orn.GlowAlpha))
	dc.SetLineWidth(orn.Border * 2)
	dc.DrawRoundedRectangle(orn.Border, orn.Border, cardWidth-2*orn.Border, cardHeight-2*orn.Border, 20)
	dc.Stroke()
	dc.SetColor(rgba(pal.accent, 255))
	dc.SetLineWidth(orn.Border / 2)
	dc.DrawRoundedRectangle(orn.Border, orn.Border, cardWidth-2*orn.Border, cardHeight-2*orn.Border, 20)
	dc.Stroke()

	for i := 0; i < orn.Sparkles; i++ {
		x, y := rand.Float64()*cardWidth, rand.Float64()*cardHeight
		dc.SetColor(rgba(pal.accent, uint8(120+rand.IntN(135))))
		dc.DrawCircle(x, y, 1+rand.Float64()*2)
		dc.Fill()
	}

	dc.SetFontFace(r.title)
	dc.SetColor(color.Black)
	dc.DrawStringAnchored(string(in.Tier), 38, 42, 0.5, 0.5)
	dc.SetColor(color.White)
	dc.DrawStringAnchored(string(in.Tier), 36, 40, 0.5, 0.5)

	dc.SetFontFace(r.title)
	dc.SetColor(color.White)
	dc.DrawStringAnchored(truncate(in.Name(), 22), cardWidth/2, artTop+artHeight+32, 0.5, 0.5)

	dc.SetFontFace(r.body)
	if in.Entry != nil && in.Entry.Series != "" {
		dc.DrawStringAnchored(truncate(in.Entry.Series, 32), cardWidth/2, artTop+artHeight+62, 0.5, 0.5)
	}
	drawPips(dc, orn.Stars, artTop+artHeight+96, pal)

	dc.SetFontFace(r.small)
	dc.DrawStringAnchored(in.Serial, cardWidth-24, 40, 1, 0.5)
	dc.SetColor(rgba(pal.accent, 255))
	dc.DrawStringAnchored(orn.Badge, cardWidth-24, 58, 1, 0.5)
	dc.SetColor(color.White)
	if in.OwnerLabel != "" {
		dc.DrawStringAnchored(truncate(in.OwnerLabel, 40), cardWidth/2, cardHeight-22, 0.5, 0.5)
	}

	buf := new(bytes.Buffer)
	if err := dc.EncodePNG(buf); err != nil {
		return nil, fmt.Errorf("failed to encode card: %w", err)
	}
	return buf.Bytes(), nil
}

// drawArt fills the portrait frame. Missing art leaves a tinted placeholder.
func (r *RasterRenderer) drawArt(ctx context.Context, dc *gg.Context, in Input, pal palette) {
	const frameX, frameW = 30.0, cardWidth - 60.0

	dc.SetColor(rgba(pal.bottom, 160))
	dc.DrawRoundedRectangle(frameX, artTop, frameW, artHeight, 12)
	dc.Fill()

	key := in.artKey()
	if r.art == nil || key == "" {
		return
	}
	raw, err := r.art.Art(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrArtNotFound) {
			slog.Warn("Failed to fetch card art",
				slog.String("type", "sys"),
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
		return
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		slog.Warn("Failed to decode card art",
			slog.String("type", "sys"),
			slog.String("key", key),
			slog.Any("error", err),
		)
		return
	}

	b := img.Bounds()
	scale := min(frameW/float64(b.Dx()), artHeight/float64(b.Dy()))
	dc.Push()
	dc.DrawRoundedRectangle(frameX, artTop, frameW, artHeight, 12)
	dc.Clip()
	dc.Translate(frameX+(frameW-float64(b.Dx())*scale)/2, artTop+(artHeight-float64(b.Dy())*scale)/2)
	dc.Scale(scale, scale)
	dc.DrawImage(img, 0, 0)
	dc.Pop()
	dc.ResetClip()
}

// drawPips draws one diamond per level, centred on y.
func drawPips(dc *gg.Context, n int, y float64, pal palette) {
	const size, gap = 7.0, 20.0
	x := cardWidth/2 - gap*float64(n-1)/2
	for i := 0; i < n; i++ {
		dc.DrawRegularPolygon(4, x+gap*float64(i), y, size, 0)
		dc.SetColor(rgba(pal.accent, 255))
		dc.FillPreserve()
		dc.SetColor(color.Black)
		dc.SetLineWidth(1)
		dc.Stroke()
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
