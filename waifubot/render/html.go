package render

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

//go:embed templates/card.html
var cardTemplate string

type cardData struct {
	Tier, Serial, Name, Series, Owner string
	Badge                             string
	Top, Bottom, Accent               template.CSS
	Border, Glow                      int
	Pips                              []struct{}
	Art                               template.URL
}

// HTMLRenderer lays the card out as HTML and screenshots it with headless Chrome.
type HTMLRenderer struct {
	art     ArtSource
	tmpl    *template.Template
	timeout time.Duration
	logger  *slog.Logger
}

func NewHTMLRenderer(art ArtSource) (*HTMLRenderer, error) {
	tmpl, err := template.New("card").Parse(cardTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse card template: %w", err)
	}
	return &HTMLRenderer{
		art:     art,
		tmpl:    tmpl,
		timeout: 15 * time.Second,
		logger:  slog.With(slog.String("service", "card_renderer")),
	}, nil
}

// CheckAvailability reports whether a Chrome binary can be driven.
func (r *HTMLRenderer) CheckAvailability(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	chromeCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	return chromedp.Run(chromeCtx, chromedp.Navigate("data:text/html,<html><body>ok</body></html>"))
}

func (r *HTMLRenderer) Render(ctx context.Context, in Input) ([]byte, error) {
	start := time.Now()
	page, err := r.page(ctx, in)
	if err != nil {
		return nil, err
	}

	chromeCtx, cancel := chromedp.NewContext(ctx, chromedp.WithLogf(func(string, ...any) {}))
	defer cancel()
	chromeCtx, cancel = context.WithTimeout(chromeCtx, r.timeout)
	defer cancel()

	var img []byte
	err = chromedp.Run(chromeCtx,
		chromedp.Navigate("data:text/html,"+page),
		chromedp.WaitVisible("#card-container", chromedp.ByID),
		chromedp.Screenshot("#card-container", &img, chromedp.ByID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to screenshot card: %w", err)
	}

	r.logger.Debug("Card rendered",
		slog.String("type", "sys"),
		slog.String("serial", in.Serial),
		slog.Int("size", len(img)),
		slog.Duration("took", time.Since(start)),
	)
	return img, nil
}

// page executes the template and escapes it for a data: URL.
func (r *HTMLRenderer) page(ctx context.Context, in Input) (string, error) {
	pal := paletteFor(in.Tier)
	orn := OrnamentFor(in.Level)
	data := cardData{
		Tier:   string(in.Tier),
		Serial: in.Serial,
		Name:   in.Name(),
		Owner:  in.OwnerLabel,
		Top:    cssColor(pal.top),
		Bottom: cssColor(pal.bottom),
		Accent: cssColor(pal.accent),
		Border: int(orn.Border),
		Glow:   int(orn.GlowAlpha) / 4,
		Pips:   make([]struct{}, orn.Stars),
		Badge:  orn.Badge,
		Art:    r.artURL(ctx, in),
	}
	if in.Entry != nil {
		data.Series = in.Entry.Series
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute card template: %w", err)
	}
	page := strings.ReplaceAll(buf.String(), "%", "%25")
	page = strings.ReplaceAll(page, "#", "%23")
	return strings.ReplaceAll(page, "\n", ""), nil
}

func (r *HTMLRenderer) artURL(ctx context.Context, in Input) template.URL {
	key := in.artKey()
	if r.art == nil || key == "" {
		return ""
	}
	raw, err := r.art.Art(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrArtNotFound) {
			r.logger.Warn("Failed to fetch card art", slog.String("key", key), slog.Any("error", err))
		}
		return ""
	}
	return template.URL("data:" + http.DetectContentType(raw) + ";base64," + base64.StdEncoding.EncodeToString(raw))
}

func cssColor(c [3]uint8) template.CSS {
	return template.CSS(fmt.Sprintf("rgb(%d,%d,%d)", c[0], c[1], c[2]))
}
