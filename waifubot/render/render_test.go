package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/disgoorg/waifu-bot/waifubot/catalog"
	"github.com/disgoorg/waifu-bot/waifubot/render/mock"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

var testInput = Input{
	Serial:     "SS-000001",
	Tier:       waifu.TierSS,
	Level:      3,
	Entry:      &catalog.Entry{ID: "rem", Name: "Rem", Series: "Re:Zero", Tier: waifu.TierSS, Image: "rem.png"},
	OwnerLabel: "alice",
}

func portrait(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 30))
	for x := 0; x < 20; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{200, 10, 10, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestOrnamentFor(t *testing.T) {
	prev := OrnamentFor(1)
	for level := 2; level <= 10; level++ {
		o := OrnamentFor(level)
		if o.Stars <= prev.Stars || o.Sparkles <= prev.Sparkles || o.Border <= prev.Border || o.GlowAlpha <= prev.GlowAlpha {
			t.Fatalf("OrnamentFor(%d) = %+v, not above level %d's %+v", level, o, level-1, prev)
		}
		prev = o
	}
	for level := 11; level <= 40; level++ {
		o := OrnamentFor(level)
		if o == prev || o.Sparkles <= prev.Sparkles {
			t.Fatalf("OrnamentFor(%d) = %+v, not above level %d's %+v", level, o, level-1, prev)
		}
		prev = o
	}
	if OrnamentFor(0) != OrnamentFor(1) {
		t.Error("OrnamentFor does not clamp below level 1")
	}

	tests := []struct {
		level int
		want  Ornament
	}{
		{level: 10, want: Ornament{Stars: 10, Sparkles: 60, Border: 19, GlowAlpha: 240, Badge: "Lv 10"}},
		{level: 11, want: Ornament{Stars: 10, Sparkles: 84, Border: 19, GlowAlpha: 240, Badge: "Lv 11"}},
		{level: 50, want: Ornament{Stars: 10, Sparkles: 60 + int(24*math.Log2(41)), Border: 19, GlowAlpha: 240, Badge: "Lv 50"}},
	}
	for _, tt := range tests {
		if got := OrnamentFor(tt.level); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("OrnamentFor(%d) = %+v, want %+v", tt.level, got, tt.want)
		}
	}
}

func TestRasterRenderer_Render(t *testing.T) {
	tests := []struct {
		name  string
		art   func(*mock.MockArtSource)
		input Input
	}{
		{
			name: "with art",
			art: func(m *mock.MockArtSource) {
				m.EXPECT().Art(gomock.Any(), "rem.png").Return(portrait(t), nil)
			},
			input: testInput,
		},
		{
			name: "art missing",
			art: func(m *mock.MockArtSource) {
				m.EXPECT().Art(gomock.Any(), "rem.png").Return(nil, ErrArtNotFound)
			},
			input: testInput,
		},
		{
			name: "art is not an image",
			art: func(m *mock.MockArtSource) {
				m.EXPECT().Art(gomock.Any(), "rem.png").Return([]byte("nope"), nil)
			},
			input: testInput,
		},
		{
			name:  "entry left the catalog",
			art:   func(*mock.MockArtSource) {},
			input: Input{Serial: "D-000009", Tier: waifu.TierD, Level: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art := mock.NewMockArtSource(gomock.NewController(t))
			tt.art(art)
			r, err := NewRasterRenderer(art)
			if err != nil {
				t.Fatal(err)
			}

			out, err := r.Render(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			img, err := png.Decode(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("Render() produced an invalid PNG: %v", err)
			}
			if b := img.Bounds(); b.Dx() != cardWidth || b.Dy() != cardHeight {
				t.Errorf("image is %dx%d", b.Dx(), b.Dy())
			}
		})
	}
}

func TestHTMLRenderer_Page(t *testing.T) {
	art := mock.NewMockArtSource(gomock.NewController(t))
	art.EXPECT().Art(gomock.Any(), "rem.png").Return(portrait(t), nil)
	r, err := NewHTMLRenderer(art)
	if err != nil {
		t.Fatal(err)
	}

	page, err := r.page(context.Background(), testInput)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Rem", "Re:Zero", "SS-000001", "alice", "Lv 3", "data:image/png;base64,"} {
		if !strings.Contains(page, want) {
			t.Errorf("page is missing %q", want)
		}
	}
	if strings.Contains(page, "#") || strings.Contains(page, "\n") {
		t.Error("page is not escaped for a data URL")
	}
}

type countingRenderer struct {
	calls int
	err   error
}

func (c *countingRenderer) Render(_ context.Context, in Input) ([]byte, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []byte(in.Serial), nil
}

func TestCachedRenderer(t *testing.T) {
	next := &countingRenderer{}
	r, err := NewCachedRenderer(next, "test", 8)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	upgraded := testInput
	upgraded.Level++
	traded := testInput
	traded.OwnerLabel = "bob"

	for _, in := range []Input{testInput, testInput, upgraded, traded, upgraded} {
		if _, err := r.Render(ctx, in); err != nil {
			t.Fatal(err)
		}
	}
	if next.calls != 3 {
		t.Errorf("underlying renderer called %d times, want 3", next.calls)
	}

	r.Purge()
	next.err = errors.New("boom")
	if _, err := r.Render(ctx, testInput); err == nil {
		t.Error("Render() after purge did not reach the failing renderer")
	}
	next.err = nil
	if _, err := r.Render(ctx, testInput); err != nil || next.calls != 5 {
		t.Errorf("failed render was cached: calls = %d, err = %v", next.calls, err)
	}
}

func TestNew(t *testing.T) {
	if _, err := New("gg", nil, 0); err != nil {
		t.Errorf("New(gg) error = %v", err)
	}
	r, err := New("", nil, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.(*CachedRenderer); !ok {
		t.Errorf("New with cache size returned %T", r)
	}
	if _, err := New("svg", nil, 0); err == nil {
		t.Error("New(svg) succeeded")
	}
}
