package render

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/disgoorg/waifu-bot/waifubot/metrics"
)

type cacheKey struct {
	serial string
	tier   string
	level  int
	owner  string
}

// CachedRenderer memoizes rendered images. Upgrades and owner changes produce a new key,
// so stale images are never served.
type CachedRenderer struct {
	next   Renderer
	engine string
	cache  *lru.Cache
}

func NewCachedRenderer(next Renderer, engine string, size int) (*CachedRenderer, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create render cache: %w", err)
	}
	return &CachedRenderer{next: next, engine: engine, cache: cache}, nil
}

func (c *CachedRenderer) Render(ctx context.Context, in Input) ([]byte, error) {
	key := cacheKey{serial: in.Serial, tier: string(in.Tier), level: in.Level, owner: in.OwnerLabel}
	if v, ok := c.cache.Get(key); ok {
		metrics.RendersTotal.WithLabelValues(c.engine, "hit").Inc()
		return v.([]byte), nil
	}

	img, err := c.next.Render(ctx, in)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, img)
	metrics.RendersTotal.WithLabelValues(c.engine, "miss").Inc()
	return img, nil
}

// Purge drops every cached image, e.g. after the catalog art changes.
func (c *CachedRenderer) Purge() {
	c.cache.Purge()
}

// New builds the configured engine ("gg" or "html") behind a cache. A cacheSize of zero disables caching.
func New(engine string, art ArtSource, cacheSize int) (Renderer, error) {
	var (
		r   Renderer
		err error
	)
	switch engine {
	case "", "gg":
		engine = "gg"
		r, err = NewRasterRenderer(art)
	case "html":
		r, err = NewHTMLRenderer(art)
	default:
		return nil, fmt.Errorf("unknown render engine %q", engine)
	}
	if err != nil {
		return nil, err
	}
	if cacheSize <= 0 {
		return r, nil
	}
	cached, err := NewCachedRenderer(r, engine, cacheSize)
	if err != nil {
		return nil, err
	}
	return cached, nil
}
