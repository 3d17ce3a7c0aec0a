package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sahilm/fuzzy"

	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

// Entry is one character/art definition. Popularity 1 is the most popular entry of its tier.
type Entry struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Series     string     `json:"series"`
	Tier       waifu.Tier `json:"tier"`
	Popularity int        `json:"popularity"`
	Image      string     `json:"image"`
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	byID   map[string]*Entry
	byTier map[waifu.Tier][]*Entry
	rank   map[string]int
	all    []*Entry
}

type file struct {
	Entries []Entry `json:"entries"`
}

// Load reads a catalog file of the form {"entries": [...]}.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return New(f.Entries)
}

// New validates entries and indexes them. Tiers are normalized; IDs must be unique.
func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		byID:   make(map[string]*Entry, len(entries)),
		byTier: make(map[waifu.Tier][]*Entry),
		rank:   make(map[string]int, len(entries)),
		all:    make([]*Entry, 0, len(entries)),
	}

	for i := range entries {
		e := entries[i]
		e.ID = strings.TrimSpace(e.ID)
		e.Name = strings.TrimSpace(e.Name)
		if e.ID == "" || e.Name == "" {
			return nil, fmt.Errorf("%w: catalog entry %d needs an id and a name", waifu.ErrInvalidArgument, i)
		}
		tier, err := waifu.ParseTier(string(e.Tier))
		if err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", e.ID, err)
		}
		e.Tier = tier
		if e.Popularity < 1 {
			return nil, fmt.Errorf("%w: catalog entry %q has popularity %d", waifu.ErrInvalidArgument, e.ID, e.Popularity)
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate catalog id %q", waifu.ErrInvalidArgument, e.ID)
		}
		c.byID[e.ID] = &e
		c.byTier[tier] = append(c.byTier[tier], &e)
		c.all = append(c.all, &e)
	}

	for _, tierEntries := range c.byTier {
		sort.SliceStable(tierEntries, func(i, j int) bool {
			if tierEntries[i].Popularity != tierEntries[j].Popularity {
				return tierEntries[i].Popularity < tierEntries[j].Popularity
			}
			return tierEntries[i].ID < tierEntries[j].ID
		})
		for i, e := range tierEntries {
			c.rank[e.ID] = i + 1
		}
	}
	sort.Slice(c.all, func(i, j int) bool {
		if c.all[i].Tier != c.all[j].Tier {
			return c.all[i].Tier.Rank() < c.all[j].Tier.Rank()
		}
		return c.rank[c.all[i].ID] < c.rank[c.all[j].ID]
	})

	return c, nil
}

func (c *Catalog) Len() int {
	return len(c.all)
}

func (c *Catalog) Get(id string) (*Entry, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// Pick returns a uniformly random entry of tier.
func (c *Catalog) Pick(tier waifu.Tier, src waifu.RandSource) (*Entry, error) {
	entries := c.byTier[tier]
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", waifu.ErrEmptyTier, tier)
	}
	if src == nil {
		src = waifu.DefaultSource
	}
	return entries[src.IntN(len(entries))], nil
}

// Rank is the 1-based popularity position of id inside its own tier, along with that tier's size.
func (c *Catalog) Rank(id string) (rank, size int, ok bool) {
	e, ok := c.byID[id]
	if !ok {
		return 0, 0, false
	}
	return c.rank[id], len(c.byTier[e.Tier]), true
}

func (c *Catalog) TierSize(tier waifu.Tier) int {
	return len(c.byTier[tier])
}

// Tiers reports which tiers have at least one entry.
func (c *Catalog) Tiers() []waifu.Tier {
	var out []waifu.Tier
	for _, tier := range waifu.Tiers {
		if len(c.byTier[tier]) > 0 {
			out = append(out, tier)
		}
	}
	return out
}

type searchItems []*Entry

func (s searchItems) Len() int { return len(s) }
func (s searchItems) String(i int) string {
	return normalize(s[i].Name + " " + s[i].Series)
}

// Search fuzzy-matches query against names and series, best match first.
func (c *Catalog) Search(query string, limit int) []*Entry {
	query = normalize(query)
	if query == "" {
		return nil
	}
	matches := fuzzy.FindFrom(query, searchItems(c.all))
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]*Entry, len(matches))
	for i, m := range matches {
		out[i] = c.all[m.Index]
	}
	return out
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
