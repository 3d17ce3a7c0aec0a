package waifubot

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/disgoorg/waifu-bot/waifubot/database"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Policy, err = cfg.Economy.Policy(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log     LogConfig         `toml:"log"`
	Bot     BotConfig         `toml:"bot"`
	DB      database.DBConfig `toml:"db"`
	Catalog CatalogConfig     `toml:"catalog"`
	Economy EconomyConfig     `toml:"economy"`
	Render  RenderConfig      `toml:"render"`
	Spaces  SpacesConfig      `toml:"spaces"`
	Metrics MetricsConfig     `toml:"metrics"`

	// Policy is Economy merged over the defaults and validated.
	Policy waifu.Policy `toml:"-"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Admins    []snowflake.ID `toml:"admins"`
	Token     string         `toml:"token"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type CatalogConfig struct {
	Path string `toml:"path"`
}

type RenderConfig struct {
	Engine    string `toml:"engine"`
	CacheSize int    `toml:"cache_size"`
}

type SpacesConfig struct {
	Key      string `toml:"key"`
	Secret   string `toml:"secret"`
	Region   string `toml:"region"`
	Bucket   string `toml:"bucket"`
	Endpoint string `toml:"endpoint"`
	ArtRoot  string `toml:"art_root"`
}

// Enabled reports whether card art should be fetched from Spaces.
func (c SpacesConfig) Enabled() bool {
	return c.Bucket != "" && c.Key != ""
}

type MetricsConfig struct {
	Addr string `toml:"addr"`
}

type SaleRangeConfig struct {
	Min string `toml:"min"`
	Max string `toml:"max"`
}

// EconomyConfig holds overrides for the game-balance table. Anything left out keeps its default.
// Amounts are strings so they parse exactly.
type EconomyConfig struct {
	DrawCosts    map[string]string          `toml:"draw_costs"`
	Weights      map[string]float64         `toml:"weights"`
	UpgradeCosts map[string]int64           `toml:"upgrade_costs"`
	SSBaseCost   int64                      `toml:"ss_base_cost"`
	SSGrowth     float64                    `toml:"ss_growth"`
	SaleRanges   map[string]SaleRangeConfig `toml:"sale_ranges"`
	DrawCooldown string                     `toml:"draw_cooldown"`
	TradeExpiry  string                     `toml:"trade_expiry"`
}

// parseTierKey accepts "any" for the plain draw.
func parseTierKey(key string) (waifu.Tier, error) {
	if key == "any" || key == "default" {
		return waifu.TierAny, nil
	}
	return waifu.ParseTier(key)
}

func (c EconomyConfig) Policy() (waifu.Policy, error) {
	p := waifu.DefaultPolicy()

	for key, raw := range c.DrawCosts {
		tier, err := parseTierKey(key)
		if err != nil {
			return p, fmt.Errorf("economy.draw_costs: %w", err)
		}
		cost, err := decimal.NewFromString(raw)
		if err != nil {
			return p, fmt.Errorf("economy.draw_costs.%s: %w", key, err)
		}
		p.DrawCosts[tier] = cost
	}
	for key, weight := range c.Weights {
		tier, err := waifu.ParseTier(key)
		if err != nil {
			return p, fmt.Errorf("economy.weights: %w", err)
		}
		p.Weights[tier] = weight
	}
	for key, cost := range c.UpgradeCosts {
		tier, err := waifu.ParseTier(key)
		if err != nil {
			return p, fmt.Errorf("economy.upgrade_costs: %w", err)
		}
		p.UpgradeBase[tier] = cost
	}
	if c.SSBaseCost != 0 {
		p.SSBaseCost = c.SSBaseCost
	}
	if c.SSGrowth != 0 {
		p.SSGrowth = c.SSGrowth
	}
	for key, r := range c.SaleRanges {
		tier, err := waifu.ParseTier(key)
		if err != nil {
			return p, fmt.Errorf("economy.sale_ranges: %w", err)
		}
		sr := p.SaleRanges[tier]
		if r.Min != "" {
			if sr.Min, err = decimal.NewFromString(r.Min); err != nil {
				return p, fmt.Errorf("economy.sale_ranges.%s.min: %w", key, err)
			}
		}
		if r.Max != "" {
			if sr.Max, err = decimal.NewFromString(r.Max); err != nil {
				return p, fmt.Errorf("economy.sale_ranges.%s.max: %w", key, err)
			}
		}
		p.SaleRanges[tier] = sr
	}

	var err error
	if p.DrawCooldown, err = parseDuration(c.DrawCooldown, p.DrawCooldown); err != nil {
		return p, fmt.Errorf("economy.draw_cooldown: %w", err)
	}
	if p.TradeExpiry, err = parseDuration(c.TradeExpiry, p.TradeExpiry); err != nil {
		return p, fmt.Errorf("economy.trade_expiry: %w", err)
	}

	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid economy config: %w", err)
	}
	return p, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
