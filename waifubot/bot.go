package waifubot

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"
	"github.com/disgoorg/snowflake/v2"

	"github.com/disgoorg/waifu-bot/waifubot/catalog"
	"github.com/disgoorg/waifu-bot/waifubot/database"
	"github.com/disgoorg/waifu-bot/waifubot/economy/session"
	"github.com/disgoorg/waifu-bot/waifubot/logger"
	"github.com/disgoorg/waifu-bot/waifubot/render"
	"github.com/disgoorg/waifu-bot/waifubot/services"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

type Bot struct {
	Cfg       Config
	Client    bot.Client
	Paginator *paginator.Manager
	Version   string
	Commit    string

	DB       *database.DB
	Catalog  *catalog.Catalog
	Stores   *services.Stores
	Sessions *session.Manager
	Renderer render.Renderer

	Draws      *services.DrawService
	Sales      *services.SaleService
	Upgrades   *services.UpgradeService
	Gifts      *services.GiftService
	Collection *services.CollectionService
	Trades     *services.TradeNegotiator
}

// InitServices builds the economy services on top of DB and Catalog.
func (b *Bot) InitServices() error {
	policy := b.Cfg.Policy
	b.Stores = services.NewStores(b.DB.BunDB())
	b.Sessions = session.NewManager(policy.DrawCooldown)

	draws, err := services.NewDrawService(b.Stores, b.Catalog, policy, b.Sessions, nil)
	if err != nil {
		return err
	}
	b.Draws = draws
	b.Sales = services.NewSaleService(b.Stores, b.Catalog, policy, b.Sessions)
	b.Upgrades = services.NewUpgradeService(b.Stores, policy, b.Sessions)
	b.Gifts = services.NewGiftService(b.Stores, b.Sessions)
	b.Collection = services.NewCollectionService(b.Stores, b.Catalog)
	b.Trades = services.NewTradeNegotiator(b.Stores, b.Sessions, policy)
	return nil
}

// IsAdmin reports whether id may use administrative commands.
func (b *Bot) IsAdmin(id snowflake.ID) bool {
	return slices.Contains(b.Cfg.Bot.Admins, id)
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	logger.LogSystem("Waifu bot is now ready",
		slog.String("version", b.Version),
		slog.String("commit", b.Commit),
		slog.Int("catalog_size", b.Catalog.Len()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithPlayingActivity("/draw"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		logger.LogError("Failed to set presence", err)
	}
}
