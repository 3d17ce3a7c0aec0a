package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"golang.org/x/sync/errgroup"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/catalog"
	"github.com/disgoorg/waifu-bot/waifubot/commands"
	"github.com/disgoorg/waifu-bot/waifubot/database"
	"github.com/disgoorg/waifu-bot/waifubot/logger"
	"github.com/disgoorg/waifu-bot/waifubot/metrics"
	"github.com/disgoorg/waifu-bot/waifubot/render"
	"github.com/disgoorg/waifu-bot/waifubot/storage"
)

var (
	version = "dev"
	commit  = "unknown"
)

const (
	housekeepingInterval = 10 * time.Minute
	sessionSweepInterval = time.Minute
	dbHealthInterval     = 5 * time.Minute
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := waifubot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	setupLogger(cfg.Log)

	logger.LogSystem("Starting waifu bot",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbStartTime := time.Now()
	initCtx, cancel := context.WithTimeout(ctx, time.Minute)
	db, err := database.New(initCtx, cfg.DB)
	if err == nil {
		err = db.InitializeSchema(initCtx)
	}
	cancel()
	if err != nil {
		logger.LogError("Database initialization failed", err,
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()
	logger.LogSystem("Database ready",
		slog.String("driver", string(db.Driver())),
		slog.Duration("took", time.Since(dbStartTime)))

	b := waifubot.New(*cfg, version, commit)
	b.DB = db

	if b.Catalog, err = catalog.Load(cfg.Catalog.Path); err != nil {
		logger.LogError("Failed to load catalog", err)
		os.Exit(-1)
	}

	art, err := artSource(ctx, cfg)
	if err != nil {
		logger.LogError("Failed to set up card art", err)
		os.Exit(-1)
	}
	if b.Renderer, err = render.New(cfg.Render.Engine, art, cfg.Render.CacheSize); err != nil {
		logger.LogError("Failed to set up renderer", err)
		os.Exit(-1)
	}

	if err = b.InitServices(); err != nil {
		logger.LogError("Failed to initialize services", err)
		os.Exit(-1)
	}

	h := handler.New()
	commands.Register(h, b)

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		logger.LogError("Failed to setup bot", err,
			slog.String("component", "bot_setup"),
			slog.String("status", "failed"))
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	if *shouldSyncCommands {
		logger.LogSystem("Syncing commands",
			slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			logger.LogError("Failed to sync commands", err,
				slog.String("component", "command_sync"),
				slog.String("status", "failed"))
		}
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = b.Client.OpenGateway(gatewayCtx)
	cancel()
	if err != nil {
		logger.LogError("Failed to open gateway", err,
			slog.String("component", "gateway"),
			slog.String("status", "failed"))
		os.Exit(-1)
	}

	b.Sessions.StartCleanupRoutine(ctx, sessionSweepInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Trades.RunHousekeeping(gctx, housekeepingInterval)
	})
	g.Go(func() error {
		return db.Monitor(gctx, dbHealthInterval)
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.Addr)
		})
	}

	logger.LogSystem("Bot is running. Press CTRL-C to exit.")
	if err = g.Wait(); err != nil {
		logger.LogError("Background task failed", err)
	}
	logger.LogSystem("Shutting down bot...")
}

func setupLogger(cfg waifubot.LogConfig) {
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource})
	} else {
		h = logger.NewHandler(logger.Options{Level: cfg.Level, AddSource: cfg.AddSource})
	}
	slog.SetDefault(slog.New(h))
}

// artSource prefers Spaces, then a local directory, and renders without art when neither is set.
func artSource(ctx context.Context, cfg *waifubot.Config) (render.ArtSource, error) {
	switch {
	case cfg.Spaces.Enabled():
		src, err := storage.NewSpacesArtSource(ctx, storage.SpacesOptions{
			Key:      cfg.Spaces.Key,
			Secret:   cfg.Spaces.Secret,
			Region:   cfg.Spaces.Region,
			Bucket:   cfg.Spaces.Bucket,
			Endpoint: cfg.Spaces.Endpoint,
			ArtRoot:  cfg.Spaces.ArtRoot,
		})
		if err != nil {
			return nil, fmt.Errorf("spaces: %w", err)
		}
		logger.LogSystem("Card art from Spaces", slog.String("bucket", src.Bucket()))
		return src, nil
	case cfg.Spaces.ArtRoot != "":
		logger.LogSystem("Card art from directory", slog.String("root", cfg.Spaces.ArtRoot))
		return storage.NewDirArtSource(cfg.Spaces.ArtRoot), nil
	}
	return nil, nil
}
