package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/database"
	"github.com/disgoorg/waifu-bot/waifubot/logger"
	"github.com/disgoorg/waifu-bot/waifubot/migration"
	"github.com/disgoorg/waifu-bot/waifubot/services"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	mongoURI := flag.String("mongo-uri", "mongodb://localhost:27017", "legacy MongoDB connection string")
	mongoDB := flag.String("mongo-db", "waifubot", "legacy MongoDB database name")
	batchSize := flag.Int("batch-size", 500, "documents fetched per cursor batch")
	flag.Parse()

	cfg, err := waifubot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	slog.SetDefault(slog.New(logger.NewHandler(logger.Options{Level: cfg.Log.Level})))

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		logger.LogError("Failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Close()
	if err = db.InitializeSchema(ctx); err != nil {
		logger.LogError("Failed to initialize schema", err)
		os.Exit(1)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoURI))
	if err != nil {
		logger.LogError("Failed to connect to MongoDB", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	importer := migration.NewImporter(services.NewStores(db.BunDB()))
	importer.SetBatchSize(int32(*batchSize))
	if err = importer.Run(ctx, client.Database(*mongoDB)); err != nil {
		logger.LogError("Migration failed", err)
		os.Exit(1)
	}

	logger.LogSystem("Migration completed successfully!")
}
