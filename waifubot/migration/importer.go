package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/disgoorg/waifu-bot/waifubot/database/models"
	"github.com/disgoorg/waifu-bot/waifubot/economy/utils"
	"github.com/disgoorg/waifu-bot/waifubot/logger"
	"github.com/disgoorg/waifu-bot/waifubot/services"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

const (
	CardsCollection = "waifus"
	UsersCollection = "users"
)

type Stats struct {
	Cards        int
	CardsSkipped int
	Users        int
	UsersSkipped int
	Invalid      int
	StartTime    time.Time
}

// Importer copies legacy Mongo documents into the SQL store. Running it twice is harmless:
// known serials and accounts are skipped.
type Importer struct {
	stores    *services.Stores
	batchSize int32
	highest   map[waifu.Tier]int64
	stats     Stats
}

func NewImporter(stores *services.Stores) *Importer {
	return &Importer{
		stores:    stores,
		batchSize: 500,
		highest:   make(map[waifu.Tier]int64),
		stats:     Stats{StartTime: time.Now()},
	}
}

func (im *Importer) SetBatchSize(size int32) {
	if size > 0 {
		im.batchSize = size
	}
}

func (im *Importer) Stats() Stats { return im.stats }

// Run imports both collections from db and lifts the serial counters afterwards.
func (im *Importer) Run(ctx context.Context, db *mongo.Database) error {
	if err := im.each(ctx, db.Collection(CardsCollection), func(raw bson.Raw) error {
		var doc LegacyCard
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return err
		}
		_, err := im.ImportCard(ctx, doc)
		return err
	}); err != nil {
		return fmt.Errorf("import %s: %w", CardsCollection, err)
	}

	if err := im.each(ctx, db.Collection(UsersCollection), func(raw bson.Raw) error {
		var doc LegacyUser
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return err
		}
		_, err := im.ImportUser(ctx, doc)
		return err
	}); err != nil {
		return fmt.Errorf("import %s: %w", UsersCollection, err)
	}

	return im.Finish(ctx)
}

func (im *Importer) each(ctx context.Context, coll *mongo.Collection, fn func(bson.Raw) error) error {
	cur, err := coll.Find(ctx, bson.D{}, options.Find().SetBatchSize(im.batchSize))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	n := 0
	for cur.Next(ctx) {
		if err := fn(cur.Current); err != nil {
			return err
		}
		n++
		if n%int(im.batchSize) == 0 {
			logger.LogSystem("Import progress",
				slog.String("collection", coll.Name()),
				slog.Int("documents", n))
		}
	}
	return cur.Err()
}

// ImportCard inserts one legacy card. It reports false when the card was skipped.
// Malformed documents are counted and skipped rather than aborting the import.
func (im *Importer) ImportCard(ctx context.Context, doc LegacyCard) (bool, error) {
	card, seq, err := doc.ToCard()
	if err != nil {
		im.stats.Invalid++
		slog.Warn("Skipping malformed card",
			slog.String("type", "sys"),
			slog.String("serial", doc.Serial),
			slog.Any("error", err))
		return false, nil
	}
	prefix, _, _ := waifu.ParseSerial(card.Serial)
	im.highest[prefix] = max(im.highest[prefix], seq)

	level, locked := card.Level, card.Locked
	err = im.stores.Tx.WithTransaction(ctx, utils.StandardTransactionOptions(), func(ctx context.Context, tx bun.Tx) error {
		if err := im.stores.Cards.Create(ctx, tx, card); err != nil {
			return err
		}
		if level == 1 && !locked {
			return nil
		}
		_, err := tx.NewUpdate().
			Model((*models.Card)(nil)).
			Set("level = ?", level).
			Set("locked = ?", locked).
			Where("serial = ?", card.Serial).
			Exec(ctx)
		return err
	})
	if errors.Is(err, waifu.ErrDuplicateSerial) {
		im.stats.CardsSkipped++
		return false, nil
	}
	if err != nil {
		return false, err
	}
	im.stats.Cards++
	return true, nil
}

// ImportUser seeds an account. Existing accounts are left untouched.
func (im *Importer) ImportUser(ctx context.Context, doc LegacyUser) (bool, error) {
	account, err := doc.ToAccount()
	if err != nil {
		im.stats.Invalid++
		return false, nil
	}
	created, err := im.stores.Accounts.Seed(ctx, nil, account)
	if err != nil {
		return false, err
	}
	if created {
		im.stats.Users++
	} else {
		im.stats.UsersSkipped++
	}
	return created, nil
}

// Finish raises every serial counter to the highest imported sequence so new draws never collide.
func (im *Importer) Finish(ctx context.Context) error {
	for tier, seq := range im.highest {
		if err := im.stores.Serials.Raise(ctx, nil, tier, seq); err != nil {
			return err
		}
	}
	logger.LogSystem("Import finished",
		slog.Int("cards", im.stats.Cards),
		slog.Int("cards_skipped", im.stats.CardsSkipped),
		slog.Int("users", im.stats.Users),
		slog.Int("users_skipped", im.stats.UsersSkipped),
		slog.Int("invalid", im.stats.Invalid),
		slog.Duration("took", time.Since(im.stats.StartTime)))
	return nil
}
