package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/disgoorg/waifu-bot/waifubot/database/models"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

// SerialRepository allocates per-tier card serials.
type SerialRepository interface {
	// Next atomically increments the tier's counter and formats the new value. Run it inside the
	// transaction that inserts the card so a rollback also returns the number.
	Next(ctx context.Context, idb bun.IDB, tier waifu.Tier) (string, error)
	Current(ctx context.Context, tier waifu.Tier) (int64, error)
	// Raise lifts the counter to at least count; it never lowers it.
	Raise(ctx context.Context, idb bun.IDB, tier waifu.Tier, count int64) error
}

type serialRepository struct {
	db *bun.DB
}

func NewSerialRepository(db *bun.DB) SerialRepository {
	return &serialRepository{db: db}
}

func (r *serialRepository) Next(ctx context.Context, idb bun.IDB, tier waifu.Tier) (string, error) {
	if !tier.Valid() {
		return "", fmt.Errorf("%w: unknown tier %q", waifu.ErrInvalidArgument, string(tier))
	}
	if idb == nil {
		idb = r.db
	}

	var count int64
	err := idb.NewRaw(
		"INSERT INTO serial_counters (tier, count) VALUES (?, 1) "+
			"ON CONFLICT (tier) DO UPDATE SET count = serial_counters.count + 1 "+
			"RETURNING count",
		string(tier),
	).Scan(ctx, &count)
	if err != nil {
		return "", handleError("next", "serial_counter", err)
	}
	return waifu.FormatSerial(tier, count), nil
}

func (r *serialRepository) Current(ctx context.Context, tier waifu.Tier) (int64, error) {
	counter := new(models.SerialCounter)
	err := withReadRetry(ctx, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(counter).
			Where("tier = ?", string(tier)).
			Scan(ctx)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, handleError("current", "serial_counter", err)
	}
	return counter.Count, nil
}

func (r *serialRepository) Raise(ctx context.Context, idb bun.IDB, tier waifu.Tier, count int64) error {
	if !tier.Valid() || count < 0 {
		return fmt.Errorf("%w: cannot raise %q to %d", waifu.ErrInvalidArgument, string(tier), count)
	}
	if idb == nil {
		idb = r.db
	}
	_, err := idb.NewRaw(
		"INSERT INTO serial_counters (tier, count) VALUES (?, ?) "+
			"ON CONFLICT (tier) DO UPDATE SET count = CASE "+
			"WHEN serial_counters.count > EXCLUDED.count THEN serial_counters.count "+
			"ELSE EXCLUDED.count END",
		string(tier), count,
	).Exec(ctx)
	return handleError("raise", "serial_counter", err)
}
