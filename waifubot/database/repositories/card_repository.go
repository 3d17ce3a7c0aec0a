package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/disgoorg/waifu-bot/waifubot/database/models"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

// CardFilter narrows ListByOwner. The zero value lists everything.
type CardFilter struct {
	Tier       waifu.Tier
	LockedOnly bool
	Limit      int
	Offset     int
}

// CardRepository is the card ledger. Methods taking a bun.IDB run inside the caller's
// transaction when given one. Expected refusals come back as false, not as errors.
type CardRepository interface {
	Create(ctx context.Context, idb bun.IDB, card *models.Card) error
	Get(ctx context.Context, idb bun.IDB, serial string) (*models.Card, error)
	ListByOwner(ctx context.Context, ownerID string, filter CardFilter) ([]*models.Card, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	Transfer(ctx context.Context, idb bun.IDB, serial, fromID, toID string) (bool, error)
	SetLocked(ctx context.Context, idb bun.IDB, serial, ownerID string, locked bool) (bool, error)
	Delete(ctx context.Context, idb bun.IDB, serial, ownerID string) (bool, error)
	// Take deletes the card like Delete and returns the removed row, or nil when nothing matched.
	Take(ctx context.Context, idb bun.IDB, serial, ownerID string) (*models.Card, error)
	Upgrade(ctx context.Context, idb bun.IDB, serial, ownerID string) (*waifu.UpgradeResult, error)
}

type cardRepository struct {
	db *bun.DB
}

func NewCardRepository(db *bun.DB) CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) idb(idb bun.IDB) bun.IDB {
	if idb == nil {
		return r.db
	}
	return idb
}

func (r *cardRepository) Create(ctx context.Context, idb bun.IDB, card *models.Card) error {
	if card.Serial == "" || card.OwnerID == "" || card.CatalogID == "" || !card.Tier.Valid() {
		return fmt.Errorf("%w: incomplete card", waifu.ErrInvalidArgument)
	}
	now := time.Now().UTC()
	card.Level = 1
	card.Locked = false
	if card.ObtainedAt.IsZero() {
		card.ObtainedAt = now
	}
	card.UpdatedAt = now

	_, err := r.idb(idb).NewInsert().Model(card).Exec(ctx)
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", waifu.ErrDuplicateSerial, card.Serial)
	}
	return handleError("create", "card", err)
}

func (r *cardRepository) Get(ctx context.Context, idb bun.IDB, serial string) (*models.Card, error) {
	serial = waifu.NormalizeSerial(serial)
	card := new(models.Card)
	read := func(ctx context.Context) error {
		return r.idb(idb).NewSelect().
			Model(card).
			Where("serial = ?", serial).
			Scan(ctx)
	}

	var err error
	if idb == nil {
		err = withReadRetry(ctx, read)
	} else {
		err = read(ctx)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", waifu.ErrCardNotFound, serial)
	}
	if err != nil {
		return nil, handleError("get", "card", err)
	}
	return card, nil
}

func (r *cardRepository) ListByOwner(ctx context.Context, ownerID string, filter CardFilter) ([]*models.Card, error) {
	var cards []*models.Card
	err := withReadRetry(ctx, func(ctx context.Context) error {
		cards = cards[:0]
		q := r.db.NewSelect().
			Model(&cards).
			Where("owner_id = ?", ownerID)
		if filter.Tier != waifu.TierAny {
			q = q.Where("tier = ?", string(filter.Tier))
		}
		if filter.LockedOnly {
			q = q.Where("locked")
		}
		q = q.OrderExpr("CASE tier " +
			"WHEN 'SS' THEN 0 WHEN 'S' THEN 1 WHEN 'A' THEN 2 " +
			"WHEN 'B' THEN 3 WHEN 'C' THEN 4 ELSE 5 END").
			Order("level DESC", "serial ASC")
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
		return q.Scan(ctx)
	})
	if err != nil {
		return nil, handleError("list", "card", err)
	}
	return cards, nil
}

func (r *cardRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := withReadRetry(ctx, func(ctx context.Context) error {
		var err error
		n, err = r.db.NewSelect().
			Model((*models.Card)(nil)).
			Where("owner_id = ?", ownerID).
			Count(ctx)
		return err
	})
	return n, handleError("count", "card", err)
}

// Transfer moves an unlocked card from fromID to toID. The lock is cleared on the way.
func (r *cardRepository) Transfer(ctx context.Context, idb bun.IDB, serial, fromID, toID string) (bool, error) {
	if fromID == toID {
		return false, nil
	}
	res, err := r.idb(idb).NewUpdate().
		Model((*models.Card)(nil)).
		Set("owner_id = ?", toID).
		Set("locked = ?", false).
		Set("updated_at = ?", time.Now().UTC()).
		Where("serial = ?", waifu.NormalizeSerial(serial)).
		Where("owner_id = ?", fromID).
		Where("NOT locked").
		Exec(ctx)
	if err != nil {
		return false, handleError("transfer", "card", err)
	}
	return rowsAffected(res) == 1, nil
}

func (r *cardRepository) SetLocked(ctx context.Context, idb bun.IDB, serial, ownerID string, locked bool) (bool, error) {
	res, err := r.idb(idb).NewUpdate().
		Model((*models.Card)(nil)).
		Set("locked = ?", locked).
		Set("updated_at = ?", time.Now().UTC()).
		Where("serial = ?", waifu.NormalizeSerial(serial)).
		Where("owner_id = ?", ownerID).
		Exec(ctx)
	if err != nil {
		return false, handleError("set_locked", "card", err)
	}
	return rowsAffected(res) == 1, nil
}

func (r *cardRepository) Delete(ctx context.Context, idb bun.IDB, serial, ownerID string) (bool, error) {
	card, err := r.Take(ctx, idb, serial, ownerID)
	return card != nil, err
}

func (r *cardRepository) Take(ctx context.Context, idb bun.IDB, serial, ownerID string) (*models.Card, error) {
	card := new(models.Card)
	err := r.idb(idb).NewRaw(
		"DELETE FROM cards WHERE serial = ? AND owner_id = ? AND NOT locked "+
			"RETURNING serial, catalog_id, tier, owner_id, level, locked, obtained_at, updated_at",
		waifu.NormalizeSerial(serial), ownerID,
	).Scan(ctx, card)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, handleError("delete", "card", err)
	}
	return card, nil
}

// Upgrade applies one level step. The update is conditioned on the tier and level that were read,
// so two racing upgrades cannot both apply to the same starting state.
func (r *cardRepository) Upgrade(ctx context.Context, idb bun.IDB, serial, ownerID string) (*waifu.UpgradeResult, error) {
	card, err := r.Get(ctx, idb, serial)
	if err != nil {
		return nil, err
	}
	if card.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: %s", waifu.ErrNotOwner, card.Serial)
	}

	tier, level, err := waifu.Advance(card.Tier, card.Level)
	if err != nil {
		return nil, err
	}

	res, err := r.idb(idb).NewUpdate().
		Model((*models.Card)(nil)).
		Set("tier = ?", string(tier)).
		Set("level = ?", level).
		Set("updated_at = ?", time.Now().UTC()).
		Where("serial = ?", card.Serial).
		Where("owner_id = ?", ownerID).
		Where("tier = ?", string(card.Tier)).
		Where("level = ?", card.Level).
		Exec(ctx)
	if err != nil {
		return nil, handleError("upgrade", "card", err)
	}
	if rowsAffected(res) != 1 {
		return nil, fmt.Errorf("%w: card %s changed during upgrade", waifu.ErrBusy, card.Serial)
	}

	return &waifu.UpgradeResult{
		Serial:    card.Serial,
		FromTier:  card.Tier,
		FromLevel: card.Level,
		Tier:      tier,
		Level:     level,
		Promoted:  tier != card.Tier,
	}, nil
}
