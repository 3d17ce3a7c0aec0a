package services

import (
	"context"
	"log/slog"

	"github.com/disgoorg/waifu-bot/waifubot/catalog"
	"github.com/disgoorg/waifu-bot/waifubot/database/models"
	"github.com/disgoorg/waifu-bot/waifubot/database/repositories"
)

// CardView pairs a card with its catalog entry. Entry is nil if the catalog no longer lists it.
type CardView struct {
	Card  *models.Card
	Entry *catalog.Entry
}

// Name falls back to the catalog id when the entry is gone.
func (v CardView) Name() string {
	if v.Entry != nil {
		return v.Entry.Name
	}
	return v.Card.CatalogID
}

type CollectionService struct {
	stores  *Stores
	catalog *catalog.Catalog
}

func NewCollectionService(stores *Stores, cat *catalog.Catalog) *CollectionService {
	return &CollectionService{stores: stores, catalog: cat}
}

func (s *CollectionService) view(card *models.Card) CardView {
	entry, _ := s.catalog.Get(card.CatalogID)
	return CardView{Card: card, Entry: entry}
}

// List returns the owner's cards rarest first, then by level.
func (s *CollectionService) List(ctx context.Context, ownerID string, filter repositories.CardFilter) ([]CardView, error) {
	cards, err := s.stores.Cards.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, err
	}
	views := make([]CardView, len(cards))
	for i, c := range cards {
		views[i] = s.view(c)
	}
	return views, nil
}

func (s *CollectionService) Count(ctx context.Context, ownerID string) (int, error) {
	return s.stores.Cards.CountByOwner(ctx, ownerID)
}

func (s *CollectionService) Get(ctx context.Context, serial string) (CardView, error) {
	card, err := s.stores.Cards.Get(ctx, nil, serial)
	if err != nil {
		return CardView{}, err
	}
	return s.view(card), nil
}

// SetLocked toggles the lock; only the owner can. It returns false when ownerID does not hold the card.
func (s *CollectionService) SetLocked(ctx context.Context, ownerID, serial string, locked bool) (bool, error) {
	ok, err := s.stores.Cards.SetLocked(ctx, nil, serial, ownerID, locked)
	if err != nil {
		return false, err
	}
	if ok {
		slog.Debug("Card lock changed",
			slog.String("type", "cmd"),
			slog.String("user_id", ownerID),
			slog.String("serial", serial),
			slog.Bool("locked", locked),
		)
	}
	return ok, nil
}

func (s *CollectionService) Wallet(ctx context.Context, userID string) (*models.Account, error) {
	return s.stores.Accounts.Get(ctx, userID)
}
