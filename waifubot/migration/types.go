package migration

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/disgoorg/waifu-bot/waifubot/database/models"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

// LegacyID decodes Discord ids that the old store kept as strings, int64s or doubles.
type LegacyID string

func (id *LegacyID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		*id = LegacyID(strings.TrimSpace(raw.StringValue()))
	case bsontype.Int64:
		*id = LegacyID(strconv.FormatInt(raw.Int64(), 10))
	case bsontype.Int32:
		*id = LegacyID(strconv.FormatInt(int64(raw.Int32()), 10))
	case bsontype.Double:
		*id = LegacyID(strconv.FormatFloat(raw.Double(), 'f', 0, 64))
	case bsontype.Null, bsontype.Undefined:
		*id = ""
	default:
		return fmt.Errorf("unsupported id type %s", t)
	}
	return nil
}

// LegacyCard is one document of the old "waifus" collection.
type LegacyCard struct {
	Serial     string    `bson:"serial"`
	WaifuID    LegacyID  `bson:"waifu_id"`
	Rarity     string    `bson:"rarity"`
	OwnerID    LegacyID  `bson:"owner_id"`
	Level      int       `bson:"level"`
	Locked     bool      `bson:"locked"`
	ObtainedAt time.Time `bson:"obtained_at"`
}

// LegacyUser is one document of the old "users" collection.
type LegacyUser struct {
	UserID  LegacyID `bson:"user_id"`
	Balance float64  `bson:"balance"`
	Mgems   int64    `bson:"mgems"`
}

// ToCard validates a legacy card and converts it. The returned sequence is the serial's counter.
func (c LegacyCard) ToCard() (*models.Card, int64, error) {
	serial := waifu.NormalizeSerial(c.Serial)
	tier, seq, err := waifu.ParseSerial(serial)
	if err != nil {
		return nil, 0, err
	}
	if c.Rarity != "" {
		rarity, err := waifu.ParseTier(c.Rarity)
		if err != nil {
			return nil, 0, err
		}
		// Upgraded cards keep their original serial prefix.
		if rarity.RarerThan(tier) {
			tier = rarity
		}
	}
	if c.OwnerID == "" || c.WaifuID == "" {
		return nil, 0, fmt.Errorf("%w: card %s has no owner or waifu", waifu.ErrInvalidArgument, serial)
	}
	level := c.Level
	if level < 1 {
		level = 1
	}
	return &models.Card{
		Serial:     serial,
		CatalogID:  string(c.WaifuID),
		Tier:       tier,
		OwnerID:    string(c.OwnerID),
		Level:      level,
		Locked:     c.Locked,
		ObtainedAt: c.ObtainedAt.UTC(),
	}, seq, nil
}

// ToAccount converts a legacy user. Negative balances are clamped to zero.
func (u LegacyUser) ToAccount() (*models.Account, error) {
	if u.UserID == "" {
		return nil, fmt.Errorf("%w: user without id", waifu.ErrInvalidArgument)
	}
	balance := decimal.NewFromFloat(u.Balance).Round(2)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return &models.Account{
		UserID:  string(u.UserID),
		Balance: balance,
		Mgems:   max(u.Mgems, 0),
	}, nil
}
