package models

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

type Card struct {
	bun.BaseModel `bun:"table:cards,alias:c"`

	Serial     string     `bun:"serial,pk"`
	CatalogID  string     `bun:"catalog_id,notnull"`
	Tier       waifu.Tier `bun:"tier,notnull"`
	OwnerID    string     `bun:"owner_id,notnull"`
	Level      int        `bun:"level,notnull,default:1"`
	Locked     bool       `bun:"locked,notnull,default:false"`
	ObtainedAt time.Time  `bun:"obtained_at,notnull,default:current_timestamp"`
	UpdatedAt  time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}
