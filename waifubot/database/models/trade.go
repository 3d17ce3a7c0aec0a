package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeCompleted TradeStatus = "completed"
	TradeDeclined  TradeStatus = "declined"
	TradeCancelled TradeStatus = "cancelled"
	TradeFailed    TradeStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s TradeStatus) Terminal() bool {
	return s != TradePending
}

type Trade struct {
	bun.BaseModel `bun:"table:trades,alias:t"`

	ID          string      `bun:"id,pk"`
	OffererID   string      `bun:"offerer_id,notnull"`
	OffereeID   string      `bun:"offeree_id,notnull"`
	OffererCard string      `bun:"offerer_card,notnull"`
	OffereeCard string      `bun:"offeree_card,notnull"`
	Status      TradeStatus `bun:"status,notnull"`
	CreatedAt   time.Time   `bun:"created_at,notnull,default:current_timestamp"`
	CompletedAt time.Time   `bun:"completed_at,nullzero"`
}
