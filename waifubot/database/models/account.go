package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Account rows are created lazily by the first balance or Mgem mutation.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	UserID    string          `bun:"user_id,pk"`
	Balance   decimal.Decimal `bun:"balance,type:numeric(20,2),notnull,default:0"`
	Mgems     int64           `bun:"mgems,notnull,default:0"`
	CreatedAt time.Time       `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time       `bun:"updated_at,notnull,default:current_timestamp"`
}
