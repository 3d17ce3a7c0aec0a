package models

import "github.com/uptrace/bun"

type SerialCounter struct {
	bun.BaseModel `bun:"table:serial_counters,alias:sc"`

	Tier  string `bun:"tier,pk"`
	Count int64  `bun:"count,notnull,default:0"`
}
