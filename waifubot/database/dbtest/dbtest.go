// Package dbtest opens throwaway in-memory SQLite databases with the bot schema applied.
package dbtest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/disgoorg/waifu-bot/waifubot/database"
)

var seq atomic.Int64

// New returns a fresh, schema-initialized database that is closed when t finishes.
func New(t testing.TB) *database.DB {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:waifutest%d?mode=memory&cache=shared", seq.Add(1))
	db, err := database.OpenSQLite(ctx, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.InitializeSchema(ctx); err != nil {
		t.Fatalf("initialize schema: %v", err)
	}
	return db
}
