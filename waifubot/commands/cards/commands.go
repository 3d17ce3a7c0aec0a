package cards

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/handlers"
)

var Commands = []discord.ApplicationCommandCreate{
	Draw,
	Odds,
	Cards,
	View,
	Lock,
	Unlock,
	Catalog,
}

func Register(r handler.Router, b *waifubot.Bot) {
	r.Command("/draw", handlers.WrapWithLogging("draw", DrawHandler(b)))
	r.Command("/odds", handlers.WrapWithLogging("odds", OddsHandler(b)))
	r.Command("/cards", handlers.WrapWithLogging("cards", CardsHandler(b)))
	r.Command("/view", handlers.WrapWithLogging("view", ViewHandler(b)))
	r.Command("/lock", handlers.WrapWithLogging("lock", LockHandler(b, true)))
	r.Command("/unlock", handlers.WrapWithLogging("unlock", LockHandler(b, false)))
	r.Command("/catalog", handlers.WrapWithLogging("catalog", CatalogHandler(b)))
}
