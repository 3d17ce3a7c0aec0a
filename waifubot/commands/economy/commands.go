package economy

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/handlers"
)

var Commands = []discord.ApplicationCommandCreate{
	Balance,
	Sell,
	Upgrade,
	Gift,
	Grant,
	Trade,
	Trades,
}

func Register(r handler.Router, b *waifubot.Bot) {
	r.Command("/balance", handlers.WrapWithLogging("balance", BalanceHandler(b)))
	r.Command("/sell", handlers.WrapWithLogging("sell", SellHandler(b)))
	r.Component("/sell/confirm/{user}/{serial}", handlers.WrapComponentWithLogging("sell-confirm", SellConfirmHandler(b)))
	r.Component("/sell/cancel/{user}/{serial}", handlers.WrapComponentWithLogging("sell-cancel", SellCancelHandler()))
	r.Command("/upgrade", handlers.WrapWithLogging("upgrade", UpgradeHandler(b)))
	r.Command("/gift", handlers.WrapWithLogging("gift", GiftHandler(b)))
	r.Command("/grant", handlers.WrapWithLogging("grant", GrantHandler(b)))

	t := &TradeHandler{bot: b}
	r.Command("/trade", handlers.WrapWithLogging("trade", t.HandleTrade))
	r.Command("/trades", handlers.WrapWithLogging("trades", t.HandleTrades))
	r.Component("/trade/accept/{id}", handlers.WrapComponentWithLogging("trade-accept", t.HandleAccept))
	r.Component("/trade/decline/{id}", handlers.WrapComponentWithLogging("trade-decline", t.HandleDecline))
	r.Component("/trade/cancel/{id}", handlers.WrapComponentWithLogging("trade-cancel", t.HandleCancel))
}
