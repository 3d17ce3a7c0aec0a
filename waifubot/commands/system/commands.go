package system

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/handlers"
)

var Commands = []discord.ApplicationCommandCreate{
	Version,
	Help,
}

func Register(r handler.Router, b *waifubot.Bot) {
	r.Command("/version", handlers.WrapWithLogging("version", VersionHandler(b)))
	r.Command("/help", handlers.WrapWithLogging("help", HelpHandler(b)))
}
