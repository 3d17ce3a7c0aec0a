package commands

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/commands/cards"
	"github.com/disgoorg/waifu-bot/waifubot/commands/economy"
	"github.com/disgoorg/waifu-bot/waifubot/commands/system"
)

var Commands = []discord.ApplicationCommandCreate{}

func init() {
	Commands = append(Commands, cards.Commands...)
	Commands = append(Commands, economy.Commands...)
	Commands = append(Commands, system.Commands...)
}

// Register mounts every command and component route on r.
func Register(r handler.Router, b *waifubot.Bot) {
	cards.Register(r, b)
	economy.Register(r, b)
	system.Register(r, b)
}
