package cards

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/utils"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

func serialOption(description string) discord.ApplicationCommandOption {
	return discord.ApplicationCommandOptionString{
		Name:        "serial",
		Description: description,
		Required:    true,
	}
}

var Lock = discord.SlashCommandCreate{
	Name:        "lock",
	Description: "Protect a card from being sold, traded or gifted",
	Options:     []discord.ApplicationCommandOption{serialOption("Card to lock")},
}

var Unlock = discord.SlashCommandCreate{
	Name:        "unlock",
	Description: "Remove the protection from a card",
	Options:     []discord.ApplicationCommandOption{serialOption("Card to unlock")},
}

func LockHandler(b *waifubot.Bot, locked bool) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultQueryTimeout)
		defer cancel()

		serial := waifu.NormalizeSerial(e.SlashCommandInteractionData().String("serial"))
		ok, err := b.Collection.SetLocked(ctx, e.User().ID.String(), serial, locked)
		if err != nil {
			return utils.EH.Error(e, err)
		}
		if !ok {
			return utils.EH.Error(e, waifu.ErrNotOwner)
		}

		if locked {
			return utils.EH.Success(e, fmt.Sprintf("🔒 `%s` is now locked.", serial))
		}
		return utils.EH.Success(e, fmt.Sprintf("🔓 `%s` is now unlocked.", serial))
	}
}
