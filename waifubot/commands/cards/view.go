package cards

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/utils"
)

var View = discord.SlashCommandCreate{
	Name:        "view",
	Description: "Show a card by serial",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "serial",
			Description: "Card serial, e.g. SS-000001",
			Required:    true,
		},
	},
}

func ViewHandler(b *waifubot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultQueryTimeout)
		defer cancel()

		view, err := b.Collection.Get(ctx, e.SlashCommandInteractionData().String("serial"))
		if err != nil {
			return utils.EH.Error(e, err)
		}

		ownerLabel := view.Card.OwnerID
		mention := ownerLabel
		if id, err := snowflake.Parse(view.Card.OwnerID); err == nil {
			mention = discord.UserMention(id)
			if user, err := b.Client.Rest().GetUser(id); err == nil {
				ownerLabel = user.Username
			}
		}

		if err := e.DeferCreateMessage(false); err != nil {
			return err
		}
		msg := cardMessage(ctx, b, view, ownerLabel, view.Name(), fmt.Sprintf("Owned by %s", mention))
		_, err = e.CreateFollowupMessage(msg)
		return err
	}
}
