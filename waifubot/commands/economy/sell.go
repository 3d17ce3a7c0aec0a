package economy

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/utils"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

var Sell = discord.SlashCommandCreate{
	Name:        "sell",
	Description: "Sell a card back for money",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "serial",
			Description: "Card to sell",
			Required:    true,
		},
	},
}

// SellHandler quotes the card and asks for confirmation; nothing is sold yet.
func SellHandler(b *waifubot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultQueryTimeout)
		defer cancel()

		userID := e.User().ID.String()
		card, value, err := b.Sales.Quote(ctx, e.SlashCommandInteractionData().String("serial"))
		if err != nil {
			return utils.EH.Error(e, err)
		}
		switch {
		case card.OwnerID != userID:
			return utils.EH.Error(e, waifu.ErrNotOwner)
		case card.Locked:
			return utils.EH.Error(e, waifu.ErrCardLocked)
		}

		suffix := userID + "/" + card.Serial
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{discord.NewEmbedBuilder().
				SetTitle("Sell card?").
				SetDescription(fmt.Sprintf("Sell `%s` (%s %s) for **%s**?", card.Serial, card.Tier, utils.FormatLevel(card.Level), utils.FormatMoney(value))).
				SetColor(utils.WarningColor).
				Build()},
			Components: []discord.ContainerComponent{
				discord.NewActionRow(
					discord.NewSuccessButton("Sell", "/sell/confirm/"+suffix),
					discord.NewSecondaryButton("Keep", "/sell/cancel/"+suffix),
				),
			},
			Flags: discord.MessageFlagEphemeral,
		})
	}
}

func SellConfirmHandler(b *waifubot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		if e.User().ID.String() != e.Vars["user"] {
			return utils.EH.Warn(e, "This sale isn't yours to confirm.")
		}
		ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultQueryTimeout)
		defer cancel()

		result, err := b.Sales.Sell(ctx, e.Vars["user"], e.Vars["serial"])
		if err != nil {
			return utils.EH.Error(e, err)
		}
		return e.UpdateMessage(discord.NewMessageUpdateBuilder().
			SetEmbeds(discord.NewEmbedBuilder().
				SetTitle("💸 Sold").
				SetDescription(fmt.Sprintf("`%s` sold for **%s**. Balance: **%s**.", result.Card.Serial, utils.FormatMoney(result.Value), utils.FormatMoney(result.Balance))).
				SetColor(utils.SuccessColor).
				Build()).
			ClearContainerComponents().
			Build())
	}
}

func SellCancelHandler() handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		return e.UpdateMessage(discord.NewMessageUpdateBuilder().
			SetEmbeds(discord.NewEmbedBuilder().
				SetDescription(fmt.Sprintf("Kept `%s`.", e.Vars["serial"])).
				SetColor(utils.InfoColor).
				Build()).
			ClearContainerComponents().
			Build())
	}
}
