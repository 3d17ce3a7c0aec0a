package economy

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/shopspring/decimal"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/utils"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

func recipientOption() discord.ApplicationCommandOption {
	return discord.ApplicationCommandOptionUser{
		Name:        "user",
		Description: "Who receives the gift",
		Required:    true,
	}
}

var Gift = discord.SlashCommandCreate{
	Name:        "gift",
	Description: "Give a card, money or Mgems to someone",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "card",
			Description: "Give away an unlocked card",
			Options: []discord.ApplicationCommandOption{
				recipientOption(),
				discord.ApplicationCommandOptionString{Name: "serial", Description: "Card to give", Required: true},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "money",
			Description: "Send money",
			Options: []discord.ApplicationCommandOption{
				recipientOption(),
				discord.ApplicationCommandOptionString{Name: "amount", Description: "Amount, e.g. 2.50", Required: true},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "mgems",
			Description: "Send Mgems",
			Options: []discord.ApplicationCommandOption{
				recipientOption(),
				discord.ApplicationCommandOptionInt{Name: "amount", Description: "Number of Mgems", Required: true},
			},
		},
	},
}

func GiftHandler(b *waifubot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultQueryTimeout)
		defer cancel()

		data := e.SlashCommandInteractionData()
		from := e.User().ID.String()
		to := data.User("user")
		if to.Bot {
			return utils.EH.Warn(e, "Bots don't collect cards.")
		}

		var sub string
		if data.SubCommandName != nil {
			sub = *data.SubCommandName
		}

		switch sub {
		case "card":
			serial := waifu.NormalizeSerial(data.String("serial"))
			ok, err := b.Gifts.GiftCard(ctx, from, to.ID.String(), serial)
			if err != nil {
				return utils.EH.Error(e, err)
			}
			if !ok {
				return utils.EH.Warn(e, fmt.Sprintf("You can't give `%s`: it isn't yours or it is locked.", serial))
			}
			return utils.EH.Success(e, fmt.Sprintf("🎁 %s received `%s`!", to.Mention(), serial))

		case "money":
			amount, err := decimal.NewFromString(data.String("amount"))
			if err != nil {
				return utils.EH.Error(e, fmt.Errorf("%w: %q is not an amount", waifu.ErrInvalidArgument, data.String("amount")))
			}
			balance, err := b.Gifts.GiftCurrency(ctx, from, to.ID.String(), amount)
			if err != nil {
				return utils.EH.Error(e, err)
			}
			return utils.EH.Success(e, fmt.Sprintf("🎁 Sent **%s** to %s. Your balance: **%s**.", utils.FormatMoney(amount.Round(2)), to.Mention(), utils.FormatMoney(balance)))

		case "mgems":
			n := int64(data.Int("amount"))
			left, err := b.Gifts.GiftMgems(ctx, from, to.ID.String(), n)
			if err != nil {
				return utils.EH.Error(e, err)
			}
			return utils.EH.Success(e, fmt.Sprintf("🎁 Sent **%d** 💎 to %s. You have %d left.", n, to.Mention(), left))
		}
		return utils.EH.Warn(e, "Unknown gift type.")
	}
}
