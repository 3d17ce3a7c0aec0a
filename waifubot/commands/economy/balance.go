package economy

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/utils"
)

var Balance = discord.SlashCommandCreate{
	Name:        "balance",
	Description: "Show money, Mgems and card count",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Whose wallet to show (default: yours)",
			Required:    false,
		},
	},
}

func BalanceHandler(b *waifubot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultQueryTimeout)
		defer cancel()

		user := e.User()
		if u, ok := e.SlashCommandInteractionData().OptUser("user"); ok {
			user = u
		}

		account, err := b.Collection.Wallet(ctx, user.ID.String())
		if err != nil {
			return utils.EH.Error(e, err)
		}
		count, err := b.Collection.Count(ctx, user.ID.String())
		if err != nil {
			return utils.EH.Error(e, err)
		}

		embed := discord.NewEmbedBuilder().
			SetTitle(fmt.Sprintf("💰 %s's wallet", user.Username)).
			SetColor(utils.InfoColor).
			AddField("Money", utils.FormatMoney(account.Balance), true).
			AddField("Mgems", fmt.Sprintf("%d 💎", account.Mgems), true).
			AddField("Cards", fmt.Sprintf("%d", count), true).
			Build()
		return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{embed}})
	}
}
