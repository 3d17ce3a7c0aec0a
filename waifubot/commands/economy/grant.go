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

var Grant = discord.SlashCommandCreate{
	Name:        "grant",
	Description: "Admin: adjust a user's money and Mgems",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{Name: "user", Description: "Target user", Required: true},
		discord.ApplicationCommandOptionString{Name: "money", Description: "Money delta, may be negative", Required: false},
		discord.ApplicationCommandOptionInt{Name: "mgems", Description: "Mgem delta, may be negative", Required: false},
	},
}

func GrantHandler(b *waifubot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !b.IsAdmin(e.User().ID) {
			return utils.EH.Warn(e, "Only bot admins can grant.")
		}
		ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultQueryTimeout)
		defer cancel()

		data := e.SlashCommandInteractionData()
		user := data.User("user")

		money := decimal.Zero
		if raw, ok := data.OptString("money"); ok {
			var err error
			if money, err = decimal.NewFromString(raw); err != nil {
				return utils.EH.Error(e, fmt.Errorf("%w: %q is not an amount", waifu.ErrInvalidArgument, raw))
			}
		}
		mgems, _ := data.OptInt("mgems")

		account, err := b.Gifts.Grant(ctx, user.ID.String(), money, int64(mgems))
		if err != nil {
			return utils.EH.Error(e, err)
		}
		return e.CreateMessage(discord.MessageCreate{
			Content: fmt.Sprintf("%s now has **%s** and **%d** 💎.", user.Mention(), utils.FormatMoney(account.Balance), account.Mgems),
			Flags:   discord.MessageFlagEphemeral,
		})
	}
}
