package economy

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/utils"
)

var Upgrade = discord.SlashCommandCreate{
	Name:        "upgrade",
	Description: "Spend Mgems to level up a card; level 3 cards promote to the next tier",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "serial",
			Description: "Card to upgrade",
			Required:    true,
		},
		discord.ApplicationCommandOptionBool{
			Name:        "preview",
			Description: "Only show the cost",
			Required:    false,
		},
	},
}

func UpgradeHandler(b *waifubot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultQueryTimeout)
		defer cancel()

		data := e.SlashCommandInteractionData()
		userID := e.User().ID.String()
		serial := data.String("serial")

		if preview, _ := data.OptBool("preview"); preview {
			q, err := b.Upgrades.Quote(ctx, userID, serial)
			if err != nil {
				return utils.EH.Error(e, err)
			}
			return e.CreateMessage(discord.MessageCreate{
				Content: fmt.Sprintf("Upgrading `%s` from %s %s to %s %s costs **%d** 💎.",
					q.Serial, q.Tier, utils.FormatLevel(q.Level), q.NextTier, utils.FormatLevel(q.NextLevel), q.Cost),
				Flags: discord.MessageFlagEphemeral,
			})
		}

		res, err := b.Upgrades.Upgrade(ctx, userID, serial)
		if err != nil {
			return utils.EH.Error(e, err)
		}
		title := "⬆️ Upgraded"
		if res.Promoted {
			title = fmt.Sprintf("🌟 Promoted to %s!", res.Tier)
		}
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{discord.NewEmbedBuilder().
				SetTitle(title).
				SetDescription(fmt.Sprintf("`%s`: %s %s → %s %s for %d 💎",
					res.Serial, res.FromTier, utils.FormatLevel(res.FromLevel), res.Tier, utils.FormatLevel(res.Level), res.Cost)).
				SetColor(utils.TierColor(res.Tier)).
				Build()},
		})
	}
}
