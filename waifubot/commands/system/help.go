package system

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/utils"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

var Help = discord.SlashCommandCreate{
	Name:        "help",
	Description: "📖 How the waifu economy works",
}

type category struct {
	name     string
	emoji    string
	commands []string
}

var categories = []category{
	{"Cards", "🎴", []string{
		"`/draw [minimum]` draw a random waifu",
		"`/odds [minimum]` see the chance for each tier",
		"`/cards` browse your collection",
		"`/view <serial>` show a card",
		"`/lock` `/unlock` protect a card from selling, gifting and trading",
		"`/catalog <query>` look up a waifu",
	}},
	{"Economy", "💰", []string{
		"`/balance` money and Mgems",
		"`/sell <serial>` sell a card back",
		"`/upgrade <serial>` spend Mgems to level a card",
		"`/gift` give a card, money or Mgems",
	}},
	{"Trading", "🔄", []string{
		"`/trade <user> <your_card> <their_card>` propose a swap",
		"`/trades` open and recent trades",
	}},
}

func HelpHandler(b *waifubot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		policy := b.Cfg.Policy

		var costs strings.Builder
		for _, minimum := range append([]waifu.Tier{waifu.TierAny}, waifu.MinimumTiers...) {
			cost, err := policy.DrawCost(minimum)
			if err != nil {
				continue
			}
			fmt.Fprintf(&costs, "%s: **%s**\n", minimum, utils.FormatMoney(cost))
		}

		eb := discord.NewEmbedBuilder().
			SetTitle("📖 Waifu Bot").
			SetDescription(fmt.Sprintf("Cards level up %d times before they are promoted to the next tier. SS cards keep levelling.", waifu.PromotionLevel)).
			SetColor(utils.InfoColor)
		for _, c := range categories {
			eb.AddField(c.emoji+" "+c.name, strings.Join(c.commands, "\n"), false)
		}
		eb.AddField("🎲 Draw prices", costs.String(), false)

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{eb.Build()},
			Flags:  discord.MessageFlagEphemeral,
		})
	}
}
