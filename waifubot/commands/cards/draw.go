package cards

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/services"
	"github.com/disgoorg/waifu-bot/waifubot/utils"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

var minimumChoices = []discord.ApplicationCommandOptionChoiceString{
	{Name: "C or better", Value: string(waifu.TierC)},
	{Name: "B or better", Value: string(waifu.TierB)},
	{Name: "A or better", Value: string(waifu.TierA)},
}

var Draw = discord.SlashCommandCreate{
	Name:        "draw",
	Description: "Spend money to draw a new card",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "minimum",
			Description: "Pay more to guarantee at least this tier",
			Required:    false,
			Choices:     minimumChoices,
		},
	},
}

var Odds = discord.SlashCommandCreate{
	Name:        "odds",
	Description: "Show draw prices and tier odds",
}

func parseMinimum(raw string) (waifu.Tier, error) {
	if raw == "" {
		return waifu.TierAny, nil
	}
	return waifu.ParseTier(raw)
}

func DrawHandler(b *waifubot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultQueryTimeout)
		defer cancel()

		raw, _ := e.SlashCommandInteractionData().OptString("minimum")
		minimum, err := parseMinimum(raw)
		if err != nil {
			return utils.EH.Error(e, err)
		}

		// Defer before charging so a paid draw always has an interaction left to answer.
		if err := e.DeferCreateMessage(false); err != nil {
			return err
		}
		result, err := b.Draws.Draw(ctx, e.User().ID.String(), minimum)
		if err != nil {
			return utils.EH.ErrorFollowup(e, err)
		}

		view := services.CardView{Card: result.Card, Entry: result.Entry}
		msg := cardMessage(ctx, b, view, e.User().Username,
			fmt.Sprintf("✨ %s drew %s!", e.User().Username, view.Name()),
			fmt.Sprintf("Paid **%s**, balance is now **%s**.", utils.FormatMoney(result.Cost), utils.FormatMoney(result.Balance)),
		)
		_, err = e.CreateFollowupMessage(msg)
		return err
	}
}

func OddsHandler(b *waifubot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		embed := discord.NewEmbedBuilder().
			SetTitle("🎲 Draw odds").
			SetColor(utils.InfoColor)

		for _, minimum := range append([]waifu.Tier{waifu.TierAny}, waifu.MinimumTiers...) {
			cost, err := b.Cfg.Policy.DrawCost(minimum)
			if err != nil {
				return utils.EH.Error(e, err)
			}
			odds, err := b.Draws.Odds(minimum)
			if err != nil {
				return utils.EH.Error(e, err)
			}
			var lines string
			for _, tier := range waifu.Tiers {
				if p, ok := odds[tier]; ok {
					lines += fmt.Sprintf("%s: %.2f%%\n", tier, p*100)
				}
			}
			embed.AddField(fmt.Sprintf("Minimum %s • %s", minimum, utils.FormatMoney(cost)), lines, true)
		}

		var pool string
		for _, tier := range waifu.Tiers {
			pool += fmt.Sprintf("%s: %d\n", tier, b.Catalog.TierSize(tier))
		}
		embed.AddField("Waifus per tier", pool, false)

		return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{embed.Build()}})
	}
}
