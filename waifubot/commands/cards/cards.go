package cards

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/database/repositories"
	"github.com/disgoorg/waifu-bot/waifubot/services"
	"github.com/disgoorg/waifu-bot/waifubot/utils"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

var tierChoices = []discord.ApplicationCommandOptionChoiceString{
	{Name: "SS", Value: string(waifu.TierSS)},
	{Name: "S", Value: string(waifu.TierS)},
	{Name: "A", Value: string(waifu.TierA)},
	{Name: "B", Value: string(waifu.TierB)},
	{Name: "C", Value: string(waifu.TierC)},
	{Name: "D", Value: string(waifu.TierD)},
}

var Cards = discord.SlashCommandCreate{
	Name:        "cards",
	Description: "List a collection, rarest first",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Whose collection to show (default: yours)",
			Required:    false,
		},
		discord.ApplicationCommandOptionString{
			Name:        "tier",
			Description: "Only show this tier",
			Required:    false,
			Choices:     tierChoices,
		},
		discord.ApplicationCommandOptionBool{
			Name:        "locked",
			Description: "Only show locked cards",
			Required:    false,
		},
	},
}

func CardsHandler(b *waifubot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultQueryTimeout)
		defer cancel()

		data := e.SlashCommandInteractionData()
		owner := e.User()
		if u, ok := data.OptUser("user"); ok {
			owner = u
		}

		var filter repositories.CardFilter
		if raw, ok := data.OptString("tier"); ok {
			tier, err := waifu.ParseTier(raw)
			if err != nil {
				return utils.EH.Error(e, err)
			}
			filter.Tier = tier
		}
		filter.LockedOnly, _ = data.OptBool("locked")

		views, err := b.Collection.List(ctx, owner.ID.String(), filter)
		if err != nil {
			return utils.EH.Error(e, err)
		}
		if len(views) == 0 {
			return utils.EH.Warn(e, fmt.Sprintf("%s has no matching cards. Try `/draw`!", owner.Username))
		}

		totalPages := utils.PageCount(len(views), utils.CardsPerPage)
		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start := page * utils.CardsPerPage
				end := min(start+utils.CardsPerPage, len(views))
				embed.
					SetTitle(fmt.Sprintf("🃏 %s's cards", owner.Username)).
					SetDescription(pageDescription(views[start:end])).
					SetColor(utils.TierColor(views[0].Card.Tier)).
					SetFooter(fmt.Sprintf("Page %d/%d • Total: %d", page+1, totalPages, len(views)), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

func pageDescription(views []services.CardView) string {
	var sb strings.Builder
	for _, v := range views {
		sb.WriteString(utils.CardLine(v.Card.Serial, v.Name(), v.Card.Tier, v.Card.Level, v.Card.Locked))
		sb.WriteByte('\n')
	}
	return sb.String()
}
