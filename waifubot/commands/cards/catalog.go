package cards

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/utils"
)

const searchLimit = 15

var Catalog = discord.SlashCommandCreate{
	Name:        "catalog",
	Description: "Search the characters cards can be drawn as",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "query",
			Description: "Name or series to search for",
			Required:    true,
		},
	},
}

func CatalogHandler(b *waifubot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		query := e.SlashCommandInteractionData().String("query")
		entries := b.Catalog.Search(query, searchLimit)
		if len(entries) == 0 {
			return utils.EH.Warn(e, fmt.Sprintf("Nothing in the catalog matches %q.", query))
		}

		var sb strings.Builder
		for _, entry := range entries {
			rank, size, _ := b.Catalog.Rank(entry.ID)
			fmt.Fprintf(&sb, "**%s** (%s) • %s • #%d of %d\n", entry.Name, entry.Series, entry.Tier, rank, size)
		}
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{discord.NewEmbedBuilder().
				SetTitle(fmt.Sprintf("🔍 Catalog: %s", query)).
				SetDescription(sb.String()).
				SetColor(utils.InfoColor).
				Build()},
		})
	}
}
