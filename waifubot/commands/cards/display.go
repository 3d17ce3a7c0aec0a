package cards

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/disgoorg/disgo/discord"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/logger"
	"github.com/disgoorg/waifu-bot/waifubot/render"
	"github.com/disgoorg/waifu-bot/waifubot/services"
	"github.com/disgoorg/waifu-bot/waifubot/utils"
)

const imageName = "card.png"

func renderInput(v services.CardView, ownerLabel string) render.Input {
	return render.Input{
		Serial:     v.Card.Serial,
		Tier:       v.Card.Tier,
		Level:      v.Card.Level,
		Entry:      v.Entry,
		OwnerLabel: ownerLabel,
	}
}

// cardMessage builds an embed for the card with its rendered image attached.
// A failed render still sends the embed.
func cardMessage(ctx context.Context, b *waifubot.Bot, v services.CardView, ownerLabel, title, description string) discord.MessageCreate {
	embed := discord.NewEmbedBuilder().
		SetTitle(title).
		SetDescription(description).
		SetColor(utils.TierColor(v.Card.Tier)).
		AddField("Serial", fmt.Sprintf("`%s`", v.Card.Serial), true).
		AddField("Tier", string(v.Card.Tier), true).
		AddField("Level", utils.FormatLevel(v.Card.Level), true)
	if v.Entry != nil && v.Entry.Series != "" {
		embed.AddField("Series", v.Entry.Series, false)
	}
	if v.Card.Locked {
		embed.SetFooter("🔒 Locked", "")
	}

	msg := discord.MessageCreate{}
	img, err := b.Renderer.Render(ctx, renderInput(v, ownerLabel))
	if err != nil {
		logger.LogError("Failed to render card", err, slog.String("serial", v.Card.Serial))
	} else {
		embed.SetImage("attachment://" + imageName)
		msg.Files = []*discord.File{discord.NewFile(imageName, "", bytes.NewReader(img))}
	}
	msg.Embeds = []discord.Embed{embed.Build()}
	return msg
}
