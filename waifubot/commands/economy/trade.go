package economy

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"

	"github.com/disgoorg/waifu-bot/waifubot"
	"github.com/disgoorg/waifu-bot/waifubot/database/models"
	"github.com/disgoorg/waifu-bot/waifubot/utils"
)

const historyLimit = 10

var Trade = discord.SlashCommandCreate{
	Name:        "trade",
	Description: "Offer one of your cards for one of theirs",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "The user you want to trade with",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "your_card",
			Description: "Serial of the card you offer",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "their_card",
			Description: "Serial of the card you want",
			Required:    true,
		},
	},
}

var Trades = discord.SlashCommandCreate{
	Name:        "trades",
	Description: "Show your open and recent trades",
}

type TradeHandler struct {
	bot *waifubot.Bot
}

func mention(userID string) string {
	if id, err := snowflake.Parse(userID); err == nil {
		return discord.UserMention(id)
	}
	return userID
}

func tradeEmbed(t *models.Trade, title string, color int) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle(title).
		SetDescription(fmt.Sprintf("%s offers `%s`\n%s gives `%s`", mention(t.OffererID), t.OffererCard, mention(t.OffereeID), t.OffereeCard)).
		SetColor(color).
		SetFooter("Trade "+t.ID, "").
		Build()
}

func (h *TradeHandler) HandleTrade(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultQueryTimeout)
	defer cancel()

	data := e.SlashCommandInteractionData()
	target := data.User("user")
	if target.Bot {
		return utils.EH.Warn(e, "Bots don't trade.")
	}

	trade, err := h.bot.Trades.Propose(ctx, e.User().ID.String(), target.ID.String(), data.String("your_card"), data.String("their_card"))
	if err != nil {
		return utils.EH.Error(e, err)
	}

	return e.CreateMessage(discord.MessageCreate{
		Content: fmt.Sprintf("%s, you have a trade offer!", target.Mention()),
		Embeds:  []discord.Embed{tradeEmbed(trade, "🔄 Trade offer", utils.InfoColor)},
		Components: []discord.ContainerComponent{
			discord.NewActionRow(
				discord.NewSuccessButton("Accept", "/trade/accept/"+trade.ID),
				discord.NewDangerButton("Decline", "/trade/decline/"+trade.ID),
				discord.NewSecondaryButton("Cancel", "/trade/cancel/"+trade.ID),
			),
		},
		AllowedMentions: &discord.AllowedMentions{Users: []snowflake.ID{target.ID}},
	})
}

// act loads the trade, checks that the clicking user is allowed to act, and runs fn.
func (h *TradeHandler) act(e *handler.ComponentEvent, allowed func(*models.Trade) string, fn func(context.Context, string) (bool, error), done string, color int) error {
	ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultQueryTimeout)
	defer cancel()

	trade, err := h.bot.Trades.Get(ctx, e.Vars["id"])
	if err != nil {
		return utils.EH.Error(e, err)
	}
	if e.User().ID.String() != allowed(trade) {
		return utils.EH.Warn(e, "This button isn't for you.")
	}

	ok, err := fn(ctx, trade.ID)
	if err != nil {
		return utils.EH.Error(e, err)
	}

	title, embedColor := done, color
	if !ok {
		// Reload to show why nothing happened.
		if trade, err = h.bot.Trades.Get(ctx, trade.ID); err != nil {
			return utils.EH.Error(e, err)
		}
		title, embedColor = statusTitle(trade.Status), utils.WarningColor
	}
	return e.UpdateMessage(discord.NewMessageUpdateBuilder().
		SetEmbeds(tradeEmbed(trade, title, embedColor)).
		ClearContainerComponents().
		Build())
}

func statusTitle(status models.TradeStatus) string {
	switch status {
	case models.TradeCompleted:
		return "✅ Trade already completed"
	case models.TradeDeclined:
		return "❌ Trade was declined"
	case models.TradeCancelled:
		return "🚫 Trade was cancelled"
	case models.TradeFailed:
		return "⚠️ Trade failed: a card changed hands or was locked"
	}
	return "Trade is " + string(status)
}

func offeree(t *models.Trade) string { return t.OffereeID }
func offerer(t *models.Trade) string { return t.OffererID }

func (h *TradeHandler) HandleAccept(e *handler.ComponentEvent) error {
	return h.act(e, offeree, h.bot.Trades.Accept, "✅ Trade completed", utils.SuccessColor)
}

func (h *TradeHandler) HandleDecline(e *handler.ComponentEvent) error {
	return h.act(e, offeree, h.bot.Trades.Decline, "❌ Trade declined", utils.ErrorColor)
}

func (h *TradeHandler) HandleCancel(e *handler.ComponentEvent) error {
	return h.act(e, offerer, h.bot.Trades.Cancel, "🚫 Trade cancelled", utils.InfoColor)
}

func (h *TradeHandler) HandleTrades(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultQueryTimeout)
	defer cancel()

	userID := e.User().ID.String()
	pending, err := h.bot.Trades.Pending(ctx, userID)
	if err != nil {
		return utils.EH.Error(e, err)
	}
	history, err := h.bot.Trades.History(ctx, userID, historyLimit)
	if err != nil {
		return utils.EH.Error(e, err)
	}

	line := func(t *models.Trade) string {
		return fmt.Sprintf("`%s` ⇄ `%s` with %s • %s <t:%d:R>", t.OffererCard, t.OffereeCard,
			mention(otherParty(t, userID)), t.Status, t.CreatedAt.Unix())
	}
	var open, recent strings.Builder
	for _, t := range pending {
		open.WriteString(line(t) + "\n")
	}
	for _, t := range history {
		if t.Status != models.TradePending {
			recent.WriteString(line(t) + "\n")
		}
	}

	embed := discord.NewEmbedBuilder().
		SetTitle("📬 Your trades").
		SetColor(utils.InfoColor).
		AddField("Open", orNone(open.String()), false).
		AddField("Recent", orNone(recent.String()), false).
		Build()
	return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{embed}, Flags: discord.MessageFlagEphemeral})
}

func otherParty(t *models.Trade, userID string) string {
	if t.OffererID == userID {
		return t.OffereeID
	}
	return t.OffererID
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
