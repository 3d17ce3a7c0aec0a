package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"

	"github.com/disgoorg/waifu-bot/waifubot/economy/session"
	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

const (
	DefaultQueryTimeout = 10 * time.Second

	SuccessColor = 0x57F287
	ErrorColor   = 0xED4245
	WarningColor = 0xFEE75C
	InfoColor    = 0x5865F2
)

// ErrorType groups failures by how they are shown to the user.
type ErrorType int

const (
	UserError ErrorType = iota
	SystemError
	NotFoundError
	PermissionError
	BusinessLogicError
)

func (t ErrorType) prefix() string {
	switch t {
	case UserError:
		return "⚠️"
	case NotFoundError:
		return "🔍"
	case PermissionError:
		return "🚫"
	case BusinessLogicError:
		return "⏰"
	}
	return "🔧"
}

func (t ErrorType) color() int {
	switch t {
	case UserError, BusinessLogicError:
		return WarningColor
	case NotFoundError:
		return InfoColor
	}
	return ErrorColor
}

// Describe maps an error to what the user sees. Anything that is not an expected rejection
// becomes a generic retry message; the details stay in the logs.
func Describe(err error) (ErrorType, string) {
	var cooldown *session.CooldownError
	switch {
	case errors.As(err, &cooldown):
		return BusinessLogicError, fmt.Sprintf("Slow down! You can draw again in %s.", cooldown.Remaining.Round(time.Second))
	case errors.Is(err, waifu.ErrBusy):
		return BusinessLogicError, "You already have a request in progress, please wait."
	case errors.Is(err, waifu.ErrInsufficientFunds):
		return BusinessLogicError, "You can't afford that."
	case errors.Is(err, waifu.ErrNotOwner):
		return PermissionError, "That card isn't yours."
	case errors.Is(err, waifu.ErrCardLocked):
		return UserError, "That card is locked. Unlock it first."
	case errors.Is(err, waifu.ErrCardNotFound):
		return NotFoundError, "No card with that serial exists."
	case errors.Is(err, waifu.ErrTradeNotFound):
		return NotFoundError, "That trade doesn't exist."
	case errors.Is(err, waifu.ErrDuplicateOffer):
		return BusinessLogicError, "One of you already has a pending trade. Finish or cancel it first."
	case errors.Is(err, waifu.ErrAlreadyMaxTier):
		return UserError, "That card is already at the highest tier."
	case errors.Is(err, waifu.ErrEmptyTier):
		return SystemError, "No cards are available for that tier right now."
	case errors.Is(err, waifu.ErrInvalidArgument):
		return UserError, "That doesn't look right: " + err.Error()
	}
	return SystemError, "Something went wrong, try again."
}

// Responder is satisfied by command and component events.
type Responder interface {
	CreateMessage(messageCreate discord.MessageCreate, opts ...rest.RequestOpt) error
}

// FollowupResponder is satisfied by events whose response was already deferred.
type FollowupResponder interface {
	CreateFollowupMessage(messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// ResponseHandler provides standardized replies for commands and components.
type ResponseHandler struct{}

var EH = &ResponseHandler{}

func errorMessage(err error) discord.MessageCreate {
	kind, msg := Describe(err)
	return discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: fmt.Sprintf("%s %s", kind.prefix(), msg),
			Color:       kind.color(),
		}},
		Flags: discord.MessageFlagEphemeral,
	}
}

// Error replies ephemerally with the user-facing description of err.
func (h *ResponseHandler) Error(e Responder, err error) error {
	return e.CreateMessage(errorMessage(err))
}

// ErrorFollowup is Error for handlers that have already deferred their response.
func (h *ResponseHandler) ErrorFollowup(e FollowupResponder, err error) error {
	_, ferr := e.CreateFollowupMessage(errorMessage(err))
	return ferr
}

func (h *ResponseHandler) Warn(e Responder, msg string) error {
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: fmt.Sprintf("%s %s", UserError.prefix(), msg),
			Color:       WarningColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}

func (h *ResponseHandler) Success(e Responder, msg string) error {
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: msg,
			Color:       SuccessColor,
		}},
	})
}
