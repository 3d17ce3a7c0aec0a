package handlers

import (
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/waifu-bot/waifubot/logger"
	"github.com/disgoorg/waifu-bot/waifubot/metrics"
)

const (
	slowThreshold  = 2 * time.Second
	handlerTimeout = 10 * time.Second
)

// interaction is the part of command and component events the wrappers log.
type interaction interface {
	User() discord.User
}

// run executes fn with a timeout and logs the outcome under kind.
func run(kind, name string, e interaction, fn func() error) error {
	start := time.Now()
	user := e.User()

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	finish := func(status string, took time.Duration, err error) {
		logger.LogInteraction(kind, name, user.ID.String(), user.Username, status, took, err)
		metrics.InteractionDuration.WithLabelValues(name, status).Observe(took.Seconds())
	}

	select {
	case err := <-done:
		took := time.Since(start)
		switch {
		case err != nil:
			finish(logger.StatusFailed, took, err)
		case took > slowThreshold:
			finish(logger.StatusSlow, took, nil)
		default:
			finish(logger.StatusSuccess, took, nil)
		}
		return err

	case <-time.After(handlerTimeout):
		finish(logger.StatusTimeout, handlerTimeout, nil)
		return fmt.Errorf("%s timed out after %s", name, handlerTimeout)
	}
}

// WrapWithLogging wraps a command handler with logging and timing.
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		return run(logger.KindCommand, name, e, func() error { return h(e) })
	}
}

// WrapComponentWithLogging wraps a component handler with logging and timing.
func WrapComponentWithLogging(name string, h handler.ComponentHandler) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		return run(logger.KindComponent, name, e, func() error { return h(e) })
	}
}
