// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"backlog-manager/internal/config"
	"backlog-manager/internal/handler"
	"backlog-manager/internal/view"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	backlogHandler *handler.BacklogHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config  *config.Config
	Backlog handler.Backlog
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Bot handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:            teleBot,
		cfg:            deps.Config,
		backlogHandler: handler.NewBacklogHandler(deps.Backlog, deps.Config.Storage.Key),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	h := b.backlogHandler

	b.bot.Handle("/start", h.HandleHelp)
	b.bot.Handle("/help", h.HandleHelp)

	b.bot.Handle("/add", h.HandleAdd)
	b.bot.Handle("/list", h.HandleList)
	b.bot.Handle("/board", h.HandleBoard)
	b.bot.Handle("/stats", h.HandleStats)

	b.bot.Handle("/done", h.HandleDone)
	b.bot.Handle("/play", h.HandlePlay)
	b.bot.Handle("/move", h.HandleMove)
	b.bot.Handle("/edit", h.HandleEdit)
	b.bot.Handle("/delete", h.HandleDelete)

	// Game card buttons
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes callbacks to appropriate handlers
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 may add a \f prefix to callback data
	data := strings.TrimPrefix(callback.Data, "\f")
	log.Debug().Str("data", data).Msg("Callback received")

	if isGameCallback(data) {
		return b.backlogHandler.HandleCallback(c)
	}
	return c.Respond()
}

func isGameCallback(data string) bool {
	for _, prefix := range []string{view.CallbackDone, view.CallbackPlay, view.CallbackMove, view.CallbackDelete} {
		if strings.HasPrefix(data, prefix) {
			return true
		}
	}
	return false
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
