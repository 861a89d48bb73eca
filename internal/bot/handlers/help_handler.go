package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/morebots/internal/directory"
)

// NewHelpHandler returns a handler for the /help command. Help shows the
// same greeting and buttons as /start.
func NewHelpHandler(deps HandlerDeps) bot.HandlerFunc {
	return initHandler{deps: deps, name: "help"}.Handle
}

// NewShortcutHandler returns a handler for a slash command that stands in for
// pressing the button of command.
func NewShortcutHandler(deps HandlerDeps, name string, command directory.CommandID) bot.HandlerFunc {
	return shortcutHandler{deps: deps, name: name, command: command}.Handle
}

type shortcutHandler struct {
	deps    HandlerDeps
	name    string
	command directory.CommandID
}

func (h shortcutHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", h.name)

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	log.InfoContext(ctx, "Handling command", "chat_id", update.Message.Chat.ID, "user_id", update.Message.From.ID)

	h.deps.Router.Handle(ctx, directory.Event{
		Kind:    directory.EventCommand,
		ChatID:  update.Message.Chat.ID,
		From:    identityOf(update.Message.From),
		Command: string(h.command),
	})
}
