package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/morebots/internal/directory"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return initHandler{deps: deps, name: "start"}.Handle
}

// initHandler turns a conversation-opening command into an init event.
type initHandler struct {
	deps HandlerDeps
	name string
}

func (h initHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", h.name)

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	log.InfoContext(ctx, "Handling command", "chat_id", update.Message.Chat.ID, "user_id", update.Message.From.ID)

	h.deps.Router.Handle(ctx, directory.Event{
		Kind:   directory.EventInit,
		ChatID: update.Message.Chat.ID,
		From:   identityOf(update.Message.From),
	})
}
