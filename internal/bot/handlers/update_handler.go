package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// answerer is the part of *bot.Bot that acknowledges queries.
type answerer interface {
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	AnswerPreCheckoutQuery(ctx context.Context, params *bot.AnswerPreCheckoutQueryParams) (bool, error)
}

func asAnswerer(b *bot.Bot) answerer {
	if b == nil {
		return nil
	}
	return b
}

// NewCallbackHandler returns a handler for inline keyboard presses. Every
// query is answered so the client stops its progress indicator.
func NewCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	h := callbackHandler{deps}
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		h.handle(ctx, asAnswerer(b), update)
	}
}

type callbackHandler struct {
	deps HandlerDeps
}

func (h callbackHandler) handle(ctx context.Context, a answerer, update *models.Update) {
	log := h.deps.Logger.With("handler", "callback")

	q := update.CallbackQuery
	if q == nil {
		log.WarnContext(ctx, "Callback handler received update without callback query", "update_id", update.ID)
		return
	}

	if a != nil {
		if _, err := a.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: q.ID}); err != nil {
			log.ErrorContext(ctx, "Failed to answer callback query", "error", err, "callback_query_id", q.ID)
		}
	}

	ev, ok := CallbackEvent(q)
	if !ok {
		return
	}
	h.deps.Router.Handle(ctx, ev)
}

// NewUpdateHandler returns the default handler. It serves plain text,
// successful payments and pre-checkout queries.
func NewUpdateHandler(deps HandlerDeps) bot.HandlerFunc {
	h := updateHandler{deps}
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		h.handle(ctx, asAnswerer(b), update)
	}
}

type updateHandler struct {
	deps HandlerDeps
}

func (h updateHandler) handle(ctx context.Context, a answerer, update *models.Update) {
	log := h.deps.Logger.With("handler", "default")
	botUsername := h.deps.Config.Telegram.BotUsername

	switch {
	case update.PreCheckoutQuery != nil:
		q := update.PreCheckoutQuery
		if a != nil {
			if _, err := a.AnswerPreCheckoutQuery(ctx, &bot.AnswerPreCheckoutQueryParams{PreCheckoutQueryID: q.ID, OK: true}); err != nil {
				log.ErrorContext(ctx, "Failed to answer pre-checkout query", "error", err, "pre_checkout_query_id", q.ID)
				return
			}
		}
		if ev, ok := PreCheckoutEvent(q, botUsername); ok {
			h.deps.Router.Handle(ctx, ev)
		}

	case update.Message != nil:
		ev, ok := MessageEvent(update.Message, botUsername)
		if !ok {
			log.DebugContext(ctx, "Ignoring message without text or payment", "update_id", update.ID)
			return
		}
		h.deps.Router.Handle(ctx, ev)

	case update.CallbackQuery != nil:
		callbackHandler{h.deps}.handle(ctx, a, update)

	default:
		log.DebugContext(ctx, "Ignoring unsupported update", "update_id", update.ID)
	}
}
