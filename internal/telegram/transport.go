package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/edgard/morebots/internal/config"
	"github.com/edgard/morebots/internal/directory"
)

// ErrNotAttached is returned when a reply is sent before Attach.
var ErrNotAttached = errors.New("telegram transport is not attached to a bot")

// ErrUnknownContact is returned by Notify when no chat is known for a username.
var ErrUnknownContact = errors.New("no chat known for username")

// botAPI is the part of *bot.Bot the transport sends through.
type botAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendInvoice(ctx context.Context, params *bot.SendInvoiceParams) (*models.Message, error)
}

// Transport renders directory replies as Telegram messages. It also keeps a
// contact book of private chats by username so users can be addressed by name.
type Transport struct {
	log      *slog.Logger
	payments config.PaymentsConfig

	mu       sync.RWMutex
	api      botAPI
	contacts map[string]int64
}

// NewTransport creates a Transport. The administrator's chat is seeded from
// telegram.admin_chat_id when it is set.
func NewTransport(cfg *config.Config, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Transport{
		log:      logger.With("component", "telegram_transport"),
		payments: cfg.Payments,
		contacts: make(map[string]int64),
	}
	if cfg.Telegram.AdminChatID != 0 {
		t.Remember(cfg.Telegram.AdminUsername, cfg.Telegram.AdminChatID)
	}
	return t
}

// Attach sets the bot used to send replies.
func (t *Transport) Attach(api botAPI) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.api = api
}

// Remember records the private chat of username.
func (t *Transport) Remember(username string, chatID int64) {
	key := contactKey(username)
	if key == "" || chatID == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.contacts[key] = chatID
}

// ChatFor returns the private chat recorded for username.
func (t *Transport) ChatFor(username string) (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.contacts[contactKey(username)]
	return id, ok
}

func contactKey(username string) string {
	return strings.ToLower(config.NormalizeUsername(username))
}

// ContactMiddleware records the sender of every private message and callback.
func (t *Transport) ContactMiddleware() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			switch {
			case update.Message != nil && update.Message.From != nil:
				if update.Message.Chat.Type == models.ChatTypePrivate {
					t.Remember(update.Message.From.Username, update.Message.Chat.ID)
				}
			case update.CallbackQuery != nil:
				// Private chat ids equal the user id.
				t.Remember(update.CallbackQuery.From.Username, update.CallbackQuery.From.ID)
			case update.PreCheckoutQuery != nil && update.PreCheckoutQuery.From != nil:
				t.Remember(update.PreCheckoutQuery.From.Username, update.PreCheckoutQuery.From.ID)
			}
			next(ctx, b, update)
		}
	}
}

func (t *Transport) client() (botAPI, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.api == nil {
		return nil, ErrNotAttached
	}
	return t.api, nil
}

// Send delivers reply to chatID.
func (t *Transport) Send(ctx context.Context, chatID int64, reply directory.Reply) error {
	api, err := t.client()
	if err != nil {
		return err
	}

	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   reply.Text,
	}
	if markup := RenderMarkup(reply); markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := api.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send message to chat %d: %w", chatID, err)
	}
	t.log.DebugContext(ctx, "Sent reply", "chat_id", chatID, "controls", len(reply.Controls), "show_keyboard", reply.ShowKeyboard)
	return nil
}

// Notify delivers reply to the private chat recorded for username.
func (t *Transport) Notify(ctx context.Context, username string, reply directory.Reply) error {
	chatID, ok := t.ChatFor(username)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownContact, username)
	}
	return t.Send(ctx, chatID, reply)
}

// RequestPayment sends an invoice for req to chatID.
func (t *Transport) RequestPayment(ctx context.Context, chatID int64, req directory.PaymentRequest) error {
	api, err := t.client()
	if err != nil {
		return err
	}

	payload := "donation_" + uuid.New().String()
	params := &bot.SendInvoiceParams{
		ChatID:        chatID,
		Title:         req.Title,
		Description:   req.Description,
		Payload:       payload,
		ProviderToken: t.payments.ProviderToken,
		Currency:      req.Currency,
		Prices: []models.LabeledPrice{
			{Label: req.Title, Amount: int(req.Amount)},
		},
	}
	if _, err := api.SendInvoice(ctx, params); err != nil {
		return fmt.Errorf("send invoice to chat %d: %w", chatID, err)
	}
	t.log.InfoContext(ctx, "Sent invoice", "chat_id", chatID, "amount", req.Amount, "currency", req.Currency, "payload", payload)
	return nil
}

// RenderMarkup converts the reply's controls into Telegram reply markup. It
// returns nil when the reply carries none.
func RenderMarkup(reply directory.Reply) models.ReplyMarkup {
	if reply.ShowKeyboard {
		return &models.ForceReply{ForceReply: true}
	}

	var rows [][]models.InlineKeyboardButton
	if len(reply.Controls) > 0 {
		rows = append(rows, buttonRow(reply.Controls))
	}
	if g := reply.Group; g != nil && len(g.Controls) > 0 {
		rows = append(rows, []models.InlineKeyboardButton{{Text: g.Label, CallbackData: directory.InertCommand}})
		for _, c := range g.Controls {
			rows = append(rows, buttonRow([]directory.Control{c}))
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func buttonRow(controls []directory.Control) []models.InlineKeyboardButton {
	row := make([]models.InlineKeyboardButton, 0, len(controls))
	for _, c := range controls {
		row = append(row, models.InlineKeyboardButton{Text: c.Label, CallbackData: c.Value})
	}
	return row
}
