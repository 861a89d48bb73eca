package handlers

import (
	"strconv"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/morebots/internal/directory"
)

func identityOf(u *models.User) directory.Identity {
	if u == nil {
		return directory.Identity{}
	}
	return directory.Identity{
		ID:       strconv.FormatInt(u.ID, 10),
		Username: u.Username,
		IsBot:    u.IsBot,
	}
}

// payerAddress names the sender of a payment: the username when there is one.
func payerAddress(u *models.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}

// MessageEvent converts a message into a directory event. A successful
// payment becomes a confirmed payment; text becomes a message. It reports
// false for messages that carry neither.
func MessageEvent(msg *models.Message, botUsername string) (directory.Event, bool) {
	if msg == nil || msg.From == nil {
		return directory.Event{}, false
	}
	ev := directory.Event{
		ChatID: msg.Chat.ID,
		From:   identityOf(msg.From),
	}

	switch {
	case msg.SuccessfulPayment != nil:
		sp := msg.SuccessfulPayment
		ev.Kind = directory.EventPayment
		ev.Payment = &directory.Payment{
			FromAddress: payerAddress(msg.From),
			ToAddress:   botUsername,
			Status:      directory.PaymentConfirmed,
			Amount:      int64(sp.TotalAmount),
			Currency:    sp.Currency,
		}
	case msg.Text != "":
		ev.Kind = directory.EventMessage
		ev.Text = msg.Text
	default:
		return directory.Event{}, false
	}
	return ev, true
}

// PreCheckoutEvent converts a pre-checkout query into an unconfirmed payment.
// The payment is reported in the payer's private chat.
func PreCheckoutEvent(q *models.PreCheckoutQuery, botUsername string) (directory.Event, bool) {
	if q == nil || q.From == nil {
		return directory.Event{}, false
	}
	return directory.Event{
		Kind:   directory.EventPayment,
		ChatID: q.From.ID,
		From:   identityOf(q.From),
		Payment: &directory.Payment{
			FromAddress: payerAddress(q.From),
			ToAddress:   botUsername,
			Status:      directory.PaymentUnconfirmed,
			Amount:      int64(q.TotalAmount),
			Currency:    q.Currency,
		},
	}, true
}

// CallbackEvent converts a button press into a command event.
func CallbackEvent(q *models.CallbackQuery) (directory.Event, bool) {
	if q == nil {
		return directory.Event{}, false
	}
	chatID := q.From.ID
	switch {
	case q.Message.Message != nil:
		chatID = q.Message.Message.Chat.ID
	case q.Message.InaccessibleMessage != nil:
		chatID = q.Message.InaccessibleMessage.Chat.ID
	}
	return directory.Event{
		Kind:    directory.EventCommand,
		ChatID:  chatID,
		From:    identityOf(&q.From),
		Command: q.Data,
	}, true
}
