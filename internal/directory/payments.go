package directory

import (
	"context"
	"fmt"
	"strings"
)

func (r *Router) onPayment(ctx context.Context, ev Event) {
	p := ev.Payment
	if p == nil {
		r.log.WarnContext(ctx, "Payment event without payload", "chat_id", ev.ChatID)
		return
	}
	log := r.log.With("chat_id", ev.ChatID, "from", p.FromAddress, "status", string(p.Status),
		"amount", p.Amount, "currency", p.Currency)

	bot := r.deps.Config.Telegram.BotUsername
	if bot != "" && strings.EqualFold(p.FromAddress, bot) {
		log.InfoContext(ctx, "Outbound payment recorded")
		return
	}

	switch p.Status {
	case PaymentUnconfirmed:
		log.InfoContext(ctx, "Incoming payment pending")
		r.reply(ctx, ev.ChatID, r.msgs.PaymentPending)

	case PaymentConfirmed:
		log.InfoContext(ctx, "Incoming payment confirmed")
		r.reply(ctx, ev.ChatID, r.msgs.PaymentThanks)

		payer := ev.From.Username
		if payer == "" {
			payer = p.FromAddress
		}
		notice := fmt.Sprintf(r.msgs.AdminPaymentNoticeFmt, payer,
			FormatAmount(p.Amount, r.deps.Config.Payments.Decimals), p.Currency)
		admin := r.deps.Config.Telegram.AdminUsername
		if err := r.deps.Messenger.Notify(ctx, admin, Reply{Text: notice}); err != nil {
			log.ErrorContext(ctx, "Failed to notify administrator of payment", "admin", admin, "error", err)
		}

	case PaymentError:
		log.WarnContext(ctx, "Incoming payment failed")
		r.reply(ctx, ev.ChatID, r.msgs.PaymentError)

	default:
		log.WarnContext(ctx, "Ignoring payment with unknown status")
	}
}

// donate asks the sender for the configured reference value, converted into
// the native currency.
func (r *Router) donate(ctx context.Context, ev Event) {
	pay := r.deps.Config.Payments
	native, err := r.deps.Converter.ToNative(ctx, pay.ReferenceCurrency, pay.ReferenceAmount)
	if err != nil {
		r.log.ErrorContext(ctx, "Failed to convert donation amount", "chat_id", ev.ChatID,
			"reference_currency", pay.ReferenceCurrency, "error", err)
		return
	}

	amount := ToSmallestUnit(native, pay.Decimals)
	if amount < 1 {
		amount = 1
	}

	req := PaymentRequest{
		Title:       r.msgs.DonationTitle,
		Description: r.msgs.DonationDescription,
		Currency:    pay.Currency,
		Amount:      amount,
	}
	if err := r.deps.Messenger.RequestPayment(ctx, ev.ChatID, req); err != nil {
		r.log.ErrorContext(ctx, "Failed to request donation", "chat_id", ev.ChatID, "error", err)
		return
	}
	r.log.InfoContext(ctx, "Donation requested", "chat_id", ev.ChatID, "amount", amount, "currency", pay.Currency)
}
