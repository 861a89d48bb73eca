// Package directory implements the MoreBots core: routing of inbound chat
// events, the registration rules for directory entries, the opportunistic
// reputation refresh, and rendering of the public list.
package directory

// EventKind classifies an inbound event.
type EventKind int

// Event kinds delivered by the transport.
const (
	EventInit EventKind = iota + 1
	EventMessage
	EventCommand
	EventPayment
	EventPaymentRequest
)

func (k EventKind) String() string {
	switch k {
	case EventInit:
		return "init"
	case EventMessage:
		return "message"
	case EventCommand:
		return "command"
	case EventPayment:
		return "payment"
	case EventPaymentRequest:
		return "payment_request"
	default:
		return "unknown"
	}
}

// Identity describes the sender of an event. IsBot marks automated senders.
type Identity struct {
	ID       string
	Username string
	IsBot    bool
}

// PaymentStatus is the settlement state reported by the transport.
type PaymentStatus string

// Payment statuses.
const (
	PaymentUnconfirmed PaymentStatus = "unconfirmed"
	PaymentConfirmed   PaymentStatus = "confirmed"
	PaymentError       PaymentStatus = "error"
)

// Payment is the payload of an EventPayment. Amount is in the smallest unit
// of Currency.
type Payment struct {
	FromAddress string
	ToAddress   string
	Status      PaymentStatus
	Amount      int64
	Currency    string
}

// Event is one inbound event. Text is set for messages, Command for button
// presses and Payment for payments.
type Event struct {
	Kind    EventKind
	ChatID  int64
	From    Identity
	Text    string
	Command string
	Payment *Payment
}

// Control is a quick-reply button; Value is sent back as a command.
type Control struct {
	Label string
	Value string
}

// ControlGroup is a labeled set of buttons shown after the flat controls.
type ControlGroup struct {
	Label    string
	Controls []Control
}

// Reply is an outbound message. ShowKeyboard asks the client to open its
// text entry keyboard.
type Reply struct {
	Text         string
	Controls     []Control
	Group        *ControlGroup
	ShowKeyboard bool
}

// PaymentRequest asks the user to pay Amount (smallest unit) of Currency.
type PaymentRequest struct {
	Title       string
	Description string
	Currency    string
	Amount      int64
}
