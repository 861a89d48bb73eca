package directory

import (
	"context"
	"time"

	"github.com/edgard/morebots/internal/database"
	"github.com/edgard/morebots/internal/identity"
)

// Store is the part of the directory store the core relies on.
type Store interface {
	GetBotByID(ctx context.Context, id string) (*database.BotEntry, error)
	ListBots(ctx context.Context, visibleOnly bool) ([]*database.BotEntry, error)
	InsertBot(ctx context.Context, entry *database.BotEntry) error
	UpdateBotReputation(ctx context.Context, id string, rep database.Reputation, modifiedBy string, modifiedAt time.Time) (bool, error)
	SetBotVisibility(ctx context.Context, username string, visible bool, modifiedBy string, modifiedAt time.Time) (bool, error)
	DeleteBotByUsername(ctx context.Context, username string) error
}

// Resolver looks identities up in the identity service. Lookup returns
// identity.ErrNotFound for unknown usernames; LookupMany may return a subset.
type Resolver interface {
	Lookup(ctx context.Context, username string) (*identity.Profile, error)
	LookupMany(ctx context.Context, ids []string) ([]identity.Profile, error)
}

// Converter converts a fiat amount into the native payment currency.
type Converter interface {
	ToNative(ctx context.Context, fiatCurrency string, amount float64) (float64, error)
}

// Messenger carries replies back through the transport.
type Messenger interface {
	Send(ctx context.Context, chatID int64, reply Reply) error
	Notify(ctx context.Context, username string, reply Reply) error
	RequestPayment(ctx context.Context, chatID int64, req PaymentRequest) error
}

// Clock returns the current time.
type Clock func() time.Time
