package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/morebots/internal/database"
	"github.com/edgard/morebots/internal/identity"
)

// AddOutcome is the user-visible result of a registration attempt.
type AddOutcome int

// Registration outcomes.
const (
	AddNotFound AddOutcome = iota + 1
	AddHuman
	AddAlreadyListed
	AddOptedOut
	AddAdded
	AddUsernameConflict
)

func (o AddOutcome) String() string {
	switch o {
	case AddNotFound:
		return "not_found"
	case AddHuman:
		return "human"
	case AddAlreadyListed:
		return "already_listed"
	case AddOptedOut:
		return "opted_out"
	case AddAdded:
		return "added"
	case AddUsernameConflict:
		return "username_conflict"
	default:
		return "unknown"
	}
}

// AddResult carries the outcome and the entry it refers to, when there is one.
type AddResult struct {
	Outcome AddOutcome
	Entry   *database.BotEntry
}

// Registry owns the add, lookup, hide and delete rules for directory entries.
type Registry struct {
	store    Store
	resolver Resolver
	now      Clock
	log      *slog.Logger
}

// NewRegistry creates a Registry.
func NewRegistry(store Store, resolver Resolver, clock Clock, log *slog.Logger) *Registry {
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		store:    store,
		resolver: resolver,
		now:      clock,
		log:      log.With("component", "registry"),
	}
}

// Add resolves username and registers it when it is a bot that is not yet
// listed. Errors are returned only for collaborator failures.
func (r *Registry) Add(ctx context.Context, username, requestedBy string) (AddResult, error) {
	profile, err := r.resolver.Lookup(ctx, username)
	if errors.Is(err, identity.ErrNotFound) {
		return AddResult{Outcome: AddNotFound}, nil
	}
	if err != nil {
		return AddResult{}, fmt.Errorf("resolve %s: %w", username, err)
	}
	if !profile.IsBot {
		return AddResult{Outcome: AddHuman}, nil
	}

	existing, err := r.FetchByExternalID(ctx, profile.ID)
	if err != nil {
		return AddResult{}, err
	}
	if existing != nil {
		return existingOutcome(existing), nil
	}

	now := r.now()
	entry := &database.BotEntry{
		ID:                profile.ID,
		Username:          profile.Username,
		CreatedAt:         now,
		CreatedBy:         requestedBy,
		ModifiedAt:        now,
		ModifiedBy:        requestedBy,
		IsOnline:          true,
		IsWorkingProperly: true,
		IsVisible:         true,
	}
	if entry.Username == "" {
		entry.Username = username
	}
	entry.SetReputation(profile.Reputation())

	err = r.store.InsertBot(ctx, entry)
	if errors.Is(err, database.ErrConflict) {
		// Either a concurrent add of the same id won, or another id holds
		// this username (an upstream rename we do not reconcile).
		again, getErr := r.FetchByExternalID(ctx, profile.ID)
		if getErr == nil && again != nil {
			return existingOutcome(again), nil
		}
		r.log.WarnContext(ctx, "Username already held by a different entry",
			"bot_id", profile.ID, "username", entry.Username)
		return AddResult{Outcome: AddUsernameConflict}, nil
	}
	if err != nil {
		return AddResult{}, fmt.Errorf("insert %s: %w", entry.Username, err)
	}

	r.log.InfoContext(ctx, "Registered bot", "bot_id", entry.ID, "username", entry.Username, "requested_by", requestedBy)
	return AddResult{Outcome: AddAdded, Entry: entry}, nil
}

func existingOutcome(entry *database.BotEntry) AddResult {
	if entry.IsVisible {
		return AddResult{Outcome: AddAlreadyListed, Entry: entry}
	}
	return AddResult{Outcome: AddOptedOut, Entry: entry}
}

// Delete removes the entry with username. Deleting an unknown username succeeds.
func (r *Registry) Delete(ctx context.Context, username, actor string) error {
	if err := r.store.DeleteBotByUsername(ctx, username); err != nil {
		return fmt.Errorf("delete %s: %w", username, err)
	}
	r.log.InfoContext(ctx, "Deleted bot", "username", username, "actor", actor)
	return nil
}

// SetVisibility shows or hides the entry with username and reports whether
// such an entry exists.
func (r *Registry) SetVisibility(ctx context.Context, username string, visible bool, actor string) (bool, error) {
	matched, err := r.store.SetBotVisibility(ctx, username, visible, actor, r.now())
	if err != nil {
		return false, fmt.Errorf("set visibility of %s: %w", username, err)
	}
	r.log.InfoContext(ctx, "Changed bot visibility", "username", username, "visible", visible, "actor", actor, "matched", matched)
	return matched, nil
}

// FetchByExternalID returns the entry with the identity-service id, or nil.
func (r *Registry) FetchByExternalID(ctx context.Context, id string) (*database.BotEntry, error) {
	entry, err := r.store.GetBotByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	return entry, nil
}

// List returns the entries, restricted to visible ones when visibleOnly is set.
func (r *Registry) List(ctx context.Context, visibleOnly bool) ([]*database.BotEntry, error) {
	entries, err := r.store.ListBots(ctx, visibleOnly)
	if err != nil {
		return nil, fmt.Errorf("list bots: %w", err)
	}
	return entries, nil
}
