package directory

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/morebots/internal/database"
)

// RefreshActor is the audit identity stamped by opportunistic refresh passes.
const RefreshActor = "reputation-refresh"

// RefreshGate decides when a reputation refresh pass is due. The last refresh
// time is unset at startup, so the first check after a restart always fires.
// At most one pass is in flight at a time.
type RefreshGate struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	hasRun   bool
	inFlight bool
}

// NewRefreshGate creates a gate that fires once per interval.
func NewRefreshGate(interval time.Duration) *RefreshGate {
	return &RefreshGate{interval: interval}
}

// DueForRefresh reports whether the interval has elapsed since the last pass.
func (g *RefreshGate) DueForRefresh(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dueLocked(now)
}

func (g *RefreshGate) dueLocked(now time.Time) bool {
	return !g.hasRun || now.Sub(g.last) > g.interval
}

// MarkRefreshed records now as the time of the last pass.
func (g *RefreshGate) MarkRefreshed(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = now
	g.hasRun = true
}

// TryBegin atomically checks the gate, stamps now and marks a pass in flight.
// force skips the interval check but never starts a second concurrent pass.
// Every successful TryBegin must be paired with Done.
func (g *RefreshGate) TryBegin(now time.Time, force bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inFlight {
		return false
	}
	if !force && !g.dueLocked(now) {
		return false
	}
	g.last = now
	g.hasRun = true
	g.inFlight = true
	return true
}

// Done clears the in-flight flag.
func (g *RefreshGate) Done() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight = false
}

// InFlight reports whether a pass is running.
func (g *RefreshGate) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// LastRefreshed returns the time of the last pass and whether there was one.
func (g *RefreshGate) LastRefreshed() (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last, g.hasRun
}

// PassStats summarizes one refresh pass.
type PassStats struct {
	Registered int
	Resolved   int
	Updated    int
	Failed     int
	Skipped    int
}

// Refresher copies reputation fields from the identity service onto every
// registered entry.
type Refresher struct {
	gate     *RefreshGate
	store    Store
	resolver Resolver
	now      Clock
	log      *slog.Logger
	wg       sync.WaitGroup
}

// NewRefresher creates a Refresher guarded by gate.
func NewRefresher(gate *RefreshGate, store Store, resolver Resolver, clock Clock, log *slog.Logger) *Refresher {
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &Refresher{
		gate:     gate,
		store:    store,
		resolver: resolver,
		now:      clock,
		log:      log.With("component", "refresher"),
	}
}

// Gate returns the gate guarding this refresher.
func (r *Refresher) Gate() *RefreshGate {
	return r.gate
}

// MaybeRefresh starts a background pass if the gate is due and reports
// whether it did.
func (r *Refresher) MaybeRefresh(ctx context.Context, actor string) bool {
	if !r.gate.TryBegin(r.now(), false) {
		return false
	}
	r.start(ctx, actor)
	return true
}

// Force starts a background pass regardless of the interval unless one is
// already running, and reports whether it did.
func (r *Refresher) Force(ctx context.Context, actor string) bool {
	if !r.gate.TryBegin(r.now(), true) {
		return false
	}
	r.start(ctx, actor)
	return true
}

// Wait blocks until background passes have finished.
func (r *Refresher) Wait() {
	r.wg.Wait()
}

func (r *Refresher) start(ctx context.Context, actor string) {
	// The pass outlives the event that triggered it.
	passCtx := context.WithoutCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.gate.Done()
		r.RunPass(passCtx, actor)
	}()
}

// RunPass performs one refresh pass synchronously. Entries absent from the
// identity service's answer are left untouched, and a failed write does not
// stop the remaining ones.
func (r *Refresher) RunPass(ctx context.Context, actor string) PassStats {
	log := r.log.With("pass_id", "refresh_"+uuid.New().String()[:8], "actor", actor)
	startTime := time.Now()
	var stats PassStats

	entries, err := r.store.ListBots(ctx, false)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list registered bots for refresh", "error", err)
		return stats
	}
	stats.Registered = len(entries)
	if len(entries) == 0 {
		log.InfoContext(ctx, "No registered bots to refresh")
		return stats
	}

	byID := make(map[string]*database.BotEntry, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}

	profiles, err := r.resolver.LookupMany(ctx, ids)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve registered bots", "count", len(ids), "error", err)
		return stats
	}
	stats.Resolved = len(profiles)

	now := r.now()
	for _, p := range profiles {
		entry, ok := byID[p.ID]
		if !ok {
			stats.Skipped++
			continue
		}
		delete(byID, p.ID)

		if p.Username != "" && !strings.EqualFold(p.Username, entry.Username) {
			log.WarnContext(ctx, "Bot was renamed upstream; keeping stored username",
				"bot_id", p.ID, "stored_username", entry.Username, "resolved_username", p.Username)
		}

		at := now
		if entry.ModifiedAt.After(at) {
			at = entry.ModifiedAt
		}

		matched, err := r.store.UpdateBotReputation(ctx, p.ID, p.Reputation(), actor, at)
		if err != nil {
			stats.Failed++
			log.ErrorContext(ctx, "Failed to update reputation", "bot_id", p.ID, "error", err)
			continue
		}
		if !matched {
			// Deleted between the listing and the update.
			stats.Skipped++
			continue
		}
		stats.Updated++
	}

	log.InfoContext(ctx, "Reputation refresh finished",
		"registered", stats.Registered,
		"resolved", stats.Resolved,
		"updated", stats.Updated,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"duration", time.Since(startTime))
	return stats
}
