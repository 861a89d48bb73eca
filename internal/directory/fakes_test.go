package directory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/edgard/morebots/internal/config"
	"github.com/edgard/morebots/internal/database"
	"github.com/edgard/morebots/internal/identity"
)

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func ptr[T any](v T) *T { return &v }

type fakeStore struct {
	mu        sync.Mutex
	entries   map[string]*database.BotEntry
	listErr   error
	insertErr error
	updateErr map[string]error
	// beforeInsert runs without the lock held, ahead of the conflict check.
	beforeInsert func()
}

func newFakeStore(entries ...*database.BotEntry) *fakeStore {
	s := &fakeStore{entries: map[string]*database.BotEntry{}, updateErr: map[string]error{}}
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return s
}

func (s *fakeStore) get(id string) *database.BotEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil
	}
	c := *e
	return &c
}

func (s *fakeStore) GetBotByID(_ context.Context, id string) (*database.BotEntry, error) {
	return s.get(id), nil
}

func (s *fakeStore) ListBots(_ context.Context, visibleOnly bool) ([]*database.BotEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*database.BotEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if visibleOnly && !e.IsVisible {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) InsertBot(_ context.Context, entry *database.BotEntry) error {
	if s.beforeInsert != nil {
		s.beforeInsert()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, e := range s.entries {
		if e.ID == entry.ID || strings.EqualFold(e.Username, entry.Username) {
			return database.ErrConflict
		}
	}
	c := *entry
	s.entries[entry.ID] = &c
	return nil
}

func (s *fakeStore) UpdateBotReputation(_ context.Context, id string, rep database.Reputation, by string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateErr[id]; err != nil {
		return false, err
	}
	e, ok := s.entries[id]
	if !ok {
		return false, nil
	}
	e.SetReputation(rep)
	e.ModifiedBy = by
	e.ModifiedAt = at
	return true, nil
}

func (s *fakeStore) SetBotVisibility(_ context.Context, username string, visible bool, by string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if strings.EqualFold(e.Username, username) {
			e.IsVisible = visible
			e.ModifiedBy = by
			e.ModifiedAt = at
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) DeleteBotByUsername(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if strings.EqualFold(e.Username, username) {
			delete(s.entries, id)
		}
	}
	return nil
}

type fakeResolver struct {
	mu        sync.Mutex
	profiles  map[string]identity.Profile // keyed by lowercased username
	lookupErr error
	manyErr   error
	// block, when set, delays LookupMany until it is closed.
	block     chan struct{}
	manyCalls int
}

func newFakeResolver(profiles ...identity.Profile) *fakeResolver {
	r := &fakeResolver{profiles: map[string]identity.Profile{}}
	for _, p := range profiles {
		r.profiles[strings.ToLower(p.Username)] = p
	}
	return r
}

func (r *fakeResolver) Lookup(_ context.Context, username string) (*identity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	p, ok := r.profiles[strings.ToLower(username)]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return &p, nil
}

func (r *fakeResolver) LookupMany(_ context.Context, ids []string) ([]identity.Profile, error) {
	r.mu.Lock()
	block := r.block
	r.manyCalls++
	r.mu.Unlock()
	if block != nil {
		<-block
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.manyErr != nil {
		return nil, r.manyErr
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []identity.Profile
	for _, p := range r.profiles {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeResolver) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.manyCalls
}

type sentReply struct {
	ChatID int64
	Reply  Reply
}

type notice struct {
	Username string
	Reply    Reply
}

type sentPayment struct {
	ChatID  int64
	Request PaymentRequest
}

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []sentReply
	notices  []notice
	payments []sentPayment
	sendErr  error
}

func (m *fakeMessenger) Send(_ context.Context, chatID int64, reply Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentReply{ChatID: chatID, Reply: reply})
	return nil
}

func (m *fakeMessenger) Notify(_ context.Context, username string, reply Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, notice{Username: username, Reply: reply})
	return nil
}

func (m *fakeMessenger) RequestPayment(_ context.Context, chatID int64, req PaymentRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, sentPayment{ChatID: chatID, Request: req})
	return nil
}

func (m *fakeMessenger) replies() []sentReply {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentReply(nil), m.sent...)
}

type fakeConverter struct {
	rate float64
	err  error
}

func (c fakeConverter) ToNative(_ context.Context, _ string, amount float64) (float64, error) {
	if c.err != nil {
		return 0, c.err
	}
	return amount / c.rate, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Telegram: config.TelegramConfig{
			Token:         "token",
			AdminUsername: "boss",
			BotUsername:   "MoreBotsBot",
		},
		Directory: config.DirectoryConfig{RefreshIntervalHours: 24, NewItemWindowDays: 7},
		Payments: config.PaymentsConfig{
			Currency:          "XTR",
			Decimals:          2,
			ReferenceCurrency: "USD",
			ReferenceAmount:   1,
		},
		Messages: config.MessagesConfig{
			Welcome:               "welcome",
			ListHeader:            "header",
			ListEmpty:             "empty",
			AddInstructions:       "type @name",
			DoesNotExistFmt:       "%s does not exist",
			IsHumanFmt:            "%s is human",
			AlreadyListedFmt:      "%s already listed",
			OptedOutFmt:           "%s opted out",
			AddedFmt:              "%s added",
			UsernameConflictFmt:   "%s conflict",
			LookupFailedFmt:       "%s lookup failed",
			DeletedFmt:            "%s deleted",
			HiddenFmt:             "%s hidden",
			UnhiddenFmt:           "%s unhidden",
			NotListedFmt:          "%s not listed",
			RefreshStarted:        "refresh started",
			RefreshBusy:           "refresh busy",
			LastRefreshFmt:        "last %s (%s)",
			NeverRefreshed:        "never",
			PaymentPending:        "pending",
			PaymentThanks:         "thanks",
			PaymentError:          "payment error",
			AdminPaymentNoticeFmt: "%s paid %s %s",
			DonationTitle:         "Donate",
			DonationDescription:   "Support us",
			FAQLabel:              "FAQ",
			FAQRating:             "rating faq",
			FAQHidden:             "hidden faq",
			FAQNewness:            "new faq",
		},
	}
}

func botProfile(id, username string, score *float64) identity.Profile {
	return identity.Profile{ID: id, Username: username, IsBot: true, ReputationScore: score}
}

func entry(id, username string, at time.Time) *database.BotEntry {
	return &database.BotEntry{
		ID:                id,
		Username:          username,
		CreatedAt:         at,
		CreatedBy:         "alice",
		ModifiedAt:        at,
		ModifiedBy:        "alice",
		IsOnline:          true,
		IsWorkingProperly: true,
		IsVisible:         true,
	}
}
