package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/morebots/internal/database"
)

var routerNow = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

type routerFixture struct {
	router    *Router
	store     *fakeStore
	resolver  *fakeResolver
	messenger *fakeMessenger
}

func newRouterFixture(t *testing.T, primed bool) *routerFixture {
	t.Helper()
	f := &routerFixture{
		store:     newFakeStore(),
		resolver:  newFakeResolver(botProfile("0x1", "WeatherBot", ptr(4.6))),
		messenger: &fakeMessenger{},
	}
	f.router = NewRouter(Deps{
		Logger:    discardLogger(),
		Config:    testConfig(),
		Store:     f.store,
		Resolver:  f.resolver,
		Converter: fakeConverter{rate: 0.5},
		Messenger: f.messenger,
		Clock:     fixedClock(routerNow),
	})
	if primed {
		f.router.Refresher().Gate().MarkRefreshed(routerNow)
	}
	t.Cleanup(f.router.Refresher().Wait)
	return f
}

func (f *routerFixture) handle(ev Event) {
	f.router.Handle(context.Background(), ev)
	f.router.Refresher().Wait()
}

func userMessage(username, text string) Event {
	return Event{Kind: EventMessage, ChatID: 42, From: Identity{ID: "u1", Username: username}, Text: text}
}

func userCommand(command string) Event {
	return Event{Kind: EventCommand, ChatID: 42, From: Identity{ID: "u1", Username: "alice"}, Command: command}
}

func (f *routerFixture) texts() []string {
	var out []string
	for _, s := range f.messenger.replies() {
		out = append(out, s.Reply.Text)
	}
	return out
}

func TestRouterDropsAutomatedSenders(t *testing.T) {
	f := newRouterFixture(t, false)

	f.handle(Event{Kind: EventMessage, ChatID: 42, From: Identity{ID: "b", Username: "SomeBot", IsBot: true}, Text: "@WeatherBot"})

	assert.Empty(t, f.messenger.replies())
	assert.Equal(t, 0, f.resolver.calls(), "automated senders do not trigger a refresh")
	assert.Nil(t, f.store.get("0x1"))
}

func TestRouterFirstEventTriggersRefresh(t *testing.T) {
	f := newRouterFixture(t, false)
	f.store.entries["0x1"] = entry("0x1", "WeatherBot", routerNow.Add(-time.Hour))

	f.handle(Event{Kind: EventInit, ChatID: 42, From: Identity{ID: "u1", Username: "alice"}})

	assert.Equal(t, 1, f.resolver.calls())
	_, ok := f.router.Refresher().Gate().LastRefreshed()
	assert.True(t, ok)

	f.handle(userMessage("alice", "hello"))
	assert.Equal(t, 1, f.resolver.calls())
}

func TestRouterWelcome(t *testing.T) {
	for _, ev := range []Event{
		{Kind: EventInit, ChatID: 42, From: Identity{Username: "alice"}},
		{Kind: EventPaymentRequest, ChatID: 42, From: Identity{Username: "alice"}},
		userMessage("alice", "hello there"),
	} {
		t.Run(ev.Kind.String(), func(t *testing.T) {
			f := newRouterFixture(t, true)
			f.handle(ev)

			sent := f.messenger.replies()
			require.Len(t, sent, 1)
			assert.Equal(t, int64(42), sent[0].ChatID)
			assert.Equal(t, "welcome", sent[0].Reply.Text)
			assert.Equal(t, defaultControls(), sent[0].Reply.Controls)
			require.NotNil(t, sent[0].Reply.Group)
			assert.Equal(t, "FAQ", sent[0].Reply.Group.Label)
			assert.Len(t, sent[0].Reply.Group.Controls, 3)
		})
	}
}

func TestRouterAddFlow(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"added", "@weatherbot", "@WeatherBot added"},
		{"padded", "  @WeatherBot  ", "@WeatherBot added"},
		{"unknown", "@ghost", "@ghost does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t, true)
			f.handle(userMessage("alice", tt.text))
			assert.Equal(t, []string{tt.want}, f.texts())
		})
	}
}

func TestRouterAddTwiceReportsListed(t *testing.T) {
	f := newRouterFixture(t, true)

	f.handle(userMessage("alice", "@WeatherBot"))
	f.handle(userMessage("bob", "@WeatherBot"))

	assert.Equal(t, []string{"@WeatherBot added", "@WeatherBot already listed"}, f.texts())
	stored := f.store.get("0x1")
	require.NotNil(t, stored)
	assert.Equal(t, "alice", stored.CreatedBy)
}

func TestRouterAddLookupFailure(t *testing.T) {
	f := newRouterFixture(t, true)
	f.resolver.lookupErr = errBoom

	f.handle(userMessage("alice", "@WeatherBot"))

	assert.Equal(t, []string{"@WeatherBot lookup failed"}, f.texts())
}

func TestRouterBareAtShowsInstructions(t *testing.T) {
	f := newRouterFixture(t, true)

	f.handle(userMessage("alice", "@"))

	sent := f.messenger.replies()
	require.Len(t, sent, 1)
	assert.Equal(t, "type @name", sent[0].Reply.Text)
	assert.True(t, sent[0].Reply.ShowKeyboard)
	assert.Empty(t, sent[0].Reply.Controls)
}

func TestRouterCommandTableIsComplete(t *testing.T) {
	f := newRouterFixture(t, true)
	for _, c := range AllCommands() {
		assert.Contains(t, f.router.commands, c)
	}
	assert.Len(t, f.router.commands, len(AllCommands()))
}

func TestRouterCommands(t *testing.T) {
	tests := []struct {
		command string
		want    []string
	}{
		{string(CommandAddBot), []string{"type @name"}},
		{string(CommandFAQRating), []string{"rating faq"}},
		{string(CommandFAQHidden), []string{"hidden faq"}},
		{string(CommandFAQNew), []string{"new faq"}},
		{string(CommandShowAll), []string{"empty"}},
		{InertCommand, nil},
		{"self destruct", nil},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			f := newRouterFixture(t, true)
			f.handle(userCommand(tt.command))
			assert.Equal(t, tt.want, f.texts())
		})
	}
}

func TestRouterShowAllListsVisibleEntries(t *testing.T) {
	f := newRouterFixture(t, true)
	old := routerNow.Add(-30 * 24 * time.Hour)
	top := entry("0x1", "WeatherBot", old)
	top.ReputationScore = score(4.6)
	hidden := entry("0x2", "HiddenBot", old)
	hidden.IsVisible = false
	fresh := entry("0x3", "FreshBot", routerNow.Add(-time.Hour))
	for _, e := range []*database.BotEntry{top, hidden, fresh} {
		f.store.entries[e.ID] = e
	}

	f.handle(userCommand(string(CommandShowAll)))

	assert.Equal(t, []string{"header\n" + GlyphTop + " @WeatherBot\n" + GlyphUnknown + " @FreshBot " + NewMarker}, f.texts())
}

func TestRouterAdminCommands(t *testing.T) {
	seed := func(t *testing.T, f *routerFixture) {
		t.Helper()
		require.NoError(t, f.store.InsertBot(context.Background(), entry("0x1", "WeatherBot", routerNow.Add(-time.Hour))))
	}

	t.Run("delete", func(t *testing.T) {
		f := newRouterFixture(t, true)
		seed(t, f)
		f.handle(userMessage("Boss", "Delete @weatherbot"))
		assert.Equal(t, []string{"@weatherbot deleted"}, f.texts())
		assert.Nil(t, f.store.get("0x1"))
	})

	t.Run("hide and unhide", func(t *testing.T) {
		f := newRouterFixture(t, true)
		seed(t, f)
		f.handle(userMessage("@boss", "Hide @WeatherBot"))
		assert.False(t, f.store.get("0x1").IsVisible)
		assert.Equal(t, "boss", f.store.get("0x1").ModifiedBy)
		f.handle(userMessage("boss", "Unhide @WeatherBot"))
		assert.True(t, f.store.get("0x1").IsVisible)
		f.handle(userMessage("boss", "Hide @ghost"))
		assert.Equal(t, []string{"@WeatherBot hidden", "@WeatherBot unhidden", "@ghost not listed"}, f.texts())
	})

	t.Run("non-admin is treated as a regular user", func(t *testing.T) {
		f := newRouterFixture(t, true)
		seed(t, f)
		f.handle(userMessage("alice", "Delete @WeatherBot"))
		assert.NotNil(t, f.store.get("0x1"))
		assert.Equal(t, []string{"welcome"}, f.texts())
	})

	t.Run("keywords are case sensitive", func(t *testing.T) {
		f := newRouterFixture(t, true)
		f.handle(userMessage("boss", "forcerepupdate"))
		assert.Equal(t, []string{"welcome"}, f.texts())
	})

	t.Run("force refresh", func(t *testing.T) {
		f := newRouterFixture(t, true)
		seed(t, f)
		f.handle(userMessage("boss", "ForceRepUpdate"))
		assert.Equal(t, []string{"refresh started"}, f.texts())
		assert.Equal(t, 1, f.resolver.calls())
		assert.Equal(t, "boss", f.store.get("0x1").ModifiedBy)
	})

	t.Run("last refresh", func(t *testing.T) {
		f := newRouterFixture(t, true)
		f.handle(userMessage("boss", "LastRepUpdate"))
		assert.Equal(t, []string{"last " + routerNow.Format(time.RFC1123) + " (now)"}, f.texts())
	})
}

func TestRouterLastRefreshNeverRan(t *testing.T) {
	f := newRouterFixture(t, false)

	f.router.runAdmin(context.Background(), userMessage("boss", "LastRepUpdate"), adminCommand{action: adminLastRefresh})

	assert.Equal(t, []string{"never"}, f.texts())
}

func TestParseAdminCommand(t *testing.T) {
	tests := []struct {
		text string
		want adminCommand
	}{
		{"ForceRepUpdate", adminCommand{action: adminForceRefresh}},
		{" LastRepUpdate ", adminCommand{action: adminLastRefresh}},
		{"Delete @WeatherBot", adminCommand{action: adminDelete, username: "WeatherBot"}},
		{"Hide @a_bot", adminCommand{action: adminHide, username: "a_bot"}},
		{"Unhide   @a_bot", adminCommand{action: adminUnhide, username: "a_bot"}},
		{"Delete WeatherBot", adminCommand{}},
		{"Delete @", adminCommand{}},
		{"Delete @two words", adminCommand{}},
		{"delete @WeatherBot", adminCommand{}},
		{"Remove @WeatherBot", adminCommand{}},
		{"", adminCommand{}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, parseAdminCommand(tt.text))
		})
	}
}

func TestRouterRecoversFromPanics(t *testing.T) {
	f := newRouterFixture(t, true)
	f.router.commands[CommandFAQRating] = func(context.Context, Event) { panic("kaboom") }

	assert.NotPanics(t, func() { f.handle(userCommand(string(CommandFAQRating))) })
}
