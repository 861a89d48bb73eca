package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/morebots/internal/config"
	"github.com/edgard/morebots/internal/directory"
)

type recordingRouter struct {
	events []directory.Event
}

func (r *recordingRouter) Handle(_ context.Context, ev directory.Event) {
	r.events = append(r.events, ev)
}

type fakeAnswerer struct {
	callbacks    []string
	preCheckouts []*bot.AnswerPreCheckoutQueryParams
	err          error
}

func (f *fakeAnswerer) AnswerCallbackQuery(_ context.Context, p *bot.AnswerCallbackQueryParams) (bool, error) {
	f.callbacks = append(f.callbacks, p.CallbackQueryID)
	return f.err == nil, f.err
}

func (f *fakeAnswerer) AnswerPreCheckoutQuery(_ context.Context, p *bot.AnswerPreCheckoutQueryParams) (bool, error) {
	f.preCheckouts = append(f.preCheckouts, p)
	return f.err == nil, f.err
}

func newDeps() (HandlerDeps, *recordingRouter) {
	router := &recordingRouter{}
	return HandlerDeps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: &config.Config{Telegram: config.TelegramConfig{BotUsername: "MoreBotsBot"}},
		Router: router,
	}, router
}

func textUpdate(text string) *models.Update {
	return &models.Update{ID: 1, Message: &models.Message{
		ID:   10,
		From: &models.User{ID: 7, Username: "alice"},
		Chat: models.Chat{ID: 7, Type: models.ChatTypePrivate},
		Text: text,
	}}
}

func TestMessageEvent(t *testing.T) {
	tests := []struct {
		name string
		msg  *models.Message
		want directory.Event
		ok   bool
	}{
		{
			name: "text",
			msg:  &models.Message{From: &models.User{ID: 7, Username: "alice"}, Chat: models.Chat{ID: 7}, Text: "@WeatherBot"},
			want: directory.Event{Kind: directory.EventMessage, ChatID: 7, From: directory.Identity{ID: "7", Username: "alice"}, Text: "@WeatherBot"},
			ok:   true,
		},
		{
			name: "automated sender",
			msg:  &models.Message{From: &models.User{ID: 8, Username: "OtherBot", IsBot: true}, Chat: models.Chat{ID: 8}, Text: "hi"},
			want: directory.Event{Kind: directory.EventMessage, ChatID: 8, From: directory.Identity{ID: "8", Username: "OtherBot", IsBot: true}, Text: "hi"},
			ok:   true,
		},
		{
			name: "successful payment",
			msg: &models.Message{
				From:              &models.User{ID: 7},
				Chat:              models.Chat{ID: 7},
				SuccessfulPayment: &models.SuccessfulPayment{Currency: "XTR", TotalAmount: 150},
			},
			want: directory.Event{
				Kind:   directory.EventPayment,
				ChatID: 7,
				From:   directory.Identity{ID: "7"},
				Payment: &directory.Payment{
					FromAddress: "7",
					ToAddress:   "MoreBotsBot",
					Status:      directory.PaymentConfirmed,
					Amount:      150,
					Currency:    "XTR",
				},
			},
			ok: true,
		},
		{
			name: "sticker",
			msg:  &models.Message{From: &models.User{ID: 7}, Chat: models.Chat{ID: 7}},
		},
		{
			name: "no sender",
			msg:  &models.Message{Chat: models.Chat{ID: 7}, Text: "hi"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MessageEvent(tt.msg, "MoreBotsBot")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPreCheckoutEvent(t *testing.T) {
	got, ok := PreCheckoutEvent(&models.PreCheckoutQuery{
		ID:          "pq",
		From:        &models.User{ID: 7, Username: "alice"},
		Currency:    "XTR",
		TotalAmount: 200,
	}, "MoreBotsBot")

	require.True(t, ok)
	assert.Equal(t, directory.EventPayment, got.Kind)
	assert.Equal(t, int64(7), got.ChatID)
	assert.Equal(t, &directory.Payment{
		FromAddress: "alice",
		ToAddress:   "MoreBotsBot",
		Status:      directory.PaymentUnconfirmed,
		Amount:      200,
		Currency:    "XTR",
	}, got.Payment)

	_, ok = PreCheckoutEvent(&models.PreCheckoutQuery{ID: "pq"}, "MoreBotsBot")
	assert.False(t, ok)
}

func TestCallbackEvent(t *testing.T) {
	q := &models.CallbackQuery{
		ID:      "cq",
		From:    models.User{ID: 7, Username: "alice"},
		Message: models.MaybeInaccessibleMessage{Message: &models.Message{Chat: models.Chat{ID: 99}}},
		Data:    string(directory.CommandShowAll),
	}
	got, ok := CallbackEvent(q)
	require.True(t, ok)
	assert.Equal(t, directory.Event{
		Kind:    directory.EventCommand,
		ChatID:  99,
		From:    directory.Identity{ID: "7", Username: "alice"},
		Command: "show all bots",
	}, got)

	q.Message = models.MaybeInaccessibleMessage{}
	got, _ = CallbackEvent(q)
	assert.Equal(t, int64(7), got.ChatID, "falls back to the private chat")
}

func TestCommandHandlers(t *testing.T) {
	tests := []struct {
		name    string
		handler func(HandlerDeps) bot.HandlerFunc
		want    directory.Event
	}{
		{
			name:    "start",
			handler: NewStartHandler,
			want:    directory.Event{Kind: directory.EventInit, ChatID: 7, From: directory.Identity{ID: "7", Username: "alice"}},
		},
		{
			name:    "help",
			handler: NewHelpHandler,
			want:    directory.Event{Kind: directory.EventInit, ChatID: 7, From: directory.Identity{ID: "7", Username: "alice"}},
		},
		{
			name: "list",
			handler: func(d HandlerDeps) bot.HandlerFunc {
				return NewShortcutHandler(d, "list", directory.CommandShowAll)
			},
			want: directory.Event{Kind: directory.EventCommand, ChatID: 7, From: directory.Identity{ID: "7", Username: "alice"}, Command: "show all bots"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, router := newDeps()
			tt.handler(deps)(context.Background(), nil, textUpdate("/"+tt.name))
			assert.Equal(t, []directory.Event{tt.want}, router.events)
		})
	}
}

func TestCommandHandlerIgnoresUpdatesWithoutMessage(t *testing.T) {
	deps, router := newDeps()
	NewStartHandler(deps)(context.Background(), nil, &models.Update{ID: 3})
	assert.Empty(t, router.events)
}

func TestCallbackHandlerAlwaysAnswers(t *testing.T) {
	deps, router := newDeps()
	a := &fakeAnswerer{err: errors.New("too late")}

	callbackHandler{deps}.handle(context.Background(), a, &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:   "cq1",
		From: models.User{ID: 7, Username: "alice"},
		Data: directory.InertCommand,
	}})

	assert.Equal(t, []string{"cq1"}, a.callbacks)
	require.Len(t, router.events, 1)
	assert.Equal(t, directory.InertCommand, router.events[0].Command)
}

func TestUpdateHandler(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		deps, router := newDeps()
		updateHandler{deps}.handle(context.Background(), &fakeAnswerer{}, textUpdate("hello"))
		require.Len(t, router.events, 1)
		assert.Equal(t, directory.EventMessage, router.events[0].Kind)
	})

	t.Run("pre-checkout is approved before routing", func(t *testing.T) {
		deps, router := newDeps()
		a := &fakeAnswerer{}
		updateHandler{deps}.handle(context.Background(), a, &models.Update{PreCheckoutQuery: &models.PreCheckoutQuery{
			ID:          "pq1",
			From:        &models.User{ID: 7, Username: "alice"},
			Currency:    "XTR",
			TotalAmount: 100,
		}})
		require.Len(t, a.preCheckouts, 1)
		assert.Equal(t, "pq1", a.preCheckouts[0].PreCheckoutQueryID)
		assert.True(t, a.preCheckouts[0].OK)
		require.Len(t, router.events, 1)
		assert.Equal(t, directory.PaymentUnconfirmed, router.events[0].Payment.Status)
	})

	t.Run("failed pre-checkout answer is not routed", func(t *testing.T) {
		deps, router := newDeps()
		updateHandler{deps}.handle(context.Background(), &fakeAnswerer{err: errors.New("expired")}, &models.Update{PreCheckoutQuery: &models.PreCheckoutQuery{
			ID:   "pq2",
			From: &models.User{ID: 7},
		}})
		assert.Empty(t, router.events)
	})

	t.Run("unsupported", func(t *testing.T) {
		deps, router := newDeps()
		updateHandler{deps}.handle(context.Background(), &fakeAnswerer{}, &models.Update{ID: 9})
		assert.Empty(t, router.events)
	})
}

func TestRegisterAllCommands(t *testing.T) {
	deps, _ := newDeps()
	handlers := RegisterAllCommands(deps)

	for _, name := range []string{"/start", "/help", "/list", "/donate", "callback"} {
		h, ok := handlers[name]
		require.True(t, ok, name)
		assert.NotNil(t, h.Handler, name)
	}
	assert.Equal(t, bot.HandlerTypeCallbackQueryData, handlers["callback"].HandlerType)
}
