package directory

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/edgard/morebots/internal/config"
)

// Deps contains the collaborators of the Router.
type Deps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     Store
	Resolver  Resolver
	Converter Converter
	Messenger Messenger
	Clock     Clock
}

type commandHandler func(ctx context.Context, ev Event)

// Router classifies inbound events and dispatches them. It is safe for
// concurrent use.
type Router struct {
	deps      Deps
	log       *slog.Logger
	msgs      config.MessagesConfig
	registry  *Registry
	refresher *Refresher
	commands  map[CommandID]commandHandler
}

// NewRouter creates a Router along with its Registry and Refresher.
func NewRouter(deps Deps) *Router {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := &Router{
		deps: deps,
		log:  deps.Logger.With("component", "router"),
		msgs: deps.Config.Messages,
	}
	r.registry = NewRegistry(deps.Store, deps.Resolver, deps.Clock, deps.Logger)
	r.refresher = NewRefresher(NewRefreshGate(deps.Config.RefreshInterval()), deps.Store, deps.Resolver, deps.Clock, deps.Logger)

	r.commands = map[CommandID]commandHandler{
		CommandShowAll:   r.showAll,
		CommandAddBot:    r.addInstructions,
		CommandDonate:    r.donate,
		CommandFAQRating: r.static(r.msgs.FAQRating),
		CommandFAQHidden: r.static(r.msgs.FAQHidden),
		CommandFAQNew:    r.static(r.msgs.FAQNewness),
	}
	return r
}

// Registry returns the router's registration engine.
func (r *Router) Registry() *Registry {
	return r.registry
}

// Refresher returns the router's reputation refresher.
func (r *Router) Refresher() *Refresher {
	return r.refresher
}

// Handle routes one event. It never panics and replies at most once;
// collaborator failures are logged and may leave the event unanswered.
func (r *Router) Handle(ctx context.Context, ev Event) {
	log := r.log.With("event_kind", ev.Kind.String(), "chat_id", ev.ChatID, "username", ev.From.Username)

	defer func() {
		if rec := recover(); rec != nil {
			log.ErrorContext(ctx, "Recovered from panic while handling event", "panic", rec, "stack", string(debug.Stack()))
		}
	}()

	if ev.From.IsBot {
		log.DebugContext(ctx, "Dropping event from automated sender")
		return
	}

	if r.refresher.MaybeRefresh(ctx, RefreshActor) {
		log.InfoContext(ctx, "Reputation refresh triggered")
	}

	switch ev.Kind {
	case EventInit, EventPaymentRequest:
		r.welcome(ctx, ev)
	case EventMessage:
		r.onMessage(ctx, ev)
	case EventCommand:
		r.onCommand(ctx, ev)
	case EventPayment:
		r.onPayment(ctx, ev)
	default:
		log.WarnContext(ctx, "Ignoring event of unknown kind")
	}
}

func (r *Router) onMessage(ctx context.Context, ev Event) {
	if r.deps.Config.IsAdmin(ev.From.Username) {
		if cmd := parseAdminCommand(ev.Text); cmd.action != adminNone {
			r.runAdmin(ctx, ev, cmd)
			return
		}
	}

	text := strings.TrimSpace(ev.Text)
	if strings.HasPrefix(text, "@") {
		username := config.NormalizeUsername(text)
		if username == "" {
			r.addInstructions(ctx, ev)
			return
		}
		r.addBot(ctx, ev, username)
		return
	}

	r.welcome(ctx, ev)
}

func (r *Router) onCommand(ctx context.Context, ev Event) {
	id, ok := ParseCommand(ev.Command)
	if !ok {
		r.log.DebugContext(ctx, "Ignoring unknown command", "command", ev.Command, "chat_id", ev.ChatID)
		return
	}
	r.commands[id](ctx, ev)
}

func (r *Router) addBot(ctx context.Context, ev Event, username string) {
	at := "@" + username
	result, err := r.registry.Add(ctx, username, r.actor(ev))
	if err != nil {
		r.log.ErrorContext(ctx, "Failed to add bot", "username", username, "chat_id", ev.ChatID, "error", err)
		r.reply(ctx, ev.ChatID, fmt.Sprintf(r.msgs.LookupFailedFmt, at))
		return
	}

	r.log.InfoContext(ctx, "Add bot request handled", "username", username, "outcome", result.Outcome.String())

	if result.Entry != nil {
		at = "@" + result.Entry.Username
	}
	var text string
	switch result.Outcome {
	case AddNotFound:
		text = r.msgs.DoesNotExistFmt
	case AddHuman:
		text = r.msgs.IsHumanFmt
	case AddAlreadyListed:
		text = r.msgs.AlreadyListedFmt
	case AddOptedOut:
		text = r.msgs.OptedOutFmt
	case AddAdded:
		text = r.msgs.AddedFmt
	case AddUsernameConflict:
		text = r.msgs.UsernameConflictFmt
	default:
		r.log.ErrorContext(ctx, "Unhandled add outcome", "outcome", result.Outcome)
		return
	}
	r.reply(ctx, ev.ChatID, fmt.Sprintf(text, at))
}

func (r *Router) showAll(ctx context.Context, ev Event) {
	entries, err := r.registry.List(ctx, true)
	if err != nil {
		r.log.ErrorContext(ctx, "Failed to list bots", "chat_id", ev.ChatID, "error", err)
		return
	}
	text := RenderList(entries, r.deps.Clock(), r.deps.Config.NewItemWindow(), r.msgs.ListHeader, r.msgs.ListEmpty)
	r.reply(ctx, ev.ChatID, text)
}

func (r *Router) addInstructions(ctx context.Context, ev Event) {
	r.send(ctx, ev.ChatID, Reply{Text: r.msgs.AddInstructions, ShowKeyboard: true})
}

func (r *Router) static(text string) commandHandler {
	return func(ctx context.Context, ev Event) {
		r.reply(ctx, ev.ChatID, text)
	}
}

func (r *Router) welcome(ctx context.Context, ev Event) {
	r.reply(ctx, ev.ChatID, r.msgs.Welcome)
}

func (r *Router) actor(ev Event) string {
	if name := config.NormalizeUsername(ev.From.Username); name != "" {
		return name
	}
	return ev.From.ID
}

// reply sends text with the default controls.
func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	r.send(ctx, chatID, r.defaultReply(text))
}

func (r *Router) defaultReply(text string) Reply {
	return Reply{
		Text:     text,
		Controls: defaultControls(),
		Group:    faqGroup(r.msgs.FAQLabel),
	}
}

func (r *Router) send(ctx context.Context, chatID int64, reply Reply) {
	if err := r.deps.Messenger.Send(ctx, chatID, reply); err != nil {
		r.log.ErrorContext(ctx, "Failed to send reply", "chat_id", chatID, "error", err)
	}
}

type adminAction int

const (
	adminNone adminAction = iota
	adminForceRefresh
	adminLastRefresh
	adminDelete
	adminHide
	adminUnhide
)

type adminCommand struct {
	action   adminAction
	username string
}

// parseAdminCommand recognizes ForceRepUpdate, LastRepUpdate and
// Delete/Hide/Unhide @name.
func parseAdminCommand(text string) adminCommand {
	text = strings.TrimSpace(text)
	switch text {
	case "ForceRepUpdate":
		return adminCommand{action: adminForceRefresh}
	case "LastRepUpdate":
		return adminCommand{action: adminLastRefresh}
	}

	verb, rest, ok := strings.Cut(text, " ")
	if !ok {
		return adminCommand{}
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "@") {
		return adminCommand{}
	}
	username := config.NormalizeUsername(rest)
	if username == "" || strings.ContainsAny(username, " \t\n") {
		return adminCommand{}
	}

	switch verb {
	case "Delete":
		return adminCommand{action: adminDelete, username: username}
	case "Hide":
		return adminCommand{action: adminHide, username: username}
	case "Unhide":
		return adminCommand{action: adminUnhide, username: username}
	}
	return adminCommand{}
}

func (r *Router) runAdmin(ctx context.Context, ev Event, cmd adminCommand) {
	admin := r.actor(ev)
	log := r.log.With("admin", admin, "target", cmd.username)
	at := "@" + cmd.username

	switch cmd.action {
	case adminForceRefresh:
		if r.refresher.Force(ctx, admin) {
			log.InfoContext(ctx, "Forced reputation refresh")
			r.reply(ctx, ev.ChatID, r.msgs.RefreshStarted)
		} else {
			r.reply(ctx, ev.ChatID, r.msgs.RefreshBusy)
		}

	case adminLastRefresh:
		last, ok := r.refresher.Gate().LastRefreshed()
		if !ok {
			r.reply(ctx, ev.ChatID, r.msgs.NeverRefreshed)
			return
		}
		age := humanize.RelTime(last, r.deps.Clock(), "ago", "from now")
		r.reply(ctx, ev.ChatID, fmt.Sprintf(r.msgs.LastRefreshFmt, last.UTC().Format(time.RFC1123), age))

	case adminDelete:
		if err := r.registry.Delete(ctx, cmd.username, admin); err != nil {
			log.ErrorContext(ctx, "Failed to delete bot", "error", err)
			return
		}
		r.reply(ctx, ev.ChatID, fmt.Sprintf(r.msgs.DeletedFmt, at))

	case adminHide, adminUnhide:
		visible := cmd.action == adminUnhide
		matched, err := r.registry.SetVisibility(ctx, cmd.username, visible, admin)
		if err != nil {
			log.ErrorContext(ctx, "Failed to change bot visibility", "visible", visible, "error", err)
			return
		}
		switch {
		case !matched:
			r.reply(ctx, ev.ChatID, fmt.Sprintf(r.msgs.NotListedFmt, at))
		case visible:
			r.reply(ctx, ev.ChatID, fmt.Sprintf(r.msgs.UnhiddenFmt, at))
		default:
			r.reply(ctx, ev.ChatID, fmt.Sprintf(r.msgs.HiddenFmt, at))
		}
	}
}
