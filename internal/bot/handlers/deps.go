// Package handlers turns Telegram updates into directory events and declares
// the command handlers registered with the bot.
package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/morebots/internal/config"
	"github.com/edgard/morebots/internal/directory"
)

// EventRouter consumes directory events.
type EventRouter interface {
	Handle(ctx context.Context, ev directory.Event)
}

// HandlerDeps provides dependencies for Telegram handlers.
type HandlerDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Router EventRouter
}
