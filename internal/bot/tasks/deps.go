// Package tasks implements the scheduled jobs of the MoreBots directory bot.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/morebots/internal/config"
)

// MaintenanceStore is the part of the database store used by maintenance.
type MaintenanceStore interface {
	Ping(ctx context.Context) error
	RunSQLMaintenance(ctx context.Context) error
}

// RefreshTrigger starts a reputation refresh when one is due.
type RefreshTrigger interface {
	MaybeRefresh(ctx context.Context, actor string) bool
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger    *slog.Logger
	Store     MaintenanceStore
	Refresher RefreshTrigger
	Config    *config.Config
}
