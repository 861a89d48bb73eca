// Package bot wires the MoreBots components together and manages their
// lifecycle: the Telegram listener, the scheduler and background refreshes.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/morebots/internal/config"
	"github.com/edgard/morebots/internal/database"
)

// Waiter blocks until background work has finished.
type Waiter interface {
	Wait()
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger     *slog.Logger
	cfg        *config.Config
	store      database.Store
	tgBot      *tgbot.Bot
	scheduler  *Scheduler
	background Waiter
}

// NewBot creates the orchestrator. background is waited on after the listener
// and scheduler have stopped, so in-flight refresh passes can finish.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	store database.Store,
	tgBot *tgbot.Bot,
	scheduler *Scheduler,
	background Waiter,
) *Bot {
	return &Bot{
		logger:     logger.With("component", "bot_orchestrator"),
		cfg:        cfg,
		store:      store,
		tgBot:      tgBot,
		scheduler:  scheduler,
		background: background,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on context cancellation.
// It returns an error if any component fails during startup or execution.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...", "bot_username", b.cfg.Telegram.BotUsername)

	if err := b.store.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...")

		b.tgBot.Start(gCtx)
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		return runScheduler(gCtx, b.logger, b.scheduler)
	})

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if b.background != nil {
		b.logger.Info("Waiting for background work to finish...")
		b.background.Wait()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}

// runScheduler starts s and stops it once ctx is done.
func runScheduler(ctx context.Context, log *slog.Logger, s *Scheduler) error {
	log.Info("Starting scheduler...")
	if err := s.Start(); err != nil {
		log.Error("Failed to start scheduler", "error", err)
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	<-ctx.Done()
	log.Info("Shutdown signal received, stopping scheduler...")

	if err := s.Stop(); err != nil {
		log.Error("Error stopping scheduler", "error", err)
	}
	return nil
}
