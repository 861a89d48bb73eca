package tasks

import (
	"context"
)

// ScheduledRefreshActor is the audit identity of refreshes started by the scheduler.
const ScheduledRefreshActor = "scheduler"

// newReputationRefreshTask creates a task that checks the refresh gate on a
// timer, so reputations stay current on a quiet bot. It never bypasses the
// gate: a pass only starts when the refresh interval has elapsed.
func newReputationRefreshTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "reputation_refresh")

	return func(ctx context.Context) error {
		if deps.Refresher.MaybeRefresh(ctx, ScheduledRefreshActor) {
			log.InfoContext(ctx, "Reputation refresh started")
			return nil
		}
		log.DebugContext(ctx, "Reputation refresh not due")
		return nil
	}
}
