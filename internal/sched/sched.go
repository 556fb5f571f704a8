// Package sched runs the cleanup on a fixed daily or weekly cadence.
package sched

import (
	"context"
	"log/slog"
	"time"
)

// runHour is the local hour scheduled runs fire at.
const runHour = 9

// Run blocks, invoking fn at 09:00 local time every day ("daily") or every
// Monday ("weekly"), until ctx is canceled. Errors from fn are logged, not
// fatal; the next run happens regardless.
func Run(ctx context.Context, schedule string, logger *slog.Logger, fn func(context.Context) error) error {
	for {
		next := nextRun(time.Now(), schedule)
		logger.Info("next scheduled cleanup", "at", next.Format(time.RFC1123))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		logger.Info("starting scheduled cleanup")
		if err := fn(ctx); err != nil {
			logger.Error("scheduled cleanup failed", "error", err)
		} else {
			logger.Info("scheduled cleanup complete")
		}
	}
}

func nextRun(now time.Time, schedule string) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), runHour, 0, 0, 0, now.Location())
	if schedule == "weekly" {
		for next.Weekday() != time.Monday || !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
