// Package scheduler runs the recurring daily report broadcast.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ledgerbot/internal/core"
)

const defaultConcurrency = 8

// UserLister yields the users who opted into the daily report.
type UserLister interface {
	ListDailyReportUsers(ctx context.Context) ([]core.User, error)
}

// Reporter computes one user's summary for a day.
type Reporter interface {
	Daily(ctx context.Context, userID int64, day core.Date) (core.PeriodSummary, error)
}

// Pusher delivers a rendered daily report to a Telegram account.
type Pusher interface {
	PushDailyReport(ctx context.Context, telegramID int64, summary core.PeriodSummary) error
}

type DailyRunner struct {
	users       UserLister
	reports     Reporter
	pusher      Pusher
	hour        int
	minute      int
	concurrency int
}

func NewDailyRunner(users UserLister, reports Reporter, pusher Pusher, hour, minute int) *DailyRunner {
	return &DailyRunner{
		users:       users,
		reports:     reports,
		pusher:      pusher,
		hour:        hour,
		minute:      minute,
		concurrency: defaultConcurrency,
	}
}

// RunStats summarizes one broadcast run.
type RunStats struct {
	RunID     string
	Users     int
	Delivered int
	Failed    int
}

// RunForAllEnabledUsers generates and pushes the report for every
// opted-in user. One user's failure is logged and counted but never
// aborts the run or touches other users. Only listing the users can
// fail the run as a whole.
func (r *DailyRunner) RunForAllEnabledUsers(ctx context.Context, day core.Date) (RunStats, error) {
	stats := RunStats{RunID: uuid.NewString()}

	users, err := r.users.ListDailyReportUsers(ctx)
	if err != nil {
		return stats, err
	}
	stats.Users = len(users)

	slog.InfoContext(ctx, "Starting daily report run",
		"run_id", stats.RunID, "day", day.String(), "users", len(users))

	failures := make([]bool, len(users))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, u := range users {
		i, u := i, u
		g.Go(func() error {
			if err := r.runForUser(ctx, u, day); err != nil {
				slog.ErrorContext(ctx, "Daily report failed for user",
					"run_id", stats.RunID, "user_id", u.ID, "telegram_id", u.TelegramID, "error", err)
				failures[i] = true
			}
			return nil
		})
	}
	g.Wait()

	for _, failed := range failures {
		if failed {
			stats.Failed++
		} else {
			stats.Delivered++
		}
	}

	slog.InfoContext(ctx, "Finished daily report run",
		"run_id", stats.RunID, "delivered", stats.Delivered, "failed", stats.Failed)
	return stats, nil
}

func (r *DailyRunner) runForUser(ctx context.Context, u core.User, day core.Date) error {
	summary, err := r.reports.Daily(ctx, u.ID, day)
	if err != nil {
		return err
	}
	return r.pusher.PushDailyReport(ctx, u.TelegramID, summary)
}

// Run blocks until the context is cancelled, firing a broadcast at the
// configured wall clock time every day. The report covers the day it
// fires on.
func (r *DailyRunner) Run(ctx context.Context) error {
	for {
		next := nextRunAfter(time.Now().UTC(), r.hour, r.minute)
		slog.InfoContext(ctx, "Daily report scheduled", "next_run", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case fired := <-timer.C:
			if _, err := r.RunForAllEnabledUsers(ctx, core.DateOf(fired)); err != nil {
				slog.ErrorContext(ctx, "Daily report run failed", "error", err)
			}
		}
	}
}

// nextRunAfter returns the first hh:mm after now, today or tomorrow.
func nextRunAfter(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
