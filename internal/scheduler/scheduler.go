// Package scheduler fires the monthly expense-total rollover. A ticker
// checks the clock and runs the reset once when the calendar month changes;
// the reset itself is idempotent, so an extra run after a restart near the
// boundary does no harm.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Resetter is the slice of the category service the scheduler needs.
type Resetter interface {
	ResetMonthlyTotals(ctx context.Context) error
}

type Scheduler struct {
	resetter Resetter
	interval time.Duration
	now      func() time.Time

	lastSeen time.Time
}

func New(resetter Resetter, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		resetter: resetter,
		interval: interval,
		now:      time.Now,
	}
}

// Run blocks until the context is cancelled, checking for a month boundary
// on every tick.
func (s *Scheduler) Run(ctx context.Context) error {
	s.lastSeen = s.now().UTC()
	slog.InfoContext(ctx, "Monthly reset scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Monthly reset scheduler stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now().UTC()
	if !monthChanged(s.lastSeen, now) {
		s.lastSeen = now
		return
	}
	slog.InfoContext(ctx, "Month boundary crossed, resetting monthly totals",
		"previous", s.lastSeen.Format("2006-01"),
		"current", now.Format("2006-01"))
	if err := s.resetter.ResetMonthlyTotals(ctx); err != nil {
		// Keep lastSeen unchanged so the next tick retries the reset.
		slog.ErrorContext(ctx, "Monthly reset failed", "error", err)
		return
	}
	s.lastSeen = now
}

// monthChanged reports whether now falls in a later calendar month than prev.
func monthChanged(prev, now time.Time) bool {
	return now.Year() != prev.Year() || now.Month() != prev.Month()
}
