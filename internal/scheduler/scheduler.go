// Package scheduler fires the nightly settlement from inside the API process.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ArowuTest/crownbid-backend/internal/clock"
	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/utils"
	"golang.org/x/exp/slog"
)

// Runner is the job the scheduler fires
type Runner interface {
	RunNightly(ctx context.Context) (*models.SettlementResult, error)
}

// Scheduler runs the job once a day at a fixed wall-clock time. Runs are
// sequential, so a slow run delays the next slot instead of overlapping it.
type Scheduler struct {
	runner Runner
	hour   int
	minute int
	loc    *time.Location
	clock  clock.Clock
	after  func(time.Duration) <-chan time.Time
}

// New creates a Scheduler firing at "HH:MM" in loc
func New(runner Runner, at string, loc *time.Location, clk clock.Clock) (*Scheduler, error) {
	hour, minute, err := utils.ParseClock(at)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Scheduler{
		runner: runner,
		hour:   hour,
		minute: minute,
		loc:    loc,
		clock:  clk,
		after:  time.After,
	}, nil
}

// NextRun returns the next firing time after now
func (s *Scheduler) NextRun(now time.Time) time.Time {
	return utils.NextDailyRun(now, s.hour, s.minute, s.loc)
}

// Run blocks until ctx is cancelled, firing the job at every slot. A failed
// run is logged and the scheduler waits for the next slot.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		now := s.clock.Now()
		next := s.NextRun(now)
		slog.Info("Scheduler: next settlement run", "at", next)

		select {
		case <-ctx.Done():
			return nil
		case <-s.after(next.Sub(now)):
		}
		s.RunOnce(ctx)
	}
}

// RunOnce fires the job immediately
func (s *Scheduler) RunOnce(ctx context.Context) {
	result, err := s.runner.RunNightly(ctx)
	if err != nil {
		slog.Error("Scheduler: settlement run failed", "error", err)
		return
	}
	slog.Info("Scheduler: settlement run finished", "outcome", result.Outcome, "dateKey", result.DateKey, "winner", result.WinnerUID)
}
