// Package scheduler runs the monthly snapshot job on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"budgetapp/internal/logger"
	"budgetapp/internal/services"
)

// Scheduler wraps a cron runner with the snapshot entry.
type Scheduler struct {
	cron     *cron.Cron
	summary  services.SummaryServicer
	now      func() time.Time
	timeout  time.Duration
	schedule string
}

// New registers the snapshot job under schedule, a standard five-field cron
// expression evaluated in UTC. An empty schedule returns a nil Scheduler,
// whose Start and Stop are no-ops.
func New(schedule string, summary services.SummaryServicer, timeout time.Duration) (*Scheduler, error) {
	if schedule == "" {
		return nil, nil
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		summary:  summary,
		now:      time.Now,
		timeout:  timeout,
		schedule: schedule,
	}
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid snapshot schedule %q: %w", schedule, err)
	}
	return s, nil
}

// RunOnce records the previous month for every active user.
func (s *Scheduler) RunOnce() {
	log := logger.Named("scheduler").With("job", "monthly_snapshot")

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.now().UTC()
	count, err := s.summary.RecordPreviousMonthForAllUsers(ctx, start)
	if err != nil {
		log.Errorw("Monthly snapshot failed", "error", err)
		return
	}
	log.Infow("Monthly snapshot finished", "summaries", count, "duration", time.Since(start).String())
}

// Start runs the cron loop in the background.
func (s *Scheduler) Start() {
	if s == nil {
		return
	}
	logger.Get().Infof("Monthly snapshot scheduled at %q (UTC)", s.schedule)
	s.cron.Start()
}

// Stop halts the cron loop and waits for a running snapshot until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	if s == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
