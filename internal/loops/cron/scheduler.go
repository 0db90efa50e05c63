package cronjob

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSpec runs the sweep nightly at 12:00 AM (six-field spec, seconds first).
const DefaultSpec = "0 0 0 * * *"

// Sweeper flags open loops idle for longer than after.
type Sweeper interface {
	SweepStale(ctx context.Context, now time.Time, after time.Duration) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string
	after   time.Duration
	timeout time.Duration
	now     func() time.Time
}

func NewScheduler(sweeper Sweeper, spec string, after time.Duration) *Scheduler {
	if spec == "" {
		spec = DefaultSpec
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		sweeper: sweeper,
		spec:    spec,
		after:   after,
		timeout: 5 * time.Minute,
		now:     time.Now,
	}
}

// Start registers the stale sweep and starts the cron loop in its own goroutine.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runLogged); err != nil {
		return fmt.Errorf("failed to create cron job %q: %w", s.spec, err)
	}

	s.cron.Start()
	slog.Info("cron scheduler started", "spec", s.spec, "stale_after", s.after)
	return nil
}

// Stop halts the scheduler; the returned context is done once a running sweep finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce performs a single sweep.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.sweeper.SweepStale(ctx, s.now().UTC(), s.after)
}

func (s *Scheduler) runLogged() {
	start := time.Now()
	n, err := s.RunOnce(context.Background())
	if err != nil {
		slog.Error("stale sweep failed", "error", err)
		return
	}
	slog.Info("stale sweep completed", "flagged", n, "took", time.Since(start))
}
