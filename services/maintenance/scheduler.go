package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SchedulerConfig holds settings for the in-process rollover scheduler.
type SchedulerConfig struct {
	// Interval is how often to run the rollover. Default: 1 hour.
	Interval time.Duration
	// RunTimeout bounds a single rollover run. Default: 60 seconds.
	RunTimeout time.Duration
}

// DefaultSchedulerConfig returns production defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:   1 * time.Hour,
		RunTimeout: 60 * time.Second,
	}
}

// Scheduler runs the rollover periodically in the background. It uses the
// ticker + done channel pattern for graceful shutdown; deployments that
// prefer an external cron hit the HTTP trigger instead and never start it.
type Scheduler struct {
	runner  *Runner
	config  SchedulerConfig
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(runner *Runner, config SchedulerConfig) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = DefaultSchedulerConfig().RunTimeout
	}
	return &Scheduler{
		runner: runner,
		config: config,
		done:   make(chan struct{}),
	}
}

// Start launches the background loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	slog.Info("Maintenance scheduler starting", "interval", s.config.Interval.String())
	go s.runLoop(ctx)
	return nil
}

// Stop signals the loop to exit. Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	slog.Info("Maintenance scheduler stopping")
	close(s.done)
	s.running = false
}

// RunNow triggers one rollover immediately, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) (Report, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()
	return s.runner.Run(runCtx, time.Now().UTC())
}

func (s *Scheduler) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.execute(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Maintenance scheduler stopped (context cancelled)")
			return
		case <-s.done:
			slog.Info("Maintenance scheduler stopped (stop requested)")
			return
		case <-ticker.C:
			s.execute(ctx)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context) {
	report, err := s.RunNow(ctx)
	if err != nil {
		slog.Error("Maintenance rollover run failed", "error", err)
		return
	}
	if report.Created > 0 || report.Skipped > 0 || len(report.Errors) > 0 {
		slog.Info("Maintenance rollover run completed", "summary", report.Message())
	} else {
		slog.Debug("Maintenance rollover run completed (nothing due)")
	}
}
