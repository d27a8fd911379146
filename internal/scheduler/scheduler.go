// Package scheduler runs registered probes on fixed intervals.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazz-dev/depprobe/internal/config"
	"github.com/hazz-dev/depprobe/internal/health"
)

// Runner runs a single named probe. *health.Registry satisfies it.
type Runner interface {
	RunOne(ctx context.Context, name string) (health.Result, error)
}

// Job is a probe name and how often to run it.
type Job struct {
	Name     string
	Interval time.Duration
}

// JobsFromConfig returns one job per configured check.
func JobsFromConfig(checks []config.Check) []Job {
	jobs := make([]Job, len(checks))
	for i, c := range checks {
		jobs[i] = Job{Name: c.Name, Interval: c.Interval.Duration}
	}
	return jobs
}

// Scheduler runs each job in its own goroutine.
type Scheduler struct {
	jobs     []Job
	runner   Runner
	onResult func(health.Result, *health.Status)
	logger   *slog.Logger
	wg       sync.WaitGroup

	mu   sync.Mutex
	last map[string]health.Status
}

// New creates a new Scheduler. Pass nil logger to use the default logger.
func New(jobs []Job, runner Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:   jobs,
		runner: runner,
		logger: logger,
		last:   make(map[string]health.Status),
	}
}

// SetOnResult sets the callback invoked after each run.
// prev is the status of the previous run, nil on the first one.
func (s *Scheduler) SetOnResult(fn func(health.Result, *health.Status)) {
	s.onResult = fn
}

// Start spawns one goroutine per job. It is non-blocking.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		if job.Interval <= 0 {
			s.logger.Error("invalid interval", "check", job.Name, "interval", job.Interval)
			continue
		}
		s.wg.Add(1)
		go s.runJob(ctx, job)
	}
}

// Wait blocks until all job goroutines have exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	defer s.wg.Done()

	s.run(ctx, job.Name)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, job.Name)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, name string) {
	result, err := s.runner.RunOne(ctx, name)
	if err != nil {
		s.logger.Error("running check", "check", name, "error", err)
		return
	}

	s.logger.Info("check result",
		"check", name,
		"status", result.Status,
		"duration", result.Duration,
		"error", result.Error(),
	)

	prev := s.swap(name, result.Status)
	if prev != nil && *prev != result.Status {
		s.logger.Warn("status changed", "check", name, "from", *prev, "to", result.Status)
	}
	if s.onResult != nil {
		s.onResult(result, prev)
	}
}

// swap stores the latest status of name and returns the previous one.
func (s *Scheduler) swap(name string, status health.Status) *health.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.last[name]
	s.last[name] = status
	if !ok {
		return nil
	}
	return &prev
}
