// Package scheduler runs the academy's periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultTickInterval is how often the scheduler checks for due jobs.
const DefaultTickInterval = time.Minute

// Job outcome statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// JobFunc is the work a job performs.
type JobFunc func(ctx context.Context) error

// JobStatus is a snapshot of one registered job.
type JobStatus struct {
	Name          string     `json:"name"`
	Schedule      string     `json:"schedule"`
	NextRunAt     time.Time  `json:"next_run_at"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	LastRunStatus string     `json:"last_run_status,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

type job struct {
	status   JobStatus
	schedule cron.Schedule
	run      JobFunc
}

// Scheduler checks registered jobs on a ticker and runs those that are due.
type Scheduler struct {
	parser   cron.Parser
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex

	jobsMu   sync.Mutex
	jobs     map[string]*job
	inflight map[string]struct{} // job names currently executing (dedup)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTickInterval overrides DefaultTickInterval.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler creates a Scheduler. Schedules use five cron fields or a
// descriptor such as @daily or @every 1h.
func NewScheduler(logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		logger:   logger,
		interval: DefaultTickInterval,
		now:      func() time.Time { return time.Now().UTC() },
		jobs:     make(map[string]*job),
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a job. An empty schedule disables the job without error.
func (s *Scheduler) Add(name, schedule string, run JobFunc) error {
	if schedule == "" {
		s.logger.Info("scheduled job disabled", slog.String("job", name))
		return nil
	}
	sched, err := s.parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("parse schedule %q for job %q: %w", schedule, name, err)
	}

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	s.jobs[name] = &job{
		status:   JobStatus{Name: name, Schedule: schedule, NextRunAt: sched.Next(s.now())},
		schedule: sched,
		run:      run,
	}
	return nil
}

// Jobs returns the registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobStatus {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.status)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// Start launches the background scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}

	schedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(schedCtx)
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.Jobs())))
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs every job whose next run time has passed.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	for _, name := range s.due(now) {
		if err := s.RunNow(ctx, name); err != nil {
			s.logger.Error("scheduled job failed",
				slog.String("job", name),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *Scheduler) due(now time.Time) []string {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	var names []string
	for name, j := range s.jobs {
		if !j.status.NextRunAt.After(now) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// RunNow runs a job immediately and reschedules it from now. A job that is
// already running is skipped.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.jobsMu.Lock()
	j, ok := s.jobs[name]
	if !ok {
		s.jobsMu.Unlock()
		return fmt.Errorf("job %q not registered", name)
	}
	if _, running := s.inflight[name]; running {
		s.jobsMu.Unlock()
		return nil
	}
	s.inflight[name] = struct{}{}
	run := j.run
	s.jobsMu.Unlock()

	s.logger.Info("running scheduled job", slog.String("job", name))
	started := s.now()
	err := run(ctx)

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	delete(s.inflight, name)
	j.status.LastRunAt = &started
	j.status.NextRunAt = j.schedule.Next(s.now())
	j.status.LastRunStatus = StatusSuccess
	j.status.LastError = ""
	if err != nil {
		j.status.LastRunStatus = StatusError
		j.status.LastError = err.Error()
	}
	return err
}

// CalculateNextRun computes the next run time for a schedule.
func (s *Scheduler) CalculateNextRun(schedule string, from time.Time) (time.Time, error) {
	sched, err := s.parser.Parse(schedule)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	return sched.Next(from), nil
}

// Stop gracefully shuts down the scheduler, waiting for the loop to exit.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("scheduler stopped")
	return nil
}
