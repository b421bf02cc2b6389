package sweep

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/subskit/pkg/logger"
)

// Schedule decides when a job runs next.
type Schedule interface {
	// Next returns the first run time strictly after the given time.
	Next(after time.Time) time.Time
}

type intervalSchedule time.Duration

func (s intervalSchedule) Next(after time.Time) time.Time {
	return after.Add(time.Duration(s))
}

// Every runs a job at a fixed interval. Intervals below one second are
// raised to one second.
func Every(d time.Duration) Schedule {
	if d < time.Second {
		d = time.Second
	}
	return intervalSchedule(d)
}

type dailySchedule struct {
	hour, minute int
}

func (s dailySchedule) Next(after time.Time) time.Time {
	after = after.UTC()
	next := time.Date(after.Year(), after.Month(), after.Day(), s.hour, s.minute, 0, 0, time.UTC)
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// DailyAt runs a job once a day at the given UTC wall-clock time.
// Out-of-range values wrap into a valid time of day.
func DailyAt(hour, minute int) Schedule {
	return dailySchedule{hour: ((hour % 24) + 24) % 24, minute: ((minute % 60) + 60) % 60}
}

// Job is one sweep pass. The returned result is logged. An error marks
// the run as failed without unregistering the job; the next attempt
// happens a full schedule period later.
type Job func(ctx context.Context) (Result, error)

type scheduledJob struct {
	name      string
	schedule  Schedule
	job       Job
	lastRunAt *time.Time
}

// Scheduler runs registered sweep jobs on their cadence. Jobs run
// sequentially within a tick so sweeps over the same store never
// overlap.
type Scheduler struct {
	mu       sync.Mutex
	jobs     map[string]*scheduledJob
	interval time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithCheckInterval sets how often the scheduler looks for due jobs.
func WithCheckInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSchedulerClock overrides the time source, mainly for tests.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSchedulerLogger replaces the default logger.
func WithSchedulerLogger(log *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// NewScheduler creates an empty scheduler checking for due jobs every
// 30 seconds unless configured otherwise.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		jobs:     make(map[string]*scheduledJob),
		interval: 30 * time.Second,
		now:      func() time.Time { return time.Now().UTC() },
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a named job. Names must be unique.
func (s *Scheduler) Add(name string, schedule Schedule, job Job) error {
	if name == "" || schedule == nil || job == nil {
		return ErrInvalidJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return ErrJobAlreadyRegistered
	}
	s.jobs[name] = &scheduledJob{name: name, schedule: schedule, job: job}

	s.log.Info("registered sweep job", logger.Sweep(name))
	return nil
}

// Remove unregisters a job. Removing an unknown name is a no-op.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, name)
}

// Jobs returns the registered job names, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Start runs the scheduler loop until the context is canceled. Every
// registered job runs once immediately, then on its schedule. Returns
// ErrNoJobs when nothing is registered, ctx.Err() on shutdown.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	count := len(s.jobs)
	s.mu.Unlock()
	if count == 0 {
		return ErrNoJobs
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runDue(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.InfoContext(ctx, "sweep scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// RunAll executes every registered job once, regardless of schedule.
// Used by the CLI for one-shot invocations.
func (s *Scheduler) RunAll(ctx context.Context) {
	for _, j := range s.snapshot() {
		s.runOne(ctx, j, s.now())
	}
}

func (s *Scheduler) runDue(ctx context.Context) {
	now := s.now()
	for _, j := range s.snapshot() {
		if !s.due(j, now) {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		s.runOne(ctx, j, now)
	}
}

func (s *Scheduler) runOne(ctx context.Context, j *scheduledJob, now time.Time) {
	res, err := j.job(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "sweep job failed", logger.Sweep(j.name), logger.Error(err))
	} else {
		s.log.InfoContext(ctx, "sweep job completed",
			logger.Sweep(j.name),
			slog.Int("scanned", res.Scanned),
			slog.Int("processed", res.Processed),
			slog.Int("skipped", res.Skipped),
			slog.Int("failed", res.Failed),
		)
	}
	s.markRun(j.name, now)
}

func (s *Scheduler) snapshot() []*scheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]*scheduledJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	slices.SortFunc(jobs, func(a, b *scheduledJob) int {
		return strings.Compare(a.name, b.name)
	})
	return jobs
}

func (s *Scheduler) due(j *scheduledJob, now time.Time) bool {
	s.mu.Lock()
	last := j.lastRunAt
	s.mu.Unlock()

	if last == nil {
		return true
	}
	return !j.schedule.Next(*last).After(now)
}

func (s *Scheduler) markRun(name string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[name]; ok {
		j.lastRunAt = &at
	}
}
