// Package scheduler runs the periodic price and snapshot jobs.
//
// A robfig/cron entry ticks every Scheduler at a fixed cadence; the Scheduler
// decides through its Trigger whether the job is due and remembers the key of
// the last period it fired in, so a job fires at most once per period however
// often it is ticked.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/middleware"
	"github.com/robfig/cron/v3"
)

// Job is a unit of background work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Trigger reports whether a job is due at now, and the key of the period now falls in.
type Trigger func(now time.Time) (key string, due bool)

// DailyAt is due once per local day in loc, from hh:mm onwards.
func DailyAt(hhmm string, loc *time.Location) (Trigger, error) {
	at, err := time.Parse("15:04", hhmm)
	if err != nil {
		return nil, fmt.Errorf("invalid daily time %q: %w", hhmm, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	target := at.Hour()*60 + at.Minute()
	return func(now time.Time) (string, bool) {
		local := now.In(loc)
		minute := local.Hour()*60 + local.Minute()
		return local.Format("2006-01-02"), minute >= target
	}, nil
}

// Every is due once per interval-aligned window.
func Every(interval time.Duration) Trigger {
	return func(now time.Time) (string, bool) {
		return strconv.FormatInt(now.Truncate(interval).Unix(), 10), true
	}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the logger the scheduler reports job outcomes to.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// Scheduler owns the firing state of one job.
type Scheduler struct {
	job     Job
	trigger Trigger
	now     func() time.Time
	logger  *slog.Logger

	mu           sync.Mutex
	lastFiredKey string
	running      bool
}

// New creates a Scheduler for job.
func New(job Job, trigger Trigger, opts ...Option) *Scheduler {
	s := &Scheduler{
		job:     job,
		trigger: trigger,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("job", job.Name()))
	return s
}

// LastFiredKey returns the period key of the most recent run.
func (s *Scheduler) LastFiredKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFiredKey
}

// Tick runs the job synchronously when it is due. It reports whether the job ran.
func (s *Scheduler) Tick(ctx context.Context) bool {
	now := s.now()
	key, due := s.trigger(now)

	s.mu.Lock()
	if !due || key == s.lastFiredKey || s.running {
		s.mu.Unlock()
		return false
	}
	s.lastFiredKey = key
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	logger := s.logger.With(slog.String("period", key))
	ctx = middleware.WithLogger(ctx, logger)
	start := time.Now()
	logger.Info("Running job")
	if err := s.job.Run(ctx); err != nil {
		logger.Error("Job failed", slog.String("error", err.Error()), slog.Duration("elapsed", time.Since(start)))
		return true
	}
	logger.Info("Job completed", slog.Duration("elapsed", time.Since(start)))
	return true
}

// Runner ticks schedulers from a cron instance.
type Runner struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewRunner creates a Runner. Overlapping ticks of the same entry are skipped.
func NewRunner(logger *slog.Logger) *Runner {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With(slog.String("component", "scheduler")),
	}
}

// Add ticks s on the given cron spec, e.g. "@every 1m".
func (r *Runner) Add(spec string, s *Scheduler) error {
	if _, err := r.cron.AddFunc(spec, func() { s.Tick(r.ctx) }); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", s.job.Name(), err)
	}
	r.logger.Info("Job registered", slog.String("job", s.job.Name()), slog.String("tick", spec))
	return nil
}

// Start starts ticking in the background.
func (r *Runner) Start() {
	r.cron.Start()
	r.logger.Info("Scheduler started")
}

// Stop cancels running jobs and waits for them to return.
func (r *Runner) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
	r.logger.Info("Scheduler stopped")
}
