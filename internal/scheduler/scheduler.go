package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned for an unparsable cron expression.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Job is one scheduled execution. The context carries the run timeout and
// is canceled when the scheduler stops.
type Job func(ctx context.Context) error

// parser accepts standard 5-field expressions and descriptors like @hourly.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler runs a Job on a cron schedule in a fixed timezone.
type Scheduler struct {
	schedule   cron.Schedule
	location   *time.Location
	job        Job
	timeout    time.Duration
	runOnStart bool
	logger     *slog.Logger

	// wrapped is the job with the recover and skip-if-running chain applied.
	wrapped cron.Job
	base    context.Context //nolint:containedctx // set by Run for the jobs it starts
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets a custom logger for the scheduler.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithTimeout bounds every run. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

// WithRunOnStart runs the job once as soon as Run is called.
func WithRunOnStart(enabled bool) Option {
	return func(s *Scheduler) {
		s.runOnStart = enabled
	}
}

// New creates a scheduler for the cron expression spec, evaluated in loc.
func New(spec string, loc *time.Location, job Job, opts ...Option) (*Scheduler, error) {
	schedule, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}

	s := &Scheduler{
		schedule: schedule,
		location: loc,
		job:      job,
		logger:   slog.Default(),
		base:     context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	l := cronLogger{logger: s.logger}
	s.wrapped = cron.NewChain(cron.Recover(l), cron.SkipIfStillRunning(l)).Then(cron.FuncJob(s.runOnce))
	return s, nil
}

// Parse validates a cron expression.
func Parse(spec string) (cron.Schedule, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSchedule, spec, err)
	}
	return schedule, nil
}

// Next returns the next activation after t, in the scheduler timezone.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

// Run starts the schedule and blocks until ctx is canceled. It then waits
// for a run in progress to finish; that run sees its context canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.base = ctx

	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithParser(parser),
		cron.WithLogger(cronLogger{logger: s.logger}),
	)
	c.Schedule(s.schedule, s.wrapped)
	c.Start()
	s.logger.Info("scheduler started", "next", s.Next(time.Now()))

	var wg sync.WaitGroup
	if s.runOnStart {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.wrapped.Run()
		}()
	}

	<-ctx.Done()
	s.logger.Info("stopping scheduler")
	<-c.Stop().Done()
	wg.Wait()
	return nil
}

// runOnce executes the job with the run timeout.
func (s *Scheduler) runOnce() {
	ctx := s.base
	if ctx.Err() != nil {
		return
	}
	var cancel context.CancelFunc
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := time.Now()
	s.logger.Info("scheduled run starting")
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled run failed", "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("scheduled run finished", "duration", time.Since(start), "next", s.Next(time.Now()))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

// Info implements cron.Logger. cron's routine messages are debug noise.
func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

// Error implements cron.Logger.
func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
