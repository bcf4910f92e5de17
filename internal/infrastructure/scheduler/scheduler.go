// Package scheduler implements background job scheduling for the progression
// service. It wraps gocron and adds per-job timeouts, structured logging and
// execution metrics for periodic tasks such as leaderboard rebuilds and
// trade history retention.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/mentora-hub/mentora-progression/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job defines the interface that all scheduled jobs must implement.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job.
	// The context carries the per-job timeout and is cancelled on shutdown.
	Run(ctx context.Context) error

	// Description returns a human-readable description of the job.
	Description() string
}

// JobResult contains the result of a job execution.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Success     bool
	Error       error
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the Scheduler.
type Config struct {
	// Logger for structured logging.
	Logger *logger.Logger

	// Timezone for schedule calculations (default: UTC).
	Timezone *time.Location

	// MaxConcurrentJobs caps how many jobs may run at once.
	// Overlapping runs wait instead of piling up.
	MaxConcurrentJobs int

	// JobTimeout bounds a single job execution. Zero disables the bound.
	JobTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Logger:            logger.Default(),
		Timezone:          time.UTC,
		MaxConcurrentJobs: 2,
		JobTimeout:        5 * time.Minute,
	}
}

// Scheduler manages and executes scheduled jobs on top of gocron.
type Scheduler struct {
	mu sync.RWMutex

	inner      gocron.Scheduler
	logger     *logger.Logger
	jobTimeout time.Duration

	jobs      map[string]gocron.Job
	lastRuns  map[string]*JobResult
	metrics   *Metrics
	running   bool
	startedAt time.Time
}

// New creates a Scheduler with the given configuration.
func New(config Config) (*Scheduler, error) {
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.Timezone == nil {
		config.Timezone = time.UTC
	}
	if config.MaxConcurrentJobs <= 0 {
		config.MaxConcurrentJobs = 2
	}

	inner, err := gocron.NewScheduler(
		gocron.WithLocation(config.Timezone),
		gocron.WithLimitConcurrentJobs(uint(config.MaxConcurrentJobs), gocron.LimitModeWait),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	return &Scheduler{
		inner:      inner,
		logger:     config.Logger,
		jobTimeout: config.JobTimeout,
		jobs:       make(map[string]gocron.Job),
		lastRuns:   make(map[string]*JobResult),
		metrics:    NewMetrics(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// JOB REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// Register adds a job that runs at a fixed interval.
func (s *Scheduler) Register(job Job, interval time.Duration) error {
	if job == nil {
		return ErrNilJob
	}
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSchedule, job.Name())
	}
	return s.register(job, gocron.DurationJob(interval), interval.String())
}

// RegisterCron adds a job driven by a standard five-field crontab expression.
func (s *Scheduler) RegisterCron(job Job, crontab string) error {
	if job == nil {
		return ErrNilJob
	}
	if crontab == "" {
		return fmt.Errorf("%w: %s", ErrInvalidSchedule, job.Name())
	}
	return s.register(job, gocron.CronJob(crontab, false), crontab)
}

func (s *Scheduler) register(job Job, definition gocron.JobDefinition, scheduleDesc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	inner, err := s.inner.NewJob(
		definition,
		gocron.NewTask(func(ctx context.Context) {
			s.execute(ctx, job)
		}),
		gocron.WithName(name),
	)
	if err != nil {
		return fmt.Errorf("scheduler: register %s: %w", name, err)
	}

	s.jobs[name] = inner

	s.logger.Info("job registered",
		logger.String("job", name),
		logger.String("schedule", scheduleDesc),
		logger.String("description", job.Description()),
	)

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start begins executing registered jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	s.inner.Start()
	s.running = true
	s.startedAt = time.Now()

	s.logger.Info("scheduler started", logger.Int("jobs", len(s.jobs)))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotRunning
	}

	if err := s.inner.Shutdown(); err != nil {
		return fmt.Errorf("scheduler: shutdown: %w", err)
	}
	s.running = false

	s.logger.Info("scheduler stopped",
		logger.Duration("uptime", time.Since(s.startedAt)),
	)
	return nil
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// RunNow immediately executes a job by name, ignoring its schedule.
func (s *Scheduler) RunNow(jobName string) error {
	s.mu.RLock()
	inner, exists := s.jobs[jobName]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}
	return inner.RunNow()
}

// ══════════════════════════════════════════════════════════════════════════════
// EXECUTION
// ══════════════════════════════════════════════════════════════════════════════

// execute runs a single job with the configured timeout and records the result.
func (s *Scheduler) execute(ctx context.Context, job Job) {
	name := job.Name()
	startedAt := time.Now()

	runCtx := ctx
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	s.logger.Info("job started", logger.String("job", name))

	err := job.Run(runCtx)
	completedAt := time.Now()
	duration := completedAt.Sub(startedAt)

	result := JobResult{
		JobName:     name,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Duration:    duration,
		Success:     err == nil,
		Error:       err,
	}

	s.metrics.RecordExecution(name, duration, err == nil)

	s.mu.Lock()
	s.lastRuns[name] = &result
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed",
			logger.String("job", name),
			logger.Duration("duration", duration),
			logger.Err(err),
		)
	} else {
		s.logger.Info("job completed",
			logger.String("job", name),
			logger.Duration("duration", duration),
		)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS & INFO
// ══════════════════════════════════════════════════════════════════════════════

// JobInfo contains information about a registered job.
type JobInfo struct {
	Name       string
	NextRun    time.Time
	LastResult *JobResult
}

// ListJobs returns information about all registered jobs.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, inner := range s.jobs {
		info := JobInfo{Name: name, LastResult: s.lastRuns[name]}
		if next, err := inner.NextRun(); err == nil {
			info.NextRun = next
		}
		infos = append(infos, info)
	}
	return infos
}

// LastRun returns the most recent result for a job, if any.
func (s *Scheduler) LastRun(jobName string) (*JobResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.lastRuns[jobName]
	return result, ok
}

// GetMetrics returns the scheduler metrics tracker.
func (s *Scheduler) GetMetrics() *Metrics {
	return s.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// Metrics tracks scheduler performance metrics.
type Metrics struct {
	mu sync.RWMutex

	TotalExecutions int64
	TotalSuccesses  int64
	TotalFailures   int64
	TotalDuration   time.Duration

	ExecutionsByJob map[string]int64
	FailuresByJob   map[string]int64
	LastExecutions  map[string]time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{
		ExecutionsByJob: make(map[string]int64),
		FailuresByJob:   make(map[string]int64),
		LastExecutions:  make(map[string]time.Time),
	}
}

// RecordExecution records a job execution.
func (m *Metrics) RecordExecution(jobName string, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalExecutions++
	m.TotalDuration += duration
	m.ExecutionsByJob[jobName]++
	m.LastExecutions[jobName] = time.Now()

	if success {
		m.TotalSuccesses++
	} else {
		m.TotalFailures++
		m.FailuresByJob[jobName]++
	}
}

// Snapshot returns a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var avgDuration time.Duration
	if m.TotalExecutions > 0 {
		avgDuration = m.TotalDuration / time.Duration(m.TotalExecutions)
	}

	var successRate float64
	if m.TotalExecutions > 0 {
		successRate = float64(m.TotalSuccesses) / float64(m.TotalExecutions)
	}

	return MetricsSnapshot{
		TotalExecutions: m.TotalExecutions,
		TotalSuccesses:  m.TotalSuccesses,
		TotalFailures:   m.TotalFailures,
		SuccessRate:     successRate,
		AverageDuration: avgDuration,
	}
}

// MetricsSnapshot is a point-in-time snapshot of scheduler metrics.
type MetricsSnapshot struct {
	TotalExecutions int64
	TotalSuccesses  int64
	TotalFailures   int64
	SuccessRate     float64
	AverageDuration time.Duration
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNilJob is returned when trying to register a nil job.
	ErrNilJob = fmt.Errorf("job cannot be nil")

	// ErrInvalidSchedule is returned for a non-positive interval or empty crontab.
	ErrInvalidSchedule = fmt.Errorf("invalid schedule")

	// ErrJobAlreadyExists is returned when a job with the same name already exists.
	ErrJobAlreadyExists = fmt.Errorf("job already exists")

	// ErrJobNotFound is returned when a job is not found.
	ErrJobNotFound = fmt.Errorf("job not found")

	// ErrAlreadyRunning is returned when Start is called on a running scheduler.
	ErrAlreadyRunning = fmt.Errorf("scheduler is already running")

	// ErrNotRunning is returned when Stop is called on a stopped scheduler.
	ErrNotRunning = fmt.Errorf("scheduler is not running")
)
