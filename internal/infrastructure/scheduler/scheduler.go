package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/foodtruck/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job generates the royalty report of one franchisee for one period
type Job struct {
	ID           uuid.UUID
	FranchiseeID uuid.UUID
	Period       valueobject.Period
	Status       JobStatus
	Error        string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	RetryCount   int
	MaxRetries   int
	NextRetryAt  *time.Time
}

// NewJob creates a new job instance
func NewJob(franchiseeID uuid.UUID, period valueobject.Period, maxRetries int) *Job {
	return &Job{
		ID:           uuid.New(),
		FranchiseeID: franchiseeID,
		Period:       period,
		Status:       JobStatusPending,
		MaxRetries:   maxRetries,
	}
}

// Key identifies the report the job produces
func (j *Job) Key() string {
	return j.FranchiseeID.String() + ":" + j.Period.String()
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
	j.NextRetryAt = nil
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry and returns the wait before it.
// The wait doubles with every attempt.
func (j *Job) ScheduleRetry(baseDelay time.Duration) time.Duration {
	delay := baseDelay << j.RetryCount
	j.RetryCount++
	j.Status = JobStatusPending
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	return delay
}

// JobExecutor runs one job
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// JobStore keeps the history of batch jobs
type JobStore interface {
	Save(ctx context.Context, job *Job) error
}

// isRetryable reports whether a failed execution deserves another attempt.
// Domain rejections such as a missing agreement are final.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if shared.KindOf(err) == "" {
		return true
	}
	return shared.IsRetryable(err)
}

// Scheduler runs royalty jobs on a bounded worker pool
type Scheduler struct {
	config   config.SchedulerConfig
	executor JobExecutor
	store    JobStore
	logger   *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	retries   map[uuid.UUID]*time.Timer
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg config.SchedulerConfig, executor JobExecutor, logger *zap.Logger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	return &Scheduler{
		config:   cfg,
		executor: executor,
		logger:   logger,
		retries:  make(map[uuid.UUID]*time.Timer),
	}
}

// SetJobStore enables persisting job history
func (s *Scheduler) SetJobStore(store JobStore) {
	s.store = store
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true
	s.jobs = make(chan *Job, s.config.QueueSize)

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, s.jobs, i)
	}

	s.logger.Info("Royalty scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Int("queue_size", s.config.QueueSize),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels pending retries and waits for running jobs
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	for id, timer := range s.retries {
		timer.Stop()
		delete(s.retries, id)
	}
	close(s.jobs)
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Royalty scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Royalty scheduler stop timed out")
		return ctx.Err()
	}
}

// SubmitJob enqueues a job without blocking
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("key", job.Key()),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// enqueuePollInterval is how often Enqueue retries a full queue
const enqueuePollInterval = 10 * time.Millisecond

// Enqueue waits for room in the queue. It gives up when ctx ends or the
// scheduler stops.
func (s *Scheduler) Enqueue(ctx context.Context, job *Job) error {
	for {
		err := s.SubmitJob(job)
		if !errors.Is(err, ErrJobQueueFull) {
			return err
		}
		timer := time.NewTimer(enqueuePollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// SchedulePeriod enqueues one job per franchisee for period, waiting for
// workers to drain the queue when it fills up.
func (s *Scheduler) SchedulePeriod(ctx context.Context, franchiseeIDs []uuid.UUID, period valueobject.Period) (int, error) {
	submitted := 0
	for _, id := range franchiseeIDs {
		if err := s.Enqueue(ctx, NewJob(id, period, s.config.MaxRetries)); err != nil {
			return submitted, err
		}
		submitted++
	}
	return submitted, nil
}

// PendingRetries returns the number of jobs waiting for a retry
func (s *Scheduler) PendingRetries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.retries)
}

func (s *Scheduler) worker(ctx context.Context, jobs <-chan *Job, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	job.Start()
	s.save(ctx, job)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	err := s.executor.Execute(jobCtx, job)
	if err == nil {
		job.Complete()
		s.save(ctx, job)
		s.logger.Info("Job completed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("key", job.Key()),
		)
		return
	}

	job.Fail(err.Error())
	s.logger.Error("Job failed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("key", job.Key()),
		zap.Int("retry_count", job.RetryCount),
		zap.Error(err),
	)

	if isRetryable(err) && job.ShouldRetry() {
		delay := job.ScheduleRetry(s.config.RetryDelay)
		s.save(ctx, job)
		s.scheduleRetry(job, delay)
		return
	}
	s.save(ctx, job)
}

func (s *Scheduler) scheduleRetry(job *Job, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}

	s.logger.Info("Job scheduled for retry",
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Int("max_retries", job.MaxRetries),
		zap.Duration("delay", delay),
	)
	s.retries[job.ID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.retries, job.ID)
		s.mu.Unlock()

		if err := s.SubmitJob(job); err != nil {
			s.logger.Warn("Failed to re-queue job for retry",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	})
}

func (s *Scheduler) save(ctx context.Context, job *Job) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(context.WithoutCancel(ctx), job); err != nil {
		s.logger.Warn("Failed to persist job state",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
}
