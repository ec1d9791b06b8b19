package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/foodtruck/backend/internal/domain/shared/valueobject"
	"github.com/foodtruck/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FranchiseeProvider lists the franchisees a batch run covers
type FranchiseeProvider interface {
	BillableFranchisees(ctx context.Context) ([]uuid.UUID, error)
}

// MonthlyTrigger enqueues the previous period's royalty jobs once a month,
// on the first check at or after DayOfMonth Hour:Minute.
type MonthlyTrigger struct {
	config    config.SchedulerConfig
	location  *time.Location
	scheduler *Scheduler
	provider  FranchiseeProvider
	logger    *zap.Logger
	now       func() time.Time

	cancel        context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
	isRunning     bool
	lastRunPeriod string
}

// NewMonthlyTrigger creates a new monthly trigger. Days past 28 are rejected
// so that every month has a run.
func NewMonthlyTrigger(
	cfg config.SchedulerConfig,
	location *time.Location,
	scheduler *Scheduler,
	provider FranchiseeProvider,
	logger *zap.Logger,
) (*MonthlyTrigger, error) {
	if cfg.DayOfMonth < 1 || cfg.DayOfMonth > 28 {
		return nil, fmt.Errorf("%w: day_of_month must be between 1 and 28, got %d", ErrInvalidConfig, cfg.DayOfMonth)
	}
	if cfg.Hour < 0 || cfg.Hour > 23 || cfg.Minute < 0 || cfg.Minute > 59 {
		return nil, fmt.Errorf("%w: invalid time %02d:%02d", ErrInvalidConfig, cfg.Hour, cfg.Minute)
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	if location == nil {
		location = time.UTC
	}
	return &MonthlyTrigger{
		config:    cfg,
		location:  location,
		scheduler: scheduler,
		provider:  provider,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Start starts the check loop
func (c *MonthlyTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Monthly royalty trigger started",
		zap.Int("day_of_month", c.config.DayOfMonth),
		zap.Int("hour", c.config.Hour),
		zap.Int("minute", c.config.Minute),
		zap.String("location", c.location.String()),
		zap.Duration("check_interval", c.config.CheckInterval),
	)
	return nil
}

// Stop stops the check loop
func (c *MonthlyTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Monthly royalty trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *MonthlyTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// due returns the period to bill when now has reached this month's run time
func (c *MonthlyTrigger) due(now time.Time) (valueobject.Period, bool) {
	local := now.In(c.location)
	runAt := time.Date(local.Year(), local.Month(), c.config.DayOfMonth, c.config.Hour, c.config.Minute, 0, 0, c.location)
	if local.Before(runAt) {
		return valueobject.Period{}, false
	}
	return valueobject.PeriodOf(now, c.location).Previous(), true
}

// checkAndTrigger runs the batch once per billed period. A period is only
// marked done when every franchisee's job was accepted; otherwise the next
// check schedules the whole period again.
func (c *MonthlyTrigger) checkAndTrigger(ctx context.Context) {
	period, ok := c.due(c.now())
	if !ok {
		return
	}

	c.mu.Lock()
	done := c.lastRunPeriod == period.String()
	c.mu.Unlock()
	if done {
		return
	}

	c.logger.Info("Triggering monthly royalty generation", zap.String("period", period.String()))
	if _, err := c.TriggerPeriod(ctx, period); err != nil {
		c.logger.Error("Monthly royalty generation could not be scheduled",
			zap.String("period", period.String()),
			zap.Error(err),
		)
		return
	}

	c.mu.Lock()
	c.lastRunPeriod = period.String()
	c.mu.Unlock()
}

// TriggerPeriod enqueues a job for every billable franchisee, blocking while
// the queue is full. Reports already generated are returned as is by the
// executor, so re-running is harmless.
func (c *MonthlyTrigger) TriggerPeriod(ctx context.Context, period valueobject.Period) (int, error) {
	franchisees, err := c.provider.BillableFranchisees(ctx)
	if err != nil {
		return 0, fmt.Errorf("list billable franchisees: %w", err)
	}

	submitted, err := c.scheduler.SchedulePeriod(ctx, franchisees, period)
	c.logger.Info("Scheduled royalty jobs",
		zap.String("period", period.String()),
		zap.Int("franchisees", len(franchisees)),
		zap.Int("submitted", submitted),
	)
	return submitted, err
}
