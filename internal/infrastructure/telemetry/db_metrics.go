package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Attribute keys for database instruments.
var (
	AttrDBOperation = attribute.Key("db.operation")
	AttrDBTable     = attribute.Key("db.table")
	AttrDBState     = attribute.Key("state")
)

// DBDurationBuckets are bucket boundaries for query latency (seconds).
var DBDurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5}

const queryStartKey = "db_metrics:start"

// DBMetricsConfig holds configuration for database metrics.
type DBMetricsConfig struct {
	Enabled            bool
	SlowQueryThreshold time.Duration
}

// DefaultDBMetricsConfig returns the defaults used when nothing is configured.
func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{Enabled: true, SlowQueryThreshold: 200 * time.Millisecond}
}

// DBMetrics counts and times queries and reports connection pool usage.
type DBMetrics struct {
	queries  *Counter
	failures *Counter
	slow     *Counter
	duration *Histogram

	config DBMetricsConfig
	logger *zap.Logger

	mu           sync.Mutex
	registration metric.Registration
}

// NewDBMetrics creates the query instruments on meter.
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = DefaultDBMetricsConfig().SlowQueryThreshold
	}

	m := &DBMetrics{config: cfg, logger: logger}
	var err error
	if m.queries, err = NewCounter(meter, "db_query_total", "Queries executed", "{query}"); err != nil {
		return nil, err
	}
	if m.failures, err = NewCounter(meter, "db_query_failures_total", "Queries that returned an error", "{query}"); err != nil {
		return nil, err
	}
	if m.slow, err = NewCounter(meter, "db_query_slow_total", "Queries slower than the configured threshold", "{query}"); err != nil {
		return nil, err
	}
	m.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Query latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ObservePool reports pool statistics on every collection cycle.
func (m *DBMetrics) ObservePool(meter metric.Meter, stats func() sql.DBStats) error {
	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Open connections by state"), metric.WithUnit("{connection}"))
	if err != nil {
		return fmt.Errorf("failed to create pool gauge: %w", err)
	}
	maxOpen, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Configured connection limit"), metric.WithUnit("{connection}"))
	if err != nil {
		return fmt.Errorf("failed to create pool limit gauge: %w", err)
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections that had to be waited for"), metric.WithUnit("{wait}"))
	if err != nil {
		return fmt.Errorf("failed to create pool wait counter: %w", err)
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(conns, int64(s.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(conns, int64(s.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(maxOpen, int64(s.MaxOpenConnections))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, conns, maxOpen, waits)
	if err != nil {
		return fmt.Errorf("failed to register pool callback: %w", err)
	}

	m.mu.Lock()
	m.registration = reg
	m.mu.Unlock()
	return nil
}

// Stop detaches the pool callback. Safe to call more than once.
func (m *DBMetrics) Stop() {
	m.mu.Lock()
	reg := m.registration
	m.registration = nil
	m.mu.Unlock()

	if reg == nil {
		return
	}
	if err := reg.Unregister(); err != nil {
		m.logger.Warn("failed to unregister pool metrics", zap.Error(err))
	}
}

// RecordQuery records one executed statement.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, d time.Duration, err error) {
	if operation == "" {
		operation = "OTHER"
	}
	if table == "" {
		table = "unknown"
	}
	op, tbl := AttrDBOperation.String(operation), AttrDBTable.String(table)

	m.queries.Inc(ctx, op, tbl)
	m.duration.RecordDuration(ctx, d, op, tbl)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		m.failures.Inc(ctx, op, tbl, AttrReason.String(queryFailureReason(err)))
	}
	if d >= m.config.SlowQueryThreshold {
		m.slow.Inc(ctx, op, tbl)
	}
}

func queryFailureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "23505"):
		return "conflict"
	default:
		return "error"
	}
}

// statementOperation names the SQL verb of a raw statement.
func statementOperation(sqlText string) string {
	fields := strings.Fields(sqlText)
	if len(fields) == 0 {
		return "OTHER"
	}
	switch verb := strings.ToUpper(fields[0]); verb {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return verb
	case "WITH":
		return "SELECT"
	default:
		return "OTHER"
	}
}

// Name implements gorm.Plugin.
func (m *DBMetrics) Name() string { return "foodtruck:db_metrics" }

// Initialize implements gorm.Plugin.
func (m *DBMetrics) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("db_metrics:before_create", markQueryStart),
		cb.Create().After("gorm:create").Register("db_metrics:after_create", m.afterQuery("INSERT")),
		cb.Query().Before("gorm:query").Register("db_metrics:before_query", markQueryStart),
		cb.Query().After("gorm:query").Register("db_metrics:after_query", m.afterQuery("SELECT")),
		cb.Update().Before("gorm:update").Register("db_metrics:before_update", markQueryStart),
		cb.Update().After("gorm:update").Register("db_metrics:after_update", m.afterQuery("UPDATE")),
		cb.Delete().Before("gorm:delete").Register("db_metrics:before_delete", markQueryStart),
		cb.Delete().After("gorm:delete").Register("db_metrics:after_delete", m.afterQuery("DELETE")),
		cb.Row().Before("gorm:row").Register("db_metrics:before_row", markQueryStart),
		cb.Row().After("gorm:row").Register("db_metrics:after_row", m.afterQuery("")),
		cb.Raw().Before("gorm:raw").Register("db_metrics:before_raw", markQueryStart),
		cb.Raw().After("gorm:raw").Register("db_metrics:after_raw", m.afterQuery("")),
	)
}

func markQueryStart(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func (m *DBMetrics) afterQuery(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		op := operation
		if op == "" {
			op = statementOperation(db.Statement.SQL.String())
		}
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		m.RecordQuery(ctx, op, db.Statement.Table, time.Since(start), db.Error)
	}
}

// RegisterDBMetrics installs the query plugin and the pool callback on db.
// Returns nil when metrics are disabled.
func RegisterDBMetrics(db *gorm.DB, meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	m, err := NewDBMetrics(meter, cfg, logger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := m.ObservePool(meter, sqlDB.Stats); err != nil {
		return nil, err
	}
	if err := db.Use(m); err != nil {
		m.Stop()
		return nil, fmt.Errorf("failed to register db metrics plugin: %w", err)
	}

	m.logger.Info("Database metrics registered",
		zap.Duration("slow_query_threshold", m.config.SlowQueryThreshold))
	return m, nil
}
