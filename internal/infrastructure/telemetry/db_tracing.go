package telemetry

import (
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include query variables in spans
	SlowQueryThresh time.Duration // default: 200ms
	DBName          string
}

const tracingQueryStartKey = "telemetry:query_start"

// DBTracingPlugin registers otelgorm and flags slow statements on their spans.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// Register installs the plugin on db. It is a no-op when tracing is disabled.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	befores := []struct {
		name string
		reg  func(string, func(*gorm.DB)) error
	}{
		{"telemetry:before_create", cb.Create().Before("gorm:create").Register},
		{"telemetry:before_query", cb.Query().Before("gorm:query").Register},
		{"telemetry:before_update", cb.Update().Before("gorm:update").Register},
		{"telemetry:before_delete", cb.Delete().Before("gorm:delete").Register},
		{"telemetry:before_row", cb.Row().Before("gorm:row").Register},
		{"telemetry:before_raw", cb.Raw().Before("gorm:raw").Register},
	}
	for _, b := range befores {
		if err := b.reg(b.name, markStart); err != nil {
			return err
		}
	}

	afters := []struct {
		name string
		reg  func(string, func(*gorm.DB)) error
	}{
		{"telemetry:after_create", cb.Create().After("gorm:create").Register},
		{"telemetry:after_query", cb.Query().After("gorm:query").Register},
		{"telemetry:after_update", cb.Update().After("gorm:update").Register},
		{"telemetry:after_delete", cb.Delete().After("gorm:delete").Register},
		{"telemetry:after_row", cb.Row().After("gorm:row").Register},
		{"telemetry:after_raw", cb.Raw().After("gorm:raw").Register},
	}
	for _, a := range afters {
		if err := a.reg(a.name, p.flagSlow); err != nil {
			return err
		}
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func markStart(db *gorm.DB) {
	db.InstanceSet(tracingQueryStartKey, time.Now())
}

func (p *DBTracingPlugin) flagSlow(db *gorm.DB) {
	v, ok := db.InstanceGet(tracingQueryStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if elapsed <= p.config.SlowQueryThresh {
		return
	}

	span := trace.SpanFromContext(db.Statement.Context)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
	p.logger.Warn("slow query",
		zap.String("table", db.Statement.Table),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", db.Statement.RowsAffected),
	)
}
