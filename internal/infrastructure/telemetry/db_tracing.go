package telemetry

import (
	"context"
	"errors"
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
	LogFullSQL      bool // include query variables in spans; never in production
	SlowQueryThresh time.Duration
	DBName          string
}

// DBTracingPlugin registers otelgorm plus slow-query annotations.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh == 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBName == "" {
		cfg.DBName = "postgresql"
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// Register installs otelgorm and the slow query callbacks on db.
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
	if err := registerTimedCallbacks(db, "otel_slow_query", p.markSpan); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

// markSpan annotates the current span with row counts and slow query events.
func (p *DBTracingPlugin) markSpan(db *gorm.DB, _ string, elapsed time.Duration) {
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		RecordError(span, db.Error)
	}
	if elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(attribute.Bool("db.slow_query", true))
		AddEvent(span, "slow_query_warning",
			"duration_ms", elapsed.Milliseconds(),
			"threshold_ms", p.config.SlowQueryThresh.Milliseconds(),
		)
	}
}

type callbackContextKey string

// registerTimedCallbacks wraps every GORM operation with a before callback
// that stamps the start time and an after callback that receives the elapsed
// time and the operation name.
func registerTimedCallbacks(db *gorm.DB, prefix string, after func(db *gorm.DB, operation string, elapsed time.Duration)) error {
	startKey := callbackContextKey(prefix + ":start")
	before := func(db *gorm.DB) {
		if db.Statement.Context == nil {
			db.Statement.Context = context.Background()
		}
		db.Statement.Context = context.WithValue(db.Statement.Context, startKey, time.Now())
	}
	afterFor := func(operation string) func(*gorm.DB) {
		return func(db *gorm.DB) {
			if db.Statement.Context == nil {
				return
			}
			var elapsed time.Duration
			if started, ok := db.Statement.Context.Value(startKey).(time.Time); ok {
				elapsed = time.Since(started)
			}
			after(db, operation, elapsed)
		}
	}

	type registerFunc func(name string, fn func(*gorm.DB)) error
	cb := db.Callback()
	steps := []struct {
		before, after registerFunc
		name, operation string
	}{
		{cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, "create", "INSERT"},
		{cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, "query", "SELECT"},
		{cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, "update", "UPDATE"},
		{cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, "delete", "DELETE"},
		{cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register, "row", "ROW"},
		{cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, "raw", "RAW"},
	}
	for _, s := range steps {
		if err := s.before(prefix+":before_"+s.name, before); err != nil {
			return err
		}
		if err := s.after(prefix+":after_"+s.name, afterFor(s.operation)); err != nil {
			return err
		}
	}
	return nil
}
