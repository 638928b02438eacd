package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls otelgorm span creation and slow query flagging.
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL puts complete statements in spans. Keep off outside dev.
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
	// WithoutVariables strips bind parameters from recorded SQL.
	WithoutVariables bool
}

// DefaultDBTracingConfig returns tracing defaults (off, parameters stripped,
// 200ms slow query threshold).
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:          false,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}
}

// DBTracingPlugin layers slow query detection and error status on top of the
// spans otelgorm creates.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin builds the plugin; RegisterOtelGorm installs it.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// RegisterOtelGorm installs otelgorm plus the timing callbacks on the DB.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := p.registerBeforeCallbacks(db); err != nil {
		return err
	}
	// Runs after otelgorm so the span already exists on the context.
	if err := p.registerSlowQueryCallback(db); err != nil {
		return err
	}

	p.logger.Info("database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

type gormCallbackRegistrar interface {
	Register(string, func(*gorm.DB)) error
}

func eachGormHook(db *gorm.DB, position string, visit func(name string, r gormCallbackRegistrar) error) error {
	hooks := []struct {
		name   string
		before gormCallbackRegistrar
		after  gormCallbackRegistrar
	}{
		{"create", db.Callback().Create().Before("gorm:create"), db.Callback().Create().After("gorm:create")},
		{"query", db.Callback().Query().Before("gorm:query"), db.Callback().Query().After("gorm:query")},
		{"update", db.Callback().Update().Before("gorm:update"), db.Callback().Update().After("gorm:update")},
		{"delete", db.Callback().Delete().Before("gorm:delete"), db.Callback().Delete().After("gorm:delete")},
		{"row", db.Callback().Row().Before("gorm:row"), db.Callback().Row().After("gorm:row")},
		{"raw", db.Callback().Raw().Before("gorm:raw"), db.Callback().Raw().After("gorm:raw")},
	}
	for _, h := range hooks {
		r := h.before
		if position == "after" {
			r = h.after
		}
		if err := visit(h.name, r); err != nil {
			return err
		}
	}
	return nil
}

func (p *DBTracingPlugin) registerBeforeCallbacks(db *gorm.DB) error {
	stamp := func(db *gorm.DB) {
		if db.Statement.Context != nil {
			db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
		}
	}
	return eachGormHook(db, "before", func(name string, r gormCallbackRegistrar) error {
		return r.Register("otel_timing:before_"+name, stamp)
	})
}

func (p *DBTracingPlugin) registerSlowQueryCallback(db *gorm.DB) error {
	return eachGormHook(db, "after", func(name string, r gormCallbackRegistrar) error {
		return r.Register("otel_slow_query:"+name, p.slowQueryCallback)
	})
}

// slowQueryCallback annotates the active span with row counts, table name,
// errors, and a slow query event when the threshold was crossed.
func (p *DBTracingPlugin) slowQueryCallback(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	// A missing record is a normal outcome, not a span error.
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if start, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

// WithQueryStartTime stamps the query start time used by slow query
// detection for statements issued outside gorm callbacks.
func WithQueryStartTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryStartTimeKey, time.Now())
}
