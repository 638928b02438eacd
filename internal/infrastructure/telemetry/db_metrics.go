// Package telemetry wires OpenTelemetry tracing, metrics and log export
// for the invoicing service.
package telemetry

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig controls query and connection pool metric collection.
type DBMetricsConfig struct {
	Enabled bool
	// Queries slower than this are counted in db_slow_query_total.
	SlowQueryThreshold time.Duration
	// How often connection pool gauges are sampled.
	PoolStatsInterval time.Duration
}

// DefaultDBMetricsConfig returns the collection defaults (200ms slow query
// threshold, 15s pool sampling).
func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{
		Enabled:            true,
		SlowQueryThreshold: 200 * time.Millisecond,
		PoolStatsInterval:  15 * time.Second,
	}
}

// DBMetrics owns the database metric instruments and the pool sampling loop.
type DBMetrics struct {
	poolGauge    *Gauge
	poolMaxGauge *Gauge

	queries     *Counter
	latency     *Histogram
	slowQueries *Counter

	config   DBMetricsConfig
	logger   *zap.Logger
	sqlDB    *sql.DB
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopOnce sync.Once
}

// NewDBMetrics builds the database instruments on the given meter.
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = 15 * time.Second
	}

	m := &DBMetrics{
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	var err error
	if m.poolGauge, err = NewGauge(meter, "db_pool_connections",
		"Number of connections in the pool by state", "{connection}"); err != nil {
		return nil, err
	}
	if m.poolMaxGauge, err = NewGauge(meter, "db_pool_connections_max",
		"Maximum number of connections in the pool", "{connection}"); err != nil {
		return nil, err
	}
	if m.queries, err = NewCounter(meter, "db_query_total",
		"Total number of database queries by operation type", "{query}"); err != nil {
		return nil, err
	}
	if m.latency, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Latency of database queries in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.slowQueries, err = NewCounter(meter, "db_slow_query_total",
		"Total number of slow database queries", "{query}"); err != nil {
		return nil, err
	}

	return m, nil
}

// SetSQLDB provides the sql.DB whose pool stats are sampled. Must be called
// before StartPoolStatsCollection.
func (m *DBMetrics) SetSQLDB(sqlDB *sql.DB) {
	m.mu.Lock()
	m.sqlDB = sqlDB
	m.mu.Unlock()
}

// StartPoolStatsCollection launches the sampling goroutine. Stop terminates it.
func (m *DBMetrics) StartPoolStatsCollection(ctx context.Context) {
	m.mu.RLock()
	sqlDB := m.sqlDB
	m.mu.RUnlock()

	if sqlDB == nil {
		m.logger.Warn("pool stats collection skipped, sql.DB not attached")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.config.PoolStatsInterval)
		defer ticker.Stop()

		m.samplePool(ctx)
		for {
			select {
			case <-ticker.C:
				m.samplePool(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	m.logger.Info("connection pool stats collection started",
		zap.Duration("interval", m.config.PoolStatsInterval))
}

func (m *DBMetrics) samplePool(ctx context.Context) {
	m.mu.RLock()
	sqlDB := m.sqlDB
	m.mu.RUnlock()
	if sqlDB == nil {
		return
	}

	stats := sqlDB.Stats()
	m.poolMaxGauge.Record(ctx, int64(stats.MaxOpenConnections))
	// WaitCount is cumulative, not a state, so it is left out.
	m.poolGauge.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolGauge.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolGauge.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// Stop terminates pool sampling. Safe to call more than once.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
	})
}

// RecordQuery counts a query and its latency, and flags it when it crossed
// the slow query threshold.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration, err error) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "UNKNOWN"
	}

	m.queries.Inc(ctx, AttrDBOperation.String(operation))
	m.latency.RecordDuration(ctx, duration, AttrDBOperation.String(operation))

	if duration > m.config.SlowQueryThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueries.Inc(ctx, AttrDBTable.String(table))
	}
}

type dbMetricsContextKey string

const dbQueryStartKey dbMetricsContextKey = "db_query_start"

// DBMetricsPlugin hooks DBMetrics into gorm's callback chain.
type DBMetricsPlugin struct {
	metrics *DBMetrics
	logger  *zap.Logger
}

// NewDBMetricsPlugin wraps DBMetrics as a gorm plugin.
func NewDBMetricsPlugin(metrics *DBMetrics, logger *zap.Logger) *DBMetricsPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBMetricsPlugin{metrics: metrics, logger: logger}
}

func (p *DBMetricsPlugin) Name() string { return "db_metrics" }

// Initialize registers before/after callbacks on every gorm operation kind.
// The before callback stamps a start time on the statement context; the
// after callback turns it into a latency sample.
func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	before := func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, dbQueryStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(db *gorm.DB) {
			op := operation
			if op == "" {
				op = sqlOperation(db.Statement.SQL.String())
			}
			p.record(db, op)
		}
	}

	operations := map[string]string{
		"create": "INSERT",
		"query":  "SELECT",
		"update": "UPDATE",
		"delete": "DELETE",
		"row":    "",
		"raw":    "",
	}
	if err := eachGormHook(db, "before", func(name string, r gormCallbackRegistrar) error {
		return r.Register("db_metrics:before_"+name, before)
	}); err != nil {
		return err
	}
	if err := eachGormHook(db, "after", func(name string, r gormCallbackRegistrar) error {
		return r.Register("db_metrics:after_"+name, after(operations[name]))
	}); err != nil {
		return err
	}

	p.logger.Info("database metrics plugin attached")
	return nil
}

func (p *DBMetricsPlugin) record(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}

	var elapsed time.Duration
	if start, ok := ctx.Value(dbQueryStartKey).(time.Time); ok {
		elapsed = time.Since(start)
	}

	p.metrics.RecordQuery(ctx, operation, db.Statement.Table, elapsed, db.Error)
}

// sqlOperation classifies raw SQL by its leading keyword.
func sqlOperation(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}

// RegisterDBMetrics builds DBMetrics from the meter provider and installs the
// gorm plugin. Returns nil when metrics are disabled; callers own the Stop.
func RegisterDBMetrics(db *gorm.DB, meterProvider *MeterProvider, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if !cfg.Enabled {
		logger.Debug("database metrics disabled")
		return nil, nil
	}
	if meterProvider == nil || !meterProvider.IsEnabled() {
		logger.Debug("meter provider unavailable, database metrics skipped")
		return nil, nil
	}

	metrics, err := NewDBMetrics(meterProvider.Meter("db.client"), cfg, logger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	metrics.SetSQLDB(sqlDB)

	if err := db.Use(NewDBMetricsPlugin(metrics, logger)); err != nil {
		return nil, err
	}

	logger.Info("database metrics registered",
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
		zap.Duration("pool_stats_interval", cfg.PoolStatsInterval))

	return metrics, nil
}
