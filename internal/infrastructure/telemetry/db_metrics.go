package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetrics records recipe store query counts and latency, and observes the
// connection pool on every collection.
type DBMetrics struct {
	queries       *Counter
	queryDuration *Histogram
	slowQueries   *Counter
	slowThreshold time.Duration
	registration  metric.Registration
	logger        *zap.Logger
}

// NewDBMetrics creates the query instruments and registers pool gauges
// that read sqlDB.Stats() at collection time.
func NewDBMetrics(meter metric.Meter, sqlDB *sql.DB, slowThreshold time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if slowThreshold <= 0 {
		slowThreshold = defaultSlowQuery
	}

	queries, err := NewCounter(meter, "db_query_total", "Total number of database queries by operation", "{query}")
	if err != nil {
		return nil, err
	}
	slow, err := NewCounter(meter, "db_slow_query_total", "Queries slower than the configured threshold", "{query}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	m := &DBMetrics{
		queries:       queries,
		queryDuration: duration,
		slowQueries:   slow,
		slowThreshold: slowThreshold,
		logger:        logger,
	}

	if sqlDB != nil {
		if err := m.observePool(meter, sqlDB); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *DBMetrics) observePool(meter metric.Meter, sqlDB *sql.DB) error {
	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxConns, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections waited for"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return err
	}

	m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(maxConns, int64(stats.MaxOpenConnections))
		o.ObserveInt64(conns, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(conns, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, conns, maxConns, waits)
	return err
}

// RecordQuery records one completed statement.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, d time.Duration, err error) {
	if table == "" {
		table = "unknown"
	}
	outcome := "ok"
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		outcome = "error"
	}
	m.queries.Inc(ctx,
		AttrDBOperation.String(operation),
		AttrDBTable.String(table),
		AttrOutcome.String(outcome),
	)
	m.queryDuration.RecordDuration(ctx, d, AttrDBOperation.String(operation))
	if d > m.slowThreshold {
		m.slowQueries.Inc(ctx, AttrDBTable.String(table))
	}
}

// Stop unregisters the pool callback. Safe to call more than once.
func (m *DBMetrics) Stop() error {
	if m == nil || m.registration == nil {
		return nil
	}
	err := m.registration.Unregister()
	m.registration = nil
	return err
}

// Name implements gorm.Plugin.
func (m *DBMetrics) Name() string {
	return "recipes:db_metrics"
}

// Initialize implements gorm.Plugin by timing every statement kind the
// recipe store issues.
func (m *DBMetrics) Initialize(db *gorm.DB) error {
	finish := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			began, ok := startedAt(tx, m.Name())
			if !ok {
				return
			}
			op := operation
			if op == "" {
				op = detectOperationType(tx.Statement.SQL.String())
			}
			m.RecordQuery(tx.Statement.Context, op, tx.Statement.Table, time.Since(began), tx.Error)
		}
	}
	if err := registerStatementCallbacks(db, "db_metrics", stampStart(m.Name()), finish); err != nil {
		return err
	}

	m.logger.Debug("Database metrics plugin initialized")
	return nil
}

// registerStatementCallbacks hooks before and after every gorm statement
// kind. after receives the SQL verb, or "" for row and raw statements whose
// verb must be read from the SQL text.
func registerStatementCallbacks(db *gorm.DB, prefix string, before func(*gorm.DB), after func(op string) func(*gorm.DB)) error {
	type registerFunc func(name string, fn func(*gorm.DB)) error
	cb := db.Callback()
	steps := []struct {
		step, op      string
		before, after registerFunc
	}{
		{"create", "INSERT", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", "SELECT", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", "UPDATE", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", "DELETE", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", "", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", "", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, s := range steps {
		if err := s.before(prefix+":before_"+s.step, before); err != nil {
			return err
		}
		if err := s.after(prefix+":after_"+s.step, after(s.op)); err != nil {
			return err
		}
	}
	return nil
}

func detectOperationType(query string) string {
	query = strings.ToUpper(strings.TrimSpace(query))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(query, op) {
			return op
		}
	}
	return "OTHER"
}
