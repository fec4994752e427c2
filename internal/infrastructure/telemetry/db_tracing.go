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

const defaultSlowQuery = 200 * time.Millisecond

type DBTracingConfig struct {
	Enabled bool
	// keeps bound values in db.statement; never in production
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string // "postgresql" or "sqlite"
}

// DBTracing is a gorm plugin that installs otelgorm and adds the table,
// affected rows and a slow-query flag to each statement span. Failed
// statements other than not-found mark the span as an error.
type DBTracing struct {
	cfg    DBTracingConfig
	logger *zap.Logger
}

func NewDBTracing(cfg DBTracingConfig, logger *zap.Logger) *DBTracing {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = defaultSlowQuery
	}
	return &DBTracing{cfg: cfg, logger: logger}
}

func (p *DBTracing) Name() string {
	return "recipes:db_tracing"
}

// Initialize does nothing when tracing is disabled.
func (p *DBTracing) Initialize(db *gorm.DB) error {
	if !p.cfg.Enabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.cfg.DBSystem)}
	if !p.cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := registerStatementCallbacks(db, "db_tracing", stampStart(p.Name()),
		func(string) func(*gorm.DB) { return p.annotate }); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.String("db_system", p.cfg.DBSystem),
		zap.Bool("log_full_sql", p.cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", p.cfg.SlowQueryThresh),
	)
	return nil
}

func (p *DBTracing) annotate(tx *gorm.DB) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{attribute.Int64("db.rows_affected", tx.RowsAffected)}
	if table := tx.Statement.Table; table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", table))
	}
	if began, ok := startedAt(tx, p.Name()); ok {
		if elapsed := time.Since(began); elapsed > p.cfg.SlowQueryThresh {
			attrs = append(attrs,
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("threshold_ms", p.cfg.SlowQueryThresh.Milliseconds()),
			))
		}
	}
	span.SetAttributes(attrs...)

	if err := tx.Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		RecordError(span, err)
	}
}

// statement start times are kept per plugin so the tracing and metrics
// callbacks never read each other's stamp
type stmtStartKey struct{ plugin string }

func stampStart(plugin string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		tx.Statement.Context = context.WithValue(ctx, stmtStartKey{plugin}, time.Now())
	}
}

func startedAt(tx *gorm.DB, plugin string) (time.Time, bool) {
	if tx.Statement.Context == nil {
		return time.Time{}, false
	}
	began, ok := tx.Statement.Context.Value(stmtStartKey{plugin}).(time.Time)
	return began, ok
}
