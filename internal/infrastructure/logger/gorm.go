package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowSQL = 200 * time.Millisecond

// SQLLogOptions tunes GormLogger.
type SQLLogOptions struct {
	// SlowThreshold marks statements logged at warn. Zero uses 200ms.
	SlowThreshold time.Duration
	// IncludeSQL adds the statement text. Statements carry recipe titles
	// and descriptions verbatim, so production leaves this off.
	IncludeSQL bool
	// ReportNotFound logs gorm.ErrRecordNotFound as an error. Lookups of
	// missing recipes are routine, so it is off by default.
	ReportNotFound bool
}

// GormLogger routes gorm's statement log through zap.
type GormLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
	opts  SQLLogOptions
}

var _ gormlogger.Interface = (*GormLogger)(nil)

func NewGormLogger(l *zap.Logger, level gormlogger.LogLevel, opts SQLLogOptions) *GormLogger {
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = defaultSlowSQL
	}
	return &GormLogger{log: l.Named("gorm"), level: level, opts: opts}
}

func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *GormLogger) Info(_ context.Context, msg string, data ...any) {
	g.printf(gormlogger.Info, msg, data)
}

func (g *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	g.printf(gormlogger.Warn, msg, data)
}

func (g *GormLogger) Error(_ context.Context, msg string, data ...any) {
	g.printf(gormlogger.Error, msg, data)
}

func (g *GormLogger) printf(at gormlogger.LogLevel, msg string, data []any) {
	if g.level < at {
		return
	}
	s := g.log.Sugar()
	switch at {
	case gormlogger.Error:
		s.Errorf(msg, data...)
	case gormlogger.Warn:
		s.Warnf(msg, data...)
	default:
		s.Infof(msg, data...)
	}
}

// Trace logs one executed statement: failures at error, slow statements at
// warn and everything else at debug.
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	failed := err != nil && (g.opts.ReportNotFound || !errors.Is(err, gormlogger.ErrRecordNotFound))
	slow := elapsed > g.opts.SlowThreshold
	switch {
	case failed && g.level >= gormlogger.Error:
		g.log.Error("sql failed", append(g.statementFields(ctx, elapsed, fc), zap.Error(err))...)
	case slow && g.level >= gormlogger.Warn:
		g.log.Warn("slow sql", append(g.statementFields(ctx, elapsed, fc), zap.Duration("threshold", g.opts.SlowThreshold))...)
	case g.level >= gormlogger.Info:
		g.log.Debug("sql", g.statementFields(ctx, elapsed, fc)...)
	}
}

func (g *GormLogger) statementFields(ctx context.Context, elapsed time.Duration, fc func() (string, int64)) []zap.Field {
	stmt, rows := fc()
	fields := []zap.Field{zap.Duration("elapsed", elapsed), zap.Int64("rows", rows)}
	if g.opts.IncludeSQL {
		fields = append(fields, zap.String("sql", stmt))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	return append(fields, traceFields(ctx)...)
}

// GormLevel maps the application log level onto gorm's. Debug and info
// both enable statement logging; anything unrecognised means warn.
func GormLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
