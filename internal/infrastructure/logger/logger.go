// Package logger builds the process zap logger and carries request-scoped
// loggers through contexts, gin and gorm.
package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/repoflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type Config struct {
	Level      string // debug, info, warn, error, fatal
	Format     string // json or console
	Output     string // stdout, stderr or a file path
	TimeFormat string
}

// Defaults returns JSON to stdout in production and colored console
// output everywhere else, both at info.
func Defaults(env string) *Config {
	c := &Config{Level: "info", Format: "console", Output: "stdout", TimeFormat: isoMillis}
	if env == "production" {
		c.Format = "json"
	}
	return c
}

// FromAppConfig overlays the log section of the application config on
// Defaults(env). Production keeps JSON whatever the format says.
func FromAppConfig(cfg config.LogConfig, env string) *Config {
	c := Defaults(env)
	if cfg.Level != "" {
		c.Level = cfg.Level
	}
	if cfg.Format != "" && env != "production" {
		c.Format = cfg.Format
	}
	if cfg.Output != "" {
		c.Output = cfg.Output
	}
	return c
}

func New(cfg *Config) (*zap.Logger, error) {
	sink, err := openSink(cfg.Output)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(newEncoder(cfg), sink, levelOf(cfg.Level))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// levelOf accepts zap's level names plus "warning"; anything else is info.
func levelOf(name string) zapcore.Level {
	name = strings.ToLower(name)
	if name == "warning" {
		return zapcore.WarnLevel
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func newEncoder(cfg *Config) zapcore.Encoder {
	layout := cfg.TimeFormat
	if layout == "" {
		layout = isoMillis
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(layout)
	ec.EncodeDuration = zapcore.MillisDurationEncoder

	if cfg.Format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func openSink(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %q: %w", output, err)
	}
	return zapcore.AddSync(f), nil
}

// Sync flushes buffered entries. Syncing a terminal fails on some
// platforms, so the error is dropped.
func Sync(l *zap.Logger) {
	_ = l.Sync()
}
