package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/repoflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Factory creates counters based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	cleanupEvery          time.Duration
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory counter
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// WithCleanupInterval sets how often the in-memory counter drops expired windows
func WithCleanupInterval(d time.Duration) FactoryOption {
	return func(f *Factory) {
		f.cleanupEvery = d
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		cleanupEvery:          2 * time.Minute,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisCounter creates a Redis-backed counter
func (f *Factory) CreateRedisCounter(ctx context.Context) (*RedisCounter, error) {
	counter, err := NewRedisCounter(ctx, &redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis rate limit counter: %w", err)
	}
	return counter, nil
}

// CreateInMemoryCounter creates a process-local counter
func (f *Factory) CreateInMemoryCounter() *MemoryCounter {
	return NewMemoryCounter(f.cleanupEvery)
}

// CreateCounter returns a Redis counter when Redis is enabled and reachable,
// otherwise an in-memory counter if fallback is allowed.
func (f *Factory) CreateCounter(ctx context.Context) (Counter, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("using in-memory rate limit counter")
		return f.CreateInMemoryCounter(), nil
	}

	counter, err := f.CreateRedisCounter(ctx)
	if err == nil {
		f.logger.Info("using Redis rate limit counter", zap.String("addr", f.redisConfig.Addr()))
		return counter, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for rate limiting but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory rate limit counter. "+
		"Limits will not be shared between instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryCounter(), nil
}
