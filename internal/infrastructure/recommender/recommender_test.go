package recommender

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/repoflow/backend/internal/domain/recipe"
	"github.com/repoflow/backend/internal/infrastructure/config"
)

func candidates(ids ...int64) []recipe.Recipe {
	out := make([]recipe.Recipe, len(ids))
	for i, id := range ids {
		out[i] = recipe.Recipe{ID: id, Title: "r"}
	}
	return out
}

func TestRandom_Recommend(t *testing.T) {
	ctx := context.Background()

	t.Run("empty candidates return absent without error", func(t *testing.T) {
		id, ok, err := NewRandom().Recommend(ctx, nil)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, id)
	})

	t.Run("uses injected source", func(t *testing.T) {
		r := NewRandom(WithIntn(func(n int) int { return n - 1 }))

		id, ok, err := r.Recommend(ctx, candidates(10, 20, 30))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(30), id)
	})

	t.Run("always picks a candidate", func(t *testing.T) {
		r := NewRandom()
		pool := candidates(4, 5, 6)
		for i := 0; i < 50; i++ {
			id, ok, err := r.Recommend(ctx, pool)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Contains(t, []int64{4, 5, 6}, id)
		}
	})
}

func TestCircuitBreaker(t *testing.T) {
	ctx := context.Background()

	t.Run("passes through provider results", func(t *testing.T) {
		inner := recipe.RecommenderFunc(func(context.Context, []recipe.Recipe) (int64, bool, error) {
			return 7, true, nil
		})
		cb := NewCircuitBreaker(inner, BreakerSettings{}, nil)

		id, ok, err := cb.Recommend(ctx, candidates(7))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(7), id)
		assert.Equal(t, gobreaker.StateClosed, cb.State())
	})

	t.Run("opens after consecutive failures and stops calling provider", func(t *testing.T) {
		calls := 0
		inner := recipe.RecommenderFunc(func(context.Context, []recipe.Recipe) (int64, bool, error) {
			calls++
			return 0, false, errors.New("unavailable")
		})
		core, logs := observer.New(zapcore.InfoLevel)
		cb := NewCircuitBreaker(inner, BreakerSettings{MaxFailures: 2, Timeout: time.Hour}, zap.New(core))

		for i := 0; i < 2; i++ {
			_, _, err := cb.Recommend(ctx, candidates(1))
			require.Error(t, err)
		}
		assert.Equal(t, gobreaker.StateOpen, cb.State())

		_, _, err := cb.Recommend(ctx, candidates(1))
		assert.ErrorIs(t, err, gobreaker.ErrOpenState)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 1, logs.FilterMessage("recommender circuit breaker state changed").Len())
	})

	t.Run("empty candidates bypass the breaker", func(t *testing.T) {
		inner := recipe.RecommenderFunc(func(context.Context, []recipe.Recipe) (int64, bool, error) {
			t.Fatal("provider must not be called")
			return 0, false, nil
		})
		cb := NewCircuitBreaker(inner, BreakerSettings{}, nil)

		id, ok, err := cb.Recommend(ctx, nil)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, id)
	})
}

func TestNew(t *testing.T) {
	t.Run("mock provider is the random stub", func(t *testing.T) {
		p := New(&config.RecommenderConfig{Provider: ProviderMock}, nil)
		assert.IsType(t, &Random{}, p)
	})

	t.Run("breaker wraps the provider when enabled", func(t *testing.T) {
		p := New(&config.RecommenderConfig{Provider: ProviderRandom, BreakerEnabled: true}, nil)
		assert.IsType(t, &CircuitBreaker{}, p)
	})

	t.Run("none disables recommendations", func(t *testing.T) {
		p := New(&config.RecommenderConfig{Provider: ProviderNone, BreakerEnabled: true}, nil)
		assert.Nil(t, p)
	})

	t.Run("unknown provider falls back to mock with a warning", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		p := New(&config.RecommenderConfig{Provider: "openai"}, zap.New(core))

		assert.IsType(t, &Random{}, p)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "openai", logs.All()[0].ContextMap()["provider"])
	})
}
