package recommender

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/repoflow/backend/internal/domain/recipe"
)

// BreakerSettings tunes the circuit breaker around a provider
type BreakerSettings struct {
	Name        string
	MaxFailures uint32        // consecutive failures before opening
	Timeout     time.Duration // open duration before a half-open trial call
}

// pick is the value carried through the breaker
type pick struct {
	id int64
	ok bool
}

// CircuitBreaker stops calling a failing provider for a while. While open,
// Recommend returns gobreaker.ErrOpenState without invoking the provider.
type CircuitBreaker struct {
	next   recipe.Recommender
	cb     *gobreaker.CircuitBreaker[pick]
	logger *zap.Logger
}

// NewCircuitBreaker wraps next with circuit breaker protection
func NewCircuitBreaker(next recipe.Recommender, settings BreakerSettings, logger *zap.Logger) *CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.Name == "" {
		settings.Name = "recommender"
	}
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	if settings.Timeout == 0 {
		settings.Timeout = 30 * time.Second
	}

	maxFailures := settings.MaxFailures
	cb := gobreaker.NewCircuitBreaker[pick](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("recommender circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &CircuitBreaker{next: next, cb: cb, logger: logger}
}

// Recommend calls the wrapped provider through the breaker. Empty candidate
// lists never reach the breaker so they cannot count as successes.
func (c *CircuitBreaker) Recommend(ctx context.Context, candidates []recipe.Recipe) (int64, bool, error) {
	if len(candidates) == 0 {
		return 0, false, nil
	}

	result, err := c.cb.Execute(func() (pick, error) {
		id, ok, err := c.next.Recommend(ctx, candidates)
		return pick{id: id, ok: ok}, err
	})
	if err != nil {
		return 0, false, err
	}
	return result.id, result.ok, nil
}

// State returns the current breaker state
func (c *CircuitBreaker) State() gobreaker.State {
	return c.cb.State()
}

var _ recipe.Recommender = (*CircuitBreaker)(nil)
