package recommender

import (
	"context"
	"math/rand/v2"

	"github.com/repoflow/backend/internal/domain/recipe"
)

// Random recommends a uniformly random candidate. It is the stub provider
// used until a model-backed recommender exists.
type Random struct {
	intn func(n int) int
}

// RandomOption configures a Random recommender
type RandomOption func(*Random)

// WithIntn replaces the random source; intn must return a value in [0, n)
func WithIntn(intn func(n int) int) RandomOption {
	return func(r *Random) {
		r.intn = intn
	}
}

// NewRandom creates a Random recommender
func NewRandom(opts ...RandomOption) *Random {
	r := &Random{intn: rand.IntN}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recommend returns the ID of a random candidate, or ok=false when there are none
func (r *Random) Recommend(_ context.Context, candidates []recipe.Recipe) (int64, bool, error) {
	if len(candidates) == 0 {
		return 0, false, nil
	}
	return candidates[r.intn(len(candidates))].ID, true, nil
}

var _ recipe.Recommender = (*Random)(nil)
