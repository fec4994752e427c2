package recipe

import "context"

// Recommender picks one recipe out of a candidate list.
//
// ok is false when the provider has no pick. Implementations may fail,
// but must return (0, false, nil) for an empty candidate list.
type Recommender interface {
	Recommend(ctx context.Context, candidates []Recipe) (id int64, ok bool, err error)
}

// RecommenderFunc adapts a function to the Recommender interface
type RecommenderFunc func(ctx context.Context, candidates []Recipe) (int64, bool, error)

// Recommend calls f
func (f RecommenderFunc) Recommend(ctx context.Context, candidates []Recipe) (int64, bool, error) {
	return f(ctx, candidates)
}
