package recipe

import "context"

// Repository defines the storage contract for recipes
type Repository interface {
	// Create persists r, assigning its ID and CreatedAt
	Create(ctx context.Context, r *Recipe) error

	// List returns every recipe, newest first (created_at desc, id desc)
	List(ctx context.Context) ([]Recipe, error)

	// Get returns the recipe with the given ID, or nil when absent
	Get(ctx context.Context, id int64) (*Recipe, error)

	// Delete removes the recipe and reports whether a row existed
	Delete(ctx context.Context, id int64) (bool, error)
}
