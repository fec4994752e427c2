package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// RecipeMetrics records recipe catalogue activity. It satisfies the
// recommendation recorder used by the recipe service.
type RecipeMetrics struct {
	recipesCreated        *Counter
	recipesDeleted        *Counter
	recommendations       *Counter
	recommendationLatency *Histogram
	logger                *zap.Logger
}

// NewRecipeMetrics creates the recipe instruments on the given meter.
func NewRecipeMetrics(meter metric.Meter, logger *zap.Logger) (*RecipeMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	created, err := NewCounter(meter, "recipes_created_total", "Total number of recipes created", "{recipe}")
	if err != nil {
		return nil, err
	}
	deleted, err := NewCounter(meter, "recipes_deleted_total", "Total number of recipes deleted", "{recipe}")
	if err != nil {
		return nil, err
	}
	recommendations, err := NewCounter(
		meter,
		"recipe_recommendations_total",
		"Total number of recommendation requests by outcome",
		"{recommendation}",
	)
	if err != nil {
		return nil, err
	}
	latency, err := NewHistogram(meter, HistogramOpts{
		Name:        "recipe_recommendation_duration_seconds",
		Description: "Time spent choosing a recommendation",
		Unit:        "s",
		Boundaries:  SmallDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return &RecipeMetrics{
		recipesCreated:        created,
		recipesDeleted:        deleted,
		recommendations:       recommendations,
		recommendationLatency: latency,
		logger:                logger,
	}, nil
}

// RecordRecommendation counts one recommendation request with its outcome.
func (m *RecipeMetrics) RecordRecommendation(ctx context.Context, outcome string) {
	m.recommendations.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordRecommendationDuration records how long a recommendation took.
func (m *RecipeMetrics) RecordRecommendationDuration(ctx context.Context, d time.Duration) {
	m.recommendationLatency.RecordDuration(ctx, d)
}

// RecordCreated counts a created recipe.
func (m *RecipeMetrics) RecordCreated(ctx context.Context) {
	m.recipesCreated.Inc(ctx)
}

// RecordDeleted counts a deleted recipe.
func (m *RecipeMetrics) RecordDeleted(ctx context.Context) {
	m.recipesDeleted.Inc(ctx)
}
