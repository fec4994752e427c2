package recipe

import (
	"context"
	"fmt"
	"time"

	"github.com/repoflow/backend/internal/domain/recipe"
	"github.com/repoflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Recommendation outcomes reported to the recorder
const (
	OutcomeNoRecipes     = "no_recipes"
	OutcomeNoProvider    = "no_provider"
	OutcomeProvider      = "provider"
	OutcomeProviderError = "provider_error"
	OutcomeProviderEmpty = "provider_empty"
	OutcomeStaleID       = "stale_id"
)

// RecommendationRecorder receives one outcome per recommendation request
type RecommendationRecorder interface {
	RecordRecommendation(ctx context.Context, outcome string)
}

// Optional recorder extensions, detected at call time.
type (
	durationRecorder interface {
		RecordRecommendationDuration(ctx context.Context, d time.Duration)
	}
	catalogRecorder interface {
		RecordCreated(ctx context.Context)
		RecordDeleted(ctx context.Context)
	}
)

// RecipeService handles recipe business operations
type RecipeService struct {
	repo        recipe.Repository
	recommender recipe.Recommender
	recorder    RecommendationRecorder
	logger      *zap.Logger
}

// ServiceOption configures a RecipeService
type ServiceOption func(*RecipeService)

// WithRecommender sets the recommendation provider. A nil provider means
// recommendations always resolve to the newest recipe.
func WithRecommender(r recipe.Recommender) ServiceOption {
	return func(s *RecipeService) {
		s.recommender = r
	}
}

// WithRecorder sets the recommendation outcome recorder
func WithRecorder(r RecommendationRecorder) ServiceOption {
	return func(s *RecipeService) {
		s.recorder = r
	}
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *RecipeService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewRecipeService creates a new RecipeService
func NewRecipeService(repo recipe.Repository, opts ...ServiceOption) *RecipeService {
	s := &RecipeService{
		repo:   repo,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasRecommender reports whether a recommendation provider is configured
func (s *RecipeService) HasRecommender() bool {
	return s.recommender != nil
}

// CreateRecipe validates, trims and stores a new recipe
func (s *RecipeService) CreateRecipe(ctx context.Context, req CreateRecipeRequest) (*RecipeResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recipe", "create")
	defer span.End()

	r, err := recipe.NewRecipe(req.Title, req.Description)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, r); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(telemetry.SpanAttrRecipeID.Int64(r.ID))
	if c, ok := s.recorder.(catalogRecorder); ok {
		c.RecordCreated(ctx)
	}
	s.logger.Debug("recipe created", zap.Int64("recipe_id", r.ID))
	resp := ToRecipeResponse(r)
	return &resp, nil
}

// ListRecipes returns all recipes, newest first
func (s *RecipeService) ListRecipes(ctx context.Context) ([]RecipeResponse, error) {
	recipes, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return ToRecipeResponses(recipes), nil
}

// GetRecipe returns the recipe with the given ID, or nil when absent
func (s *RecipeService) GetRecipe(ctx context.Context, id int64) (*RecipeResponse, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	resp := ToRecipeResponse(r)
	return &resp, nil
}

// DeleteRecipe removes a recipe and reports whether it existed
func (s *RecipeService) DeleteRecipe(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		if c, ok := s.recorder.(catalogRecorder); ok {
			c.RecordDeleted(ctx)
		}
		s.logger.Debug("recipe deleted", zap.Int64("recipe_id", id))
	}
	return deleted, nil
}

// RecommendRecipe picks a recipe to recommend.
//
// The result is nil only when no recipes exist. Otherwise the provider's
// pick is used when it resolves to a stored recipe, and the newest recipe is
// returned in every other case. Provider failures are logged and never
// returned; storage errors from listing are.
func (s *RecipeService) RecommendRecipe(ctx context.Context) (*RecipeResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recipe", "recommend")
	defer span.End()

	if d, ok := s.recorder.(durationRecorder); ok {
		start := time.Now()
		defer func() { d.RecordRecommendationDuration(ctx, time.Since(start)) }()
	}

	recipes, err := s.repo.List(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(telemetry.SpanAttrCandidates.Int(len(recipes)))
	if len(recipes) == 0 {
		s.record(ctx, OutcomeNoRecipes)
		return nil, nil
	}

	newest := ToRecipeResponse(&recipes[0])

	if s.recommender == nil {
		s.record(ctx, OutcomeNoProvider)
		return &newest, nil
	}

	id, ok, err := s.callRecommender(ctx, recipes)
	if err != nil {
		s.logger.Warn("recommendation provider failed, using newest recipe", zap.Error(err))
		s.record(ctx, OutcomeProviderError)
		return &newest, nil
	}
	if !ok {
		s.record(ctx, OutcomeProviderEmpty)
		return &newest, nil
	}

	picked, err := s.repo.Get(ctx, id)
	if err != nil {
		s.logger.Warn("failed to resolve recommended recipe, using newest recipe",
			zap.Int64("recipe_id", id),
			zap.Error(err),
		)
		s.record(ctx, OutcomeStaleID)
		return &newest, nil
	}
	if picked == nil {
		s.logger.Debug("recommended recipe no longer exists, using newest recipe", zap.Int64("recipe_id", id))
		s.record(ctx, OutcomeStaleID)
		return &newest, nil
	}

	s.record(ctx, OutcomeProvider)
	resp := ToRecipeResponse(picked)
	return &resp, nil
}

// callRecommender invokes the provider, turning a panic into an error
func (s *RecipeService) callRecommender(ctx context.Context, candidates []recipe.Recipe) (id int64, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			id, ok, err = 0, false, fmt.Errorf("recommender panicked: %v", rec)
		}
	}()
	return s.recommender.Recommend(ctx, candidates)
}

func (s *RecipeService) record(ctx context.Context, outcome string) {
	telemetry.Annotate(ctx, telemetry.SpanAttrOutcome.String(outcome))
	if s.recorder != nil {
		s.recorder.RecordRecommendation(ctx, outcome)
	}
}
