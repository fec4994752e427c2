package recipe

import (
	"time"

	"github.com/repoflow/backend/internal/domain/recipe"
)

// EmptyCatalogMessage explains a missing recommendation
const EmptyCatalogMessage = "No recipes yet. Create one to get recommendations."

// CreateRecipeRequest represents a request to create a new recipe.
// Lengths are checked by recipe.NewRecipe after trimming, never here.
type CreateRecipeRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
}

// RecipeResponse represents a recipe in API responses
type RecipeResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecommendationResponse carries either a recipe or an explanatory message
type RecommendationResponse struct {
	Recipe  *RecipeResponse `json:"recipe"`
	Message *string         `json:"message"`
}

// ToRecipeResponse converts a domain Recipe to a response DTO
func ToRecipeResponse(r *recipe.Recipe) RecipeResponse {
	return RecipeResponse{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}

// ToRecipeResponses converts a slice of domain recipes to response DTOs
func ToRecipeResponses(recipes []recipe.Recipe) []RecipeResponse {
	responses := make([]RecipeResponse, len(recipes))
	for i := range recipes {
		responses[i] = ToRecipeResponse(&recipes[i])
	}
	return responses
}

// NewRecommendationResponse wraps a (possibly absent) recommendation
func NewRecommendationResponse(r *RecipeResponse) RecommendationResponse {
	if r == nil {
		msg := EmptyCatalogMessage
		return RecommendationResponse{Message: &msg}
	}
	return RecommendationResponse{Recipe: r}
}
