package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	recipeapp "github.com/repoflow/backend/internal/application/recipe"
	"github.com/repoflow/backend/internal/interfaces/http/dto"
)

// RecipeHandler handles recipe-related API endpoints
type RecipeHandler struct {
	BaseHandler
	recipeService *recipeapp.RecipeService
}

// NewRecipeHandler creates a new RecipeHandler
func NewRecipeHandler(recipeService *recipeapp.RecipeService) *RecipeHandler {
	return &RecipeHandler{
		recipeService: recipeService,
	}
}

// Create handles POST /recipes.
// Responds 201 with the stored recipe, or 422 when the title or
// description is rejected.
//
//	@Summary		Create a recipe
//	@Description	Title and description are trimmed; the title must be 1-200 characters and the description at most 5000
//	@Tags			recipes
//	@Accept			json
//	@Produce		json
//	@Param			request	body		recipeapp.CreateRecipeRequest	true	"Recipe to create"
//	@Success		201		{object}	recipeapp.RecipeResponse
//	@Failure		400		{object}	dto.Response
//	@Failure		422		{object}	dto.Response
//	@Failure		429		{object}	dto.Response
//	@Router			/recipes [post]
func (h *RecipeHandler) Create(c *gin.Context) {
	var req recipeapp.CreateRecipeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	recipe, err := h.recipeService.CreateRecipe(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, recipe)
}

// List handles GET /recipes, newest first
//
//	@Summary		List recipes
//	@Description	All recipes, newest first
//	@Tags			recipes
//	@Produce		json
//	@Success		200	{array}		recipeapp.RecipeResponse
//	@Failure		429	{object}	dto.Response
//	@Failure		500	{object}	dto.Response
//	@Router			/recipes [get]
func (h *RecipeHandler) List(c *gin.Context) {
	recipes, err := h.recipeService.ListRecipes(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, recipes)
}

// GetByID handles GET /recipes/:id
//
//	@Summary	Get a recipe
//	@Tags		recipes
//	@Produce	json
//	@Param		id	path		int	true	"Recipe ID"
//	@Success	200	{object}	recipeapp.RecipeResponse
//	@Failure	400	{object}	dto.Response
//	@Failure	404	{object}	dto.Response
//	@Router		/recipes/{id} [get]
func (h *RecipeHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	recipe, err := h.recipeService.GetRecipe(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if recipe == nil {
		h.Fail(c, dto.ErrCodeNotFound, "Recipe not found")
		return
	}

	h.OK(c, recipe)
}

// Delete handles DELETE /recipes/:id: 204 when removed, 404 when absent
//
//	@Summary	Delete a recipe
//	@Tags		recipes
//	@Produce	json
//	@Param		id	path	int	true	"Recipe ID"
//	@Success	204
//	@Failure	400	{object}	dto.Response
//	@Failure	404	{object}	dto.Response
//	@Router		/recipes/{id} [delete]
func (h *RecipeHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	deleted, err := h.recipeService.DeleteRecipe(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !deleted {
		h.Fail(c, dto.ErrCodeNotFound, "Recipe not found")
		return
	}

	h.NoContent(c)
}

// Recommend handles GET /recipes/recommendation.
// An empty catalog is a 200 carrying an explanatory message.
//
//	@Summary		Recommend a recipe
//	@Description	A recipe chosen by the recommendation provider, falling back to the newest recipe. The recipe is null only when the catalog is empty.
//	@Tags			recipes
//	@Produce		json
//	@Success		200	{object}	recipeapp.RecommendationResponse
//	@Failure		429	{object}	dto.Response
//	@Router			/recipes/recommendation [get]
func (h *RecipeHandler) Recommend(c *gin.Context) {
	recipe, err := h.recipeService.RecommendRecipe(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, recipeapp.NewRecommendationResponse(recipe))
}

func (h *RecipeHandler) parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.Fail(c, dto.ErrCodeBadRequest, "Recipe ID must be an integer")
		return 0, false
	}
	return id, true
}
