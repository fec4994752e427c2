package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recipeapp "github.com/repoflow/backend/internal/application/recipe"
	"github.com/repoflow/backend/internal/domain/recipe"
	"github.com/repoflow/backend/internal/infrastructure/config"
	"github.com/repoflow/backend/internal/infrastructure/persistence"
	"github.com/repoflow/backend/internal/infrastructure/ratelimit"
	"github.com/repoflow/backend/internal/interfaces/gql"
	"github.com/repoflow/backend/internal/interfaces/http/handler"
	"github.com/repoflow/backend/internal/interfaces/http/middleware"
	"github.com/repoflow/backend/internal/interfaces/http/router"
)

// TestRecipeAPI_Postgres drives both surfaces over PostgreSQL with the
// rate limits counted in Redis.
func TestRecipeAPI_Postgres(t *testing.T) {
	testDB := NewTestDB(t, true)
	client := NewTestRedis(t)
	middleware.SetupValidator()

	cfg := &config.Config{
		App: config.AppConfig{Name: "recipes-api", Env: "test"},
		HTTP: config.HTTPConfig{
			MaxBodySize:                1 << 20,
			RateLimitEnabled:           true,
			RateLimitRequests:          100,
			RateLimitWindow:            time.Minute,
			RecommendRateLimitRequests: 2,
		},
		GraphQL: config.GraphQLConfig{Enabled: true, MaxDepth: 10},
	}

	// the recommender always names a recipe that does not exist
	stale := recipe.RecommenderFunc(func(_ context.Context, _ []recipe.Recipe) (int64, bool, error) {
		return 999999, true, nil
	})
	svc := recipeapp.NewRecipeService(
		persistence.NewGormRecipeRepository(testDB.Database.DB),
		recipeapp.WithRecommender(stale),
	)
	schema, err := gql.NewSchema(svc)
	require.NoError(t, err)

	engine := router.NewEngine(router.Dependencies{
		Config:  cfg,
		Recipes: handler.NewRecipeHandler(svc),
		System:  handler.NewSystemHandler(cfg.App.Name, "test", testDB.Database),
		GraphQL: gql.NewHandler(schema, gql.HandlerConfig{MaxDepth: cfg.GraphQL.MaxDepth}).Serve,
		Counter: ratelimit.NewRedisCounterWithClient(client, "it:"),
	})

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"database":"ok"`)

	w = do(http.MethodGet, "/recipes/recommendation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"recipe":null,"message":"`+recipeapp.EmptyCatalogMessage+`"}`, w.Body.String())

	w = do(http.MethodPost, "/recipes", map[string]interface{}{"title": "  Borscht  ", "description": "Beets"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first recipeapp.RecipeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Equal(t, "Borscht", first.Title)

	w = do(http.MethodPost, "/graphql", map[string]interface{}{
		"query": `mutation { createRecipe(title: "Pierogi") { id title description } }`,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		Data struct {
			CreateRecipe struct {
				ID          int64
				Title       string
				Description *string
			}
		}
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Pierogi", created.Data.CreateRecipe.Title)
	assert.Nil(t, created.Data.CreateRecipe.Description)

	w = do(http.MethodGet, "/api/v1/recipes/"+strconv.FormatInt(first.ID, 10), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// a stale provider pick falls back to the newest recipe; the second
	// request spends the last of the budget of 2
	w = do(http.MethodGet, "/recipes/recommendation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rec recipeapp.RecommendationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	require.NotNil(t, rec.Recipe)
	assert.Equal(t, created.Data.CreateRecipe.ID, rec.Recipe.ID)

	w = do(http.MethodGet, "/api/v1/recipes/recommendation", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = do(http.MethodDelete, "/recipes/"+strconv.FormatInt(first.ID, 10), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(http.MethodDelete, "/recipes/"+strconv.FormatInt(first.ID, 10), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
