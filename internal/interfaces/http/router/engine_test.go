package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	recipeapp "github.com/repoflow/backend/internal/application/recipe"
	"github.com/repoflow/backend/internal/domain/recipe"
	"github.com/repoflow/backend/internal/infrastructure/config"
	"github.com/repoflow/backend/internal/infrastructure/ratelimit"
	"github.com/repoflow/backend/internal/interfaces/gql"
	"github.com/repoflow/backend/internal/interfaces/http/handler"
	"github.com/repoflow/backend/internal/interfaces/http/middleware"
	"github.com/repoflow/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/repoflow/backend/docs"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "recipes-api", Env: "test"},
		HTTP: config.HTTPConfig{
			MaxBodySize:                1 << 20,
			RateLimitEnabled:           true,
			RateLimitRequests:          100,
			RateLimitWindow:            time.Minute,
			RecommendRateLimitRequests: 10,
		},
		GraphQL: config.GraphQLConfig{Enabled: true, MaxDepth: 10},
	}
}

type testServer struct {
	engine *gin.Engine
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	middleware.SetupValidator()

	svc, db := testutil.NewRecipeService(t)
	schema, err := gql.NewSchema(svc)
	require.NoError(t, err)

	counter := ratelimit.NewMemoryCounter(0)
	t.Cleanup(func() { _ = counter.Close() })

	engine := NewEngine(Dependencies{
		Config:  cfg,
		Recipes: handler.NewRecipeHandler(svc),
		System:  handler.NewSystemHandler(cfg.App.Name, "test", db),
		GraphQL: gql.NewHandler(schema, gql.HandlerConfig{MaxDepth: cfg.GraphQL.MaxDepth}).Serve,
		Counter: counter,
	})
	return &testServer{engine: engine}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) graphql(t *testing.T, query string, variables map[string]interface{}) map[string]json.RawMessage {
	t.Helper()
	w := s.do(t, http.MethodPost, "/graphql", map[string]interface{}{"query": query, "variables": variables})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data   map[string]json.RawMessage `json:"data"`
		Errors []json.RawMessage          `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Empty(t, resp.Errors, w.Body.String())
	return resp.Data
}

func TestEngine_CrossSurface(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(t, http.MethodPost, "/recipes", map[string]string{"title": "Ramen"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rest recipeapp.RecipeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rest))

	data := s.graphql(t, `{ recipes { id title } }`, nil)
	assert.JSONEq(t, `[{"id":`+strconv.FormatInt(rest.ID, 10)+`,"title":"Ramen"}]`, string(data["recipes"]))

	data = s.graphql(t, `mutation { createRecipe(title: "Curry") { id } }`, nil)
	var created struct{ ID int64 }
	require.NoError(t, json.Unmarshal(data["createRecipe"], &created))

	w = s.do(t, http.MethodGet, "/api/v1/recipes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []recipeapp.RecipeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, created.ID, list[0].ID)

	w = s.do(t, http.MethodDelete, "/recipes/"+strconv.FormatInt(created.ID, 10), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	data = s.graphql(t, `mutation($id: Int!) { deleteRecipe(recipeId: $id) }`,
		map[string]interface{}{"id": created.ID})
	assert.Equal(t, "false", string(data["deleteRecipe"]))

	w = s.do(t, http.MethodGet, "/recipes/recommendation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rec recipeapp.RecommendationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	require.NotNil(t, rec.Recipe)
	assert.Equal(t, rest.ID, rec.Recipe.ID)
}

func TestEngine_PaddedInputAgreesAcrossSurfaces(t *testing.T) {
	s := newTestServer(t, testConfig())
	title := " " + strings.Repeat("t", recipe.MaxTitleLength) + " "
	desc := "  " + strings.Repeat("x", recipe.MaxDescriptionLength) + "  "
	const create = `mutation($title: String!, $description: String) {
		createRecipe(title: $title, description: $description) { title description }
	}`

	t.Run("limits apply after trimming", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/recipes", map[string]string{"title": title, "description": desc})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var rest recipeapp.RecipeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rest))

		data := s.graphql(t, create, map[string]interface{}{"title": title, "description": desc})
		var gqlRecipe struct {
			Title       string
			Description string
		}
		require.NoError(t, json.Unmarshal(data["createRecipe"], &gqlRecipe))

		assert.Len(t, rest.Title, recipe.MaxTitleLength)
		require.NotNil(t, rest.Description)
		assert.Len(t, *rest.Description, recipe.MaxDescriptionLength)
		assert.Equal(t, rest.Title, gqlRecipe.Title)
		assert.Equal(t, *rest.Description, gqlRecipe.Description)
	})

	t.Run("both reject an overlong trimmed description", func(t *testing.T) {
		long := " " + strings.Repeat("x", recipe.MaxDescriptionLength+1) + " "

		w := s.do(t, http.MethodPost, "/recipes", map[string]string{"title": "Soup", "description": long})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		w = s.do(t, http.MethodPost, "/graphql", map[string]interface{}{
			"query":     create,
			"variables": map[string]interface{}{"title": "Soup", "description": long},
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	})
}

func TestEngine_APIDocs(t *testing.T) {
	t.Run("served when enabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.HTTP.SwaggerEnabled = true
		s := newTestServer(t, cfg)

		w := s.do(t, http.MethodGet, "/swagger/doc.json", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var doc struct {
			BasePath string                     `json:"basePath"`
			Paths    map[string]json.RawMessage `json:"paths"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc), w.Body.String())
		assert.Equal(t, "/api/v1", doc.BasePath)
		for _, path := range []string{"/recipes", "/recipes/{id}", "/recipes/recommendation", "/system/info"} {
			assert.Contains(t, doc.Paths, path)
		}

		w = s.do(t, http.MethodGet, "/swagger/index.html", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("allow-list refuses other clients", func(t *testing.T) {
		cfg := testConfig()
		cfg.HTTP.SwaggerEnabled = true
		cfg.HTTP.SwaggerAllowedIPs = []string{"10.0.0.0/8"}
		s := newTestServer(t, cfg)

		w := s.do(t, http.MethodGet, "/swagger/doc.json", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("absent when disabled", func(t *testing.T) {
		s := newTestServer(t, testConfig())

		w := s.do(t, http.MethodGet, "/swagger/doc.json", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestEngine_Routes(t *testing.T) {
	s := newTestServer(t, testConfig())

	t.Run("health", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
	})

	t.Run("system info", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/system/info", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("request id is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/system/ping", nil)
		req.Header.Set(middleware.RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, req)
		assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("unknown route uses the error envelope", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), `"success":false`)
	})

	t.Run("wrong method", func(t *testing.T) {
		w := s.do(t, http.MethodPut, "/recipes", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("validation failure is 422 with request id", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/recipes", map[string]string{"title": " "})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), `"ERR_VALIDATION"`)
		assert.Contains(t, w.Body.String(), `"request_id"`)
	})

	t.Run("security headers", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/recipes", nil)
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	})
}

func TestEngine_RateLimits(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RateLimitRequests = 3
	cfg.HTTP.RecommendRateLimitRequests = 1
	s := newTestServer(t, cfg)

	t.Run("recommendation has the stricter limit", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/recipes/recommendation", nil).Code)
		w := s.do(t, http.MethodGet, "/api/v1/recipes/recommendation", nil)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
	})

	t.Run("list has its own budget", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/recipes", nil).Code)
		}
		assert.Equal(t, http.StatusTooManyRequests, s.do(t, http.MethodGet, "/recipes", nil).Code)
	})

	t.Run("system routes are not limited", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", nil).Code)
		}
	})
}

func TestEngine_RateLimitDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RateLimitEnabled = false
	cfg.HTTP.RecommendRateLimitRequests = 1
	s := newTestServer(t, cfg)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/recipes/recommendation", nil).Code)
	}
}
