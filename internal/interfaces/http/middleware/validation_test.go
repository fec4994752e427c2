package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/repoflow/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createInput struct {
	Title       string  `json:"title" binding:"required,min=1,max=10"`
	Description *string `json:"description" binding:"omitempty,max=20"`
}

func validationRouter() *gin.Engine {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req createInput
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func TestHandleValidationError(t *testing.T) {
	router := validationRouter()

	t.Run("reports json field names with 422", func(t *testing.T) {
		body := `{"title": "far too long a title", "description": "` + strings.Repeat("x", 21) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(RequestIDHeader, "req-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		assert.Equal(t, "req-42", resp.Error.RequestID)

		require.Len(t, resp.Error.Details, 2)
		assert.Equal(t, "title", resp.Error.Details[0].Field)
		assert.Equal(t, "Must be at most 10 characters", resp.Error.Details[0].Message)
		assert.Equal(t, "description", resp.Error.Details[1].Field)
		assert.Equal(t, "max", resp.Error.Details[1].Tag)
	})

	t.Run("missing required field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "This field is required")
	})

	t.Run("valid input passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"title": "Cake"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestIsValidationError(t *testing.T) {
	err := validator.New().Struct(struct {
		Name string `validate:"required"`
	}{})
	require.Error(t, err)

	assert.True(t, IsValidationError(err))
	assert.False(t, IsValidationError(errors.New("unexpected EOF")))
	assert.False(t, IsValidationError(nil))
}

func TestFieldMessage(t *testing.T) {
	type sample struct {
		Required string `validate:"required"`
		Min      string `validate:"min=5"`
		Max      string `validate:"max=3"`
		GTE      int    `validate:"gte=10"`
		GT       int    `validate:"gt=0"`
		Numeric  string `validate:"numeric"`
		Other    string `validate:"email"`
	}

	err := validator.New().Struct(sample{Min: "ab", Max: "abcdef", Numeric: "x", Other: "nope"})
	require.Error(t, err)

	got := map[string]string{}
	for _, e := range err.(validator.ValidationErrors) {
		got[e.Field()] = fieldMessage(e)
	}

	assert.Equal(t, map[string]string{
		"Required": "This field is required",
		"Min":      "Must be at least 5 characters",
		"Max":      "Must be at most 3 characters",
		"GTE":      "Must be greater than or equal to 10",
		"GT":       "Must be greater than 0",
		"Numeric":  "Must be numeric",
		"Other":    "Invalid value",
	}, got)
}
