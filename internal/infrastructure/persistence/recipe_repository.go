package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/repoflow/backend/internal/domain/recipe"
	"github.com/repoflow/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// timestamps are stored at the precision of a postgres TIMESTAMPTZ, so the
// value handed back by Create equals what a later read returns
const timestampPrecision = time.Microsecond

// GormRecipeRepository implements recipe.Repository using GORM
type GormRecipeRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormRecipeRepository creates a new GormRecipeRepository
func NewGormRecipeRepository(db *gorm.DB) *GormRecipeRepository {
	return &GormRecipeRepository{db: db, now: time.Now}
}

// Create inserts the recipe and fills in its ID and CreatedAt
func (r *GormRecipeRepository) Create(ctx context.Context, rec *recipe.Recipe) error {
	var model models.RecipeModel
	model.FromDomain(rec)
	model.ID = 0
	model.CreatedAt = r.now().UTC().Truncate(timestampPrecision)

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to create recipe: %w", err)
	}

	rec.ID = model.ID
	rec.CreatedAt = model.CreatedAt
	return nil
}

// List returns all recipes ordered newest first with id as tie-break
func (r *GormRecipeRepository) List(ctx context.Context) ([]recipe.Recipe, error) {
	var rows []models.RecipeModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	recipes := make([]recipe.Recipe, len(rows))
	for i := range rows {
		recipes[i] = *rows[i].ToDomain()
	}
	return recipes, nil
}

// Get finds a recipe by ID; a missing row yields (nil, nil)
func (r *GormRecipeRepository) Get(ctx context.Context, id int64) (*recipe.Recipe, error) {
	var model models.RecipeModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipe %d: %w", id, err)
	}
	return model.ToDomain(), nil
}

// Delete removes a recipe by ID and reports whether it existed
func (r *GormRecipeRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.RecipeModel{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete recipe %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

var _ recipe.Repository = (*GormRecipeRepository)(nil)
