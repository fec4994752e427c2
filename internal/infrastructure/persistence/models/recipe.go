package models

import (
	"time"

	"github.com/repoflow/backend/internal/domain/recipe"
)

// RecipeModel is the persistence model for the Recipe domain entity.
type RecipeModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;index:idx_recipes_created_at_id,priority:2,sort:desc"`
	Title       string    `gorm:"type:varchar(200);not null"`
	Description *string   `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null;index:idx_recipes_created_at_id,priority:1,sort:desc"`
}

// TableName returns the table name for GORM
func (RecipeModel) TableName() string {
	return "recipes"
}

// ToDomain converts the persistence model to a domain Recipe entity.
func (m *RecipeModel) ToDomain() *recipe.Recipe {
	return &recipe.Recipe{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain Recipe entity.
func (m *RecipeModel) FromDomain(r *recipe.Recipe) {
	m.ID = r.ID
	m.Title = r.Title
	m.Description = r.Description
	m.CreatedAt = r.CreatedAt
}
