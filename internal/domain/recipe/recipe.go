package recipe

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/repoflow/backend/internal/domain/shared"
)

// Length bounds, counted in characters
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
)

// Recipe is the only persisted entity: a titled, optionally described,
// timestamped record. Recipes are never edited after creation.
type Recipe struct {
	ID          int64
	Title       string
	Description *string
	CreatedAt   time.Time
}

// NewRecipe validates and normalizes input for a recipe that has not been
// stored yet. Title and description are trimmed; a description that is
// empty after trimming is dropped.
func NewRecipe(title string, description *string) (*Recipe, error) {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	var desc *string
	if description != nil {
		trimmed := strings.TrimSpace(*description)
		if err := validateDescription(trimmed); err != nil {
			return nil, err
		}
		if trimmed != "" {
			desc = &trimmed
		}
	}

	return &Recipe{
		Title:       title,
		Description: desc,
	}, nil
}


func validateTitle(title string) error {
	if title == "" {
		return shared.NewValidationError("Title cannot be empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return shared.NewValidationError(fmt.Sprintf("Title cannot exceed %d characters", MaxTitleLength))
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return shared.NewValidationError(fmt.Sprintf("Description cannot exceed %d characters", MaxDescriptionLength))
	}
	return nil
}
