package recipe

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("recipe not found")
	ErrAccessDenied   = errors.New("access denied")
	ErrTitleRequired  = errors.New("title is required")
	ErrNoIngredients  = errors.New("at least one ingredient is required")
	ErrEmptyImageFile = errors.New("image file is empty")
)

// IngredientLine is one ingredient entry on a recipe. Names are stored
// normalized so "Flour " and "flour" resolve to the same ingredient row.
type IngredientLine struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

type Recipe struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Description *string          `json:"description,omitempty"`
	ImageURL    *string          `json:"image_url,omitempty"`
	AuthorID    uuid.UUID        `json:"author_id"`
	Ingredients []IngredientLine `json:"ingredients"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
