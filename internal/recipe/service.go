package recipe

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tastebook/tastebook/internal/logging"
	"github.com/tastebook/tastebook/internal/user"
)

// RecipeStore is the persistence boundary the recipe service depends on.
type RecipeStore interface {
	Create(ctx context.Context, rec *Recipe) (*Recipe, error)
	Get(ctx context.Context, id uuid.UUID) (*Recipe, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]*Recipe, error)
	Update(ctx context.Context, rec *Recipe) (*Recipe, error)
	SetImageURL(ctx context.Context, id uuid.UUID, imageURL string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ImageStore uploads recipe images and returns their public URL.
type ImageStore interface {
	UploadImage(ctx context.Context, content []byte, contentType string) (string, error)
	DeleteImage(ctx context.Context, imageURL string) error
}

type Service struct {
	recipes RecipeStore
	images  ImageStore
	logger  *logging.Logger
}

func NewService(recipes RecipeStore, images ImageStore, logger *logging.Logger) *Service {
	return &Service{recipes: recipes, images: images, logger: logger}
}

// CreateParams carries the fields for a new or updated recipe.
type CreateParams struct {
	Title       string           `json:"title"`
	Description *string          `json:"description"`
	Ingredients []IngredientLine `json:"ingredients"`
}

// Create validates and stores a new recipe owned by the actor.
func (s *Service) Create(ctx context.Context, actor *user.User, params CreateParams) (*Recipe, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	ingredients := normalizeIngredients(params.Ingredients)
	if len(ingredients) == 0 {
		return nil, ErrNoIngredients
	}

	created, err := s.recipes.Create(ctx, &Recipe{
		Title:       title,
		Description: params.Description,
		AuthorID:    actor.ID,
		Ingredients: ingredients,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("recipe created", "recipe_id", created.ID, "author_id", actor.ID)
	return created, nil
}

// Get returns a recipe by ID. Recipes are readable by any authenticated user.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Recipe, error) {
	return s.recipes.Get(ctx, id)
}

// ListByAuthor returns an author's recipes.
func (s *Service) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]*Recipe, error) {
	return s.recipes.ListByAuthor(ctx, authorID)
}

// Update replaces a recipe's content. Only the author, or a moderator or
// above, may edit.
func (s *Service) Update(ctx context.Context, actor *user.User, id uuid.UUID, params CreateParams) (*Recipe, error) {
	existing, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	ingredients := normalizeIngredients(params.Ingredients)
	if len(ingredients) == 0 {
		return nil, ErrNoIngredients
	}

	existing.Title = title
	existing.Description = params.Description
	existing.Ingredients = ingredients

	updated, err := s.recipes.Update(ctx, existing)
	if err != nil {
		return nil, err
	}

	s.logger.Info("recipe updated", "recipe_id", id, "actor_id", actor.ID)
	return updated, nil
}

// AttachImage uploads the image and records its URL on the recipe.
func (s *Service) AttachImage(ctx context.Context, actor *user.User, id uuid.UUID, content []byte, contentType string) (*Recipe, error) {
	if len(content) == 0 {
		return nil, ErrEmptyImageFile
	}

	existing, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	imageURL, err := s.images.UploadImage(ctx, content, contentType)
	if err != nil {
		return nil, err
	}

	if err := s.recipes.SetImageURL(ctx, id, imageURL); err != nil {
		return nil, err
	}

	if existing.ImageURL != nil && *existing.ImageURL != imageURL {
		if err := s.images.DeleteImage(ctx, *existing.ImageURL); err != nil {
			s.logger.Warn("failed to delete replaced image", "recipe_id", id, "error", err.Error())
		}
	}

	existing.ImageURL = &imageURL
	s.logger.Info("recipe image attached", "recipe_id", id, "actor_id", actor.ID)
	return existing, nil
}

// Delete removes a recipe and its image. Only the author, or a moderator or
// above, may delete.
func (s *Service) Delete(ctx context.Context, actor *user.User, id uuid.UUID) error {
	existing, err := s.authorize(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.recipes.Delete(ctx, id); err != nil {
		return err
	}

	if existing.ImageURL != nil {
		if err := s.images.DeleteImage(ctx, *existing.ImageURL); err != nil {
			s.logger.Warn("failed to delete recipe image", "recipe_id", id, "error", err.Error())
		}
	}

	s.logger.Info("recipe deleted", "recipe_id", id, "actor_id", actor.ID)
	return nil
}

// authorize loads the recipe and checks the actor may modify it.
func (s *Service) authorize(ctx context.Context, actor *user.User, id uuid.UUID) (*Recipe, error) {
	existing, err := s.recipes.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing.AuthorID != actor.ID && !actor.Role.AtLeast(user.RoleModerator) {
		return nil, ErrAccessDenied
	}

	return existing, nil
}

// normalizeIngredients trims and lowercases names, drops empty lines and
// collapses duplicate names onto the first occurrence.
func normalizeIngredients(lines []IngredientLine) []IngredientLine {
	seen := make(map[string]bool, len(lines))
	result := make([]IngredientLine, 0, len(lines))

	for _, line := range lines {
		name := strings.ToLower(strings.TrimSpace(line.Name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		quantity := strings.TrimSpace(line.Quantity)
		if quantity == "" {
			quantity = "to taste"
		}

		result = append(result, IngredientLine{Name: name, Quantity: quantity})
	}

	return result
}
