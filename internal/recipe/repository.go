package recipe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/tastebook/tastebook/internal/database"
)

// Repository handles recipe persistence. Ingredient rows are shared across
// recipes; creating a recipe reuses existing ingredient names and only
// inserts the ones it has not seen before.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the recipe and links its ingredient lines inside one
// transaction.
func (r *Repository) Create(ctx context.Context, rec *Recipe) (*Recipe, error) {
	dbRecipe := &database.Recipe{
		Title:       rec.Title,
		Description: rec.Description,
		ImageURL:    rec.ImageURL,
		AuthorID:    rec.AuthorID,
	}

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().
			Model(dbRecipe).
			Returning("*").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert recipe: %w", err)
		}

		return r.linkIngredients(ctx, tx, dbRecipe.ID, rec.Ingredients)
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, dbRecipe.ID)
}

// Get loads a recipe with its ingredient lines.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Recipe, error) {
	dbRecipe := new(database.Recipe)
	err := r.db.NewSelect().
		Model(dbRecipe).
		Relation("Ingredients").
		Relation("Ingredients.Ingredient").
		Where("recipe_id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find recipe: %w", err)
	}

	return fromDBRecipe(dbRecipe), nil
}

// ListByAuthor returns an author's recipes, newest first.
func (r *Repository) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]*Recipe, error) {
	var dbRecipes []*database.Recipe
	err := r.db.NewSelect().
		Model(&dbRecipes).
		Relation("Ingredients").
		Relation("Ingredients.Ingredient").
		Where("user_id = ?", authorID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	recipes := make([]*Recipe, 0, len(dbRecipes))
	for _, dbRecipe := range dbRecipes {
		recipes = append(recipes, fromDBRecipe(dbRecipe))
	}
	return recipes, nil
}

// Update replaces the recipe's fields and relinks its ingredient lines.
func (r *Repository) Update(ctx context.Context, rec *Recipe) (*Recipe, error) {
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewUpdate().
			Model((*database.Recipe)(nil)).
			Where("recipe_id = ?", rec.ID).
			Set("title = ?", rec.Title).
			Set("description = ?", rec.Description).
			Set("updated_at = NOW()").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update recipe: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return ErrNotFound
		}

		if _, err := tx.NewDelete().
			Model((*database.RecipeIngredient)(nil)).
			Where("recipe_id = ?", rec.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear ingredient links: %w", err)
		}

		return r.linkIngredients(ctx, tx, rec.ID, rec.Ingredients)
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, rec.ID)
}

// SetImageURL stores the public image URL on the recipe.
func (r *Repository) SetImageURL(ctx context.Context, id uuid.UUID, imageURL string) error {
	result, err := r.db.NewUpdate().
		Model((*database.Recipe)(nil)).
		Where("recipe_id = ?", id).
		Set("image_url = ?", imageURL).
		Set("updated_at = NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set image url: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes the recipe. Ingredient links go with it via the foreign
// key cascade; shared ingredient rows stay.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Recipe)(nil)).
		Where("recipe_id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// linkIngredients resolves each line's name to an ingredient row, creating
// missing ones, and inserts the join rows.
func (r *Repository) linkIngredients(ctx context.Context, tx bun.Tx, recipeID uuid.UUID, lines []IngredientLine) error {
	if len(lines) == 0 {
		return nil
	}

	names := make([]string, 0, len(lines))
	for _, line := range lines {
		names = append(names, line.Name)
	}

	// ON CONFLICT DO NOTHING keeps concurrent inserts of the same name from
	// failing; the follow-up select picks up whichever row won.
	toInsert := make([]*database.Ingredient, 0, len(names))
	for _, name := range names {
		toInsert = append(toInsert, &database.Ingredient{Name: name})
	}
	if _, err := tx.NewInsert().
		Model(&toInsert).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert ingredients: %w", err)
	}

	var existing []*database.Ingredient
	if err := tx.NewSelect().
		Model(&existing).
		Where("name IN (?)", bun.In(names)).
		Scan(ctx); err != nil {
		return fmt.Errorf("failed to resolve ingredients: %w", err)
	}

	idByName := make(map[string]int64, len(existing))
	for _, ing := range existing {
		idByName[ing.Name] = ing.ID
	}

	links := make([]*database.RecipeIngredient, 0, len(lines))
	for _, line := range lines {
		id, ok := idByName[line.Name]
		if !ok {
			return fmt.Errorf("ingredient %q was not resolved", line.Name)
		}
		links = append(links, &database.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: id,
			Quantity:     line.Quantity,
		})
	}

	if _, err := tx.NewInsert().
		Model(&links).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to link ingredients: %w", err)
	}

	return nil
}

func fromDBRecipe(dbr *database.Recipe) *Recipe {
	lines := make([]IngredientLine, 0, len(dbr.Ingredients))
	for _, link := range dbr.Ingredients {
		line := IngredientLine{Quantity: link.Quantity}
		if link.Ingredient != nil {
			line.Name = link.Ingredient.Name
		}
		lines = append(lines, line)
	}

	return &Recipe{
		ID:          dbr.ID,
		Title:       dbr.Title,
		Description: dbr.Description,
		ImageURL:    dbr.ImageURL,
		AuthorID:    dbr.AuthorID,
		Ingredients: lines,
		CreatedAt:   dbr.CreatedAt,
		UpdatedAt:   dbr.UpdatedAt,
	}
}
