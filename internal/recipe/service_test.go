package recipe

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastebook/tastebook/internal/logging"
	"github.com/tastebook/tastebook/internal/user"
)

type mockRecipeStore struct {
	createFn       func(ctx context.Context, rec *Recipe) (*Recipe, error)
	getFn          func(ctx context.Context, id uuid.UUID) (*Recipe, error)
	listByAuthorFn func(ctx context.Context, authorID uuid.UUID) ([]*Recipe, error)
	updateFn       func(ctx context.Context, rec *Recipe) (*Recipe, error)
	setImageURLFn  func(ctx context.Context, id uuid.UUID, imageURL string) error
	deleteFn       func(ctx context.Context, id uuid.UUID) error
}

func (m *mockRecipeStore) Create(ctx context.Context, rec *Recipe) (*Recipe, error) {
	return m.createFn(ctx, rec)
}

func (m *mockRecipeStore) Get(ctx context.Context, id uuid.UUID) (*Recipe, error) {
	if m.getFn == nil {
		return nil, ErrNotFound
	}
	return m.getFn(ctx, id)
}

func (m *mockRecipeStore) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]*Recipe, error) {
	return m.listByAuthorFn(ctx, authorID)
}

func (m *mockRecipeStore) Update(ctx context.Context, rec *Recipe) (*Recipe, error) {
	return m.updateFn(ctx, rec)
}

func (m *mockRecipeStore) SetImageURL(ctx context.Context, id uuid.UUID, imageURL string) error {
	if m.setImageURLFn == nil {
		return nil
	}
	return m.setImageURLFn(ctx, id, imageURL)
}

func (m *mockRecipeStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn == nil {
		return nil
	}
	return m.deleteFn(ctx, id)
}

type mockImageStore struct {
	uploadFn func(ctx context.Context, content []byte, contentType string) (string, error)
	deleted  []string
}

func (m *mockImageStore) UploadImage(ctx context.Context, content []byte, contentType string) (string, error) {
	if m.uploadFn == nil {
		return "https://images.test/uploaded.jpg", nil
	}
	return m.uploadFn(ctx, content, contentType)
}

func (m *mockImageStore) DeleteImage(ctx context.Context, imageURL string) error {
	m.deleted = append(m.deleted, imageURL)
	return nil
}

func newTestService(store *mockRecipeStore, images *mockImageStore) *Service {
	if images == nil {
		images = &mockImageStore{}
	}
	return NewService(store, images, logging.NewLogger(true))
}

func actor(role user.Role) *user.User {
	return &user.User{ID: uuid.New(), Role: role, IsActive: true, IsVerified: true}
}

func TestNormalizeIngredients(t *testing.T) {
	got := normalizeIngredients([]IngredientLine{
		{Name: "  Flour ", Quantity: "200g"},
		{Name: "flour", Quantity: "ignored duplicate"},
		{Name: "SALT", Quantity: "  "},
		{Name: "   ", Quantity: "1 cup"},
		{Name: "Olive Oil", Quantity: "2 tbsp"},
	})

	assert.Equal(t, []IngredientLine{
		{Name: "flour", Quantity: "200g"},
		{Name: "salt", Quantity: "to taste"},
		{Name: "olive oil", Quantity: "2 tbsp"},
	}, got)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(&mockRecipeStore{}, nil)
	author := actor(user.RoleUser)

	_, err := svc.Create(context.Background(), author, CreateParams{
		Title:       "   ",
		Ingredients: []IngredientLine{{Name: "flour"}},
	})
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = svc.Create(context.Background(), author, CreateParams{Title: "Bread"})
	assert.ErrorIs(t, err, ErrNoIngredients)

	// Lines that normalize away do not count.
	_, err = svc.Create(context.Background(), author, CreateParams{
		Title:       "Bread",
		Ingredients: []IngredientLine{{Name: "   "}},
	})
	assert.ErrorIs(t, err, ErrNoIngredients)
}

func TestCreateStoresNormalizedRecipe(t *testing.T) {
	author := actor(user.RoleUser)

	var stored *Recipe
	store := &mockRecipeStore{
		createFn: func(ctx context.Context, rec *Recipe) (*Recipe, error) {
			rec.ID = uuid.New()
			stored = rec
			return rec, nil
		},
	}
	svc := newTestService(store, nil)

	created, err := svc.Create(context.Background(), author, CreateParams{
		Title: "  Sourdough Bread ",
		Ingredients: []IngredientLine{
			{Name: "Flour", Quantity: "500g"},
			{Name: "Water", Quantity: "350ml"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Equal(t, "Sourdough Bread", created.Title)
	assert.Equal(t, author.ID, stored.AuthorID)
	assert.Equal(t, []IngredientLine{
		{Name: "flour", Quantity: "500g"},
		{Name: "water", Quantity: "350ml"},
	}, stored.Ingredients)
}

func TestUpdateAuthorization(t *testing.T) {
	author := actor(user.RoleUser)
	other := actor(user.RoleUser)
	moderator := actor(user.RoleModerator)

	existing := &Recipe{ID: uuid.New(), Title: "Old", AuthorID: author.ID}

	store := &mockRecipeStore{
		getFn: func(ctx context.Context, id uuid.UUID) (*Recipe, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, rec *Recipe) (*Recipe, error) {
			return rec, nil
		},
	}
	svc := newTestService(store, nil)

	params := CreateParams{
		Title:       "New",
		Ingredients: []IngredientLine{{Name: "flour", Quantity: "1 cup"}},
	}

	_, err := svc.Update(context.Background(), other, existing.ID, params)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.Update(context.Background(), author, existing.ID, params)
	assert.NoError(t, err)

	_, err = svc.Update(context.Background(), moderator, existing.ID, params)
	assert.NoError(t, err)
}

func TestUpdateMissingRecipe(t *testing.T) {
	svc := newTestService(&mockRecipeStore{}, nil)

	_, err := svc.Update(context.Background(), actor(user.RoleUser), uuid.New(), CreateParams{
		Title:       "New",
		Ingredients: []IngredientLine{{Name: "flour", Quantity: "1 cup"}},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttachImageReplacesOldImage(t *testing.T) {
	author := actor(user.RoleUser)
	oldURL := "https://images.test/old.jpg"
	existing := &Recipe{ID: uuid.New(), Title: "Bread", AuthorID: author.ID, ImageURL: &oldURL}

	store := &mockRecipeStore{
		getFn: func(ctx context.Context, id uuid.UUID) (*Recipe, error) {
			return existing, nil
		},
	}
	images := &mockImageStore{}
	svc := newTestService(store, images)

	updated, err := svc.AttachImage(context.Background(), author, existing.ID, []byte("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)

	require.NotNil(t, updated.ImageURL)
	assert.Equal(t, "https://images.test/uploaded.jpg", *updated.ImageURL)
	assert.Equal(t, []string{oldURL}, images.deleted)
}

func TestAttachImageRejectsEmptyFile(t *testing.T) {
	svc := newTestService(&mockRecipeStore{}, nil)

	_, err := svc.AttachImage(context.Background(), actor(user.RoleUser), uuid.New(), nil, "image/jpeg")
	assert.ErrorIs(t, err, ErrEmptyImageFile)
}

func TestDeleteRemovesImage(t *testing.T) {
	author := actor(user.RoleUser)
	imageURL := "https://images.test/bread.jpg"
	existing := &Recipe{ID: uuid.New(), Title: "Bread", AuthorID: author.ID, ImageURL: &imageURL}

	deleted := false
	store := &mockRecipeStore{
		getFn: func(ctx context.Context, id uuid.UUID) (*Recipe, error) {
			return existing, nil
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	images := &mockImageStore{}
	svc := newTestService(store, images)

	require.NoError(t, svc.Delete(context.Background(), author, existing.ID))
	assert.True(t, deleted)
	assert.Equal(t, []string{imageURL}, images.deleted)
}

func TestDeleteAuthorization(t *testing.T) {
	author := actor(user.RoleUser)
	other := actor(user.RoleUser)
	existing := &Recipe{ID: uuid.New(), Title: "Bread", AuthorID: author.ID}

	store := &mockRecipeStore{
		getFn: func(ctx context.Context, id uuid.UUID) (*Recipe, error) {
			return existing, nil
		},
	}
	svc := newTestService(store, nil)

	err := svc.Delete(context.Background(), other, existing.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}
