package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persistence model backing internal/user.User.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID             uuid.UUID  `bun:"user_id,pk,type:uuid,default:gen_random_uuid()"`
	Username       string     `bun:"username,notnull,unique"`
	Email          string     `bun:"email,notnull,unique"`
	HashedPassword string     `bun:"hashed_password,notnull"`
	RefreshToken   *string    `bun:"refresh_token"`
	Role           string     `bun:"role,notnull,default:'user'"`
	IsActive       bool       `bun:"is_active,notnull,default:true"`
	IsVerified     bool       `bun:"is_verified,notnull,default:false"`
	FirstName      *string    `bun:"first_name"`
	LastName       *string    `bun:"last_name"`
	Birthday       *time.Time `bun:"birthday,type:date"`
	Phone          *string    `bun:"phone"`
	About          *string    `bun:"about"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type Recipe struct {
	bun.BaseModel `bun:"table:recipes,alias:r"`

	ID          uuid.UUID `bun:"recipe_id,pk,type:uuid,default:gen_random_uuid()"`
	Title       string    `bun:"title,notnull"`
	Description *string   `bun:"description"`
	ImageURL    *string   `bun:"image_url"`
	AuthorID    uuid.UUID `bun:"user_id,notnull,type:uuid"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	Ingredients []*RecipeIngredient `bun:"rel:has-many,join:recipe_id=recipe_id"`
}

type Ingredient struct {
	bun.BaseModel `bun:"table:ingredients,alias:i"`

	ID   int64  `bun:"ingredient_id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

type RecipeIngredient struct {
	bun.BaseModel `bun:"table:recipe_ingredients,alias:ri"`

	RecipeID     uuid.UUID `bun:"recipe_id,pk,type:uuid"`
	IngredientID int64     `bun:"ingredient_id,pk"`
	Quantity     string    `bun:"quantity,notnull"`

	Ingredient *Ingredient `bun:"rel:belongs-to,join:ingredient_id=ingredient_id"`
}
