package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/tastebook/tastebook/internal/database"
)

// Repository handles user persistence. Lookups used for authentication and
// authorization filter on is_active; FindAnyByIdentifier is the one
// exception, used when resolving a target for reactivation.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user with the default role.
func (r *Repository) Create(ctx context.Context, u *User) (*User, error) {
	dbUser := &database.User{
		Username:       u.Username,
		Email:          u.Email,
		HashedPassword: u.HashedPassword,
		Role:           string(RoleUser),
		IsActive:       true,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if strings.Contains(err.Error(), "users_username_key") {
			return nil, ErrDuplicateUsername
		}
		if strings.Contains(err.Error(), "users_email_key") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return fromDBUser(dbUser), nil
}

// FindByIdentifier resolves an active user by exact username or email match.
func (r *Repository) FindByIdentifier(ctx context.Context, identifier string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("(username = ? OR email = ?)", identifier, identifier).
		Where("is_active = ?", true).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by identifier: %w", err)
	}

	return fromDBUser(dbUser), nil
}

// FindAnyByIdentifier resolves a user by username or email regardless of
// is_active. Only the reactivation path may use this.
func (r *Repository) FindAnyByIdentifier(ctx context.Context, identifier string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("(username = ? OR email = ?)", identifier, identifier).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by identifier: %w", err)
	}

	return fromDBUser(dbUser), nil
}

// FindActiveByID resolves an active user by ID.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("user_id = ?", id).
		Where("is_active = ?", true).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}

	return fromDBUser(dbUser), nil
}

// FindByUsername retrieves a user by username regardless of status.
// Used for registration duplicate checks.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findByColumn(ctx, "username", username)
}

// FindByEmail retrieves a user by email regardless of status.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findByColumn(ctx, "email", email)
}

func (r *Repository) findByColumn(ctx context.Context, column, value string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("? = ?", bun.Ident(column), value).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by %s: %w", column, err)
	}

	return fromDBUser(dbUser), nil
}

// UpdateRefreshToken overwrites the stored refresh token. A nil token
// revokes the session.
func (r *Repository) UpdateRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	return r.update(ctx, id, func(q *bun.UpdateQuery) {
		q.Set("refresh_token = ?", token)
	})
}

// UpdatePassword replaces the stored password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.update(ctx, id, func(q *bun.UpdateQuery) {
		q.Set("hashed_password = ?", hash)
	})
}

// MarkVerified flips the verification flag on. It is never flipped back.
func (r *Repository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, func(q *bun.UpdateQuery) {
		q.Set("is_verified = ?", true)
	})
}

// UpdateRole changes the user's role.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role Role) error {
	return r.update(ctx, id, func(q *bun.UpdateQuery) {
		q.Set("role = ?", string(role))
	})
}

// Deactivate soft-deletes the user and revokes any live session.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, func(q *bun.UpdateQuery) {
		q.Set("is_active = ?", false).Set("refresh_token = ?", nil)
	})
}

// Reactivate restores a soft-deleted user.
func (r *Repository) Reactivate(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, func(q *bun.UpdateQuery) {
		q.Set("is_active = ?", true)
	})
}

// ProfileUpdate carries the optional profile fields a user may change.
type ProfileUpdate struct {
	FirstName *string    `json:"first_name"`
	LastName  *string    `json:"last_name"`
	Birthday  *time.Time `json:"birthday"`
	Phone     *string    `json:"phone"`
	About     *string    `json:"about"`
}

// IsEmpty reports whether no fields were provided.
func (p ProfileUpdate) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Birthday == nil &&
		p.Phone == nil && p.About == nil
}

// UpdateProfile applies the provided profile fields and returns the updated user.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*User, error) {
	dbUser := new(database.User)
	q := r.db.NewUpdate().
		Model(dbUser).
		Where("user_id = ?", id).
		Where("is_active = ?", true).
		Set("updated_at = NOW()").
		Returning("*")

	if update.FirstName != nil {
		q.Set("first_name = ?", update.FirstName)
	}
	if update.LastName != nil {
		q.Set("last_name = ?", update.LastName)
	}
	if update.Birthday != nil {
		q.Set("birthday = ?", update.Birthday)
	}
	if update.Phone != nil {
		q.Set("phone = ?", update.Phone)
	}
	if update.About != nil {
		q.Set("about = ?", update.About)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return fromDBUser(dbUser), nil
}

func (r *Repository) update(ctx context.Context, id uuid.UUID, apply func(*bun.UpdateQuery)) error {
	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Where("user_id = ?", id).
		Set("updated_at = NOW()")
	apply(q)

	result, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
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

// fromDBUser converts the persistence model to the domain model.
func fromDBUser(dbu *database.User) *User {
	return &User{
		ID:             dbu.ID,
		Username:       dbu.Username,
		Email:          dbu.Email,
		HashedPassword: dbu.HashedPassword,
		RefreshToken:   dbu.RefreshToken,
		Role:           Role(dbu.Role),
		IsActive:       dbu.IsActive,
		IsVerified:     dbu.IsVerified,
		FirstName:      dbu.FirstName,
		LastName:       dbu.LastName,
		Birthday:       dbu.Birthday,
		Phone:          dbu.Phone,
		About:          dbu.About,
		CreatedAt:      dbu.CreatedAt,
		UpdatedAt:      dbu.UpdatedAt,
	}
}
