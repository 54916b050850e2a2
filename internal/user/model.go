package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID  `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"` // Never expose the hash in JSON
	RefreshToken   *string    `json:"-"`
	Role           Role       `json:"role"`
	IsActive       bool       `json:"is_active"`
	IsVerified     bool       `json:"is_verified"`
	FirstName      *string    `json:"first_name,omitempty"`
	LastName       *string    `json:"last_name,omitempty"`
	Birthday       *time.Time `json:"birthday,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	About          *string    `json:"about,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Matches reports whether the identifier names this user, by username or email.
// Matching is case-sensitive and exact.
func (u *User) Matches(identifier string) bool {
	return u.Username == identifier || u.Email == identifier
}
