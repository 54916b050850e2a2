package user

import "errors"

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")

	ErrAccessDenied     = errors.New("access denied")
	ErrSelfPromotion    = errors.New("admin cannot demote themselves to moderator")
	ErrAlreadyModerator = errors.New("user is already a moderator")
	ErrSelfDelete       = errors.New("admin cannot delete their own account")
	ErrAlreadyActive    = errors.New("user is already active")

	ErrNoFields = errors.New("no fields provided for update")
)
