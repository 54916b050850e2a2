package auth

import "errors"

var (
	// Token codec failures.
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token has expired")
	ErrWrongTokenScope = errors.New("token presented for the wrong purpose")

	// Session failures.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionRevoked     = errors.New("refresh token has been revoked")

	// Registration validation.
	ErrUsernameRequired   = errors.New("username is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrInvalidEmailFormat = errors.New("invalid email format")

	// Verification and reset flows.
	ErrAlreadyVerified          = errors.New("email already verified")
	ErrInvalidVerificationToken = errors.New("invalid verification token")
	ErrInvalidResetToken        = errors.New("invalid password reset token")
)
