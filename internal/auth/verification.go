package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/tastebook/tastebook/internal/user"
)

// RequestEmailVerification issues a fresh verification token for an
// unverified user and hands it to mail delivery.
func (s *Service) RequestEmailVerification(ctx context.Context, u *user.User) error {
	if u.IsVerified {
		return ErrAlreadyVerified
	}

	token, err := s.tokens.CreateVerificationToken(u.ID)
	if err != nil {
		return fmt.Errorf("failed to create verification token: %w", err)
	}

	s.sendMailAsync(u.Email, token, s.email.SendVerificationEmail)
	return nil
}

// VerifyEmail consumes a verification token, marks the subject verified and
// returns a fresh access token carrying the upgraded scope set. The flag is
// monotonic: consuming the same token a second time is a conflict, never a
// silent success.
func (s *Service) VerifyEmail(ctx context.Context, tokenStr string) (*Tokens, error) {
	claims, err := s.tokens.ParseVerificationToken(tokenStr)
	if err != nil {
		return nil, ErrInvalidVerificationToken
	}

	u, err := s.users.FindActiveByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if u.IsVerified {
		return nil, ErrAlreadyVerified
	}

	if err := s.users.MarkVerified(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("failed to mark user verified: %w", err)
	}
	u.IsVerified = true

	accessToken, err := s.tokens.CreateAccessToken(u.ID, s.GrantedScopes(u))
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	return &Tokens{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.AccessTokenTTL().Seconds()),
	}, nil
}

// RequestPasswordReset issues a reset token for an active user matching the
// identifier. ErrNotFound is internal; the route layer presents a uniform
// response either way to prevent enumeration.
func (s *Service) RequestPasswordReset(ctx context.Context, identifier string) error {
	u, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	token, err := s.tokens.CreatePasswordResetToken(u.ID)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	s.sendMailAsync(u.Email, token, s.email.SendPasswordResetEmail)
	return nil
}

// ResetPassword consumes a reset token and stores a newly hashed password.
// The stored refresh token is revoked as well: a password change invalidates
// every outstanding session.
func (s *Service) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}
	if len(newPassword) < 8 {
		return ErrPasswordTooShort
	}

	claims, err := s.tokens.ParsePasswordResetToken(tokenStr)
	if err != nil {
		return ErrInvalidResetToken
	}

	u, err := s.users.FindActiveByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.users.UpdateRefreshToken(ctx, u.ID, nil); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	return nil
}
