package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastebook/tastebook/internal/user"
)

func TestVerifyEmailUpgradesScopes(t *testing.T) {
	u := activeUser(t, "secret-password", user.RoleUser, false)

	store := &mockUserStore{
		findActiveByIDFn: func(ctx context.Context, id uuid.UUID) (*user.User, error) {
			return u, nil
		},
		markVerifiedFn: func(ctx context.Context, id uuid.UUID) error {
			assert.Equal(t, u.ID, id)
			u.IsVerified = true
			return nil
		},
	}
	svc := newTestService(t, store, nil)

	token, err := svc.tokens.CreateVerificationToken(u.ID)
	require.NoError(t, err)

	tokens, err := svc.VerifyEmail(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, u.IsVerified)

	claims, err := svc.tokens.ParseAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.HasScope(ScopeVerified))

	// Verification returns no refresh token; the session is unchanged.
	assert.Empty(t, tokens.RefreshToken)
}

func TestVerifyEmailSecondConsumeIsConflict(t *testing.T) {
	u := activeUser(t, "secret-password", user.RoleUser, false)

	store := &mockUserStore{
		findActiveByIDFn: func(ctx context.Context, id uuid.UUID) (*user.User, error) {
			return u, nil
		},
		markVerifiedFn: func(ctx context.Context, id uuid.UUID) error {
			u.IsVerified = true
			return nil
		},
	}
	svc := newTestService(t, store, nil)

	token, err := svc.tokens.CreateVerificationToken(u.ID)
	require.NoError(t, err)

	_, err = svc.VerifyEmail(context.Background(), token)
	require.NoError(t, err)

	_, err = svc.VerifyEmail(context.Background(), token)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestVerifyEmailRejectsWrongTokenKind(t *testing.T) {
	u := activeUser(t, "secret-password", user.RoleUser, false)
	svc := newTestService(t, &mockUserStore{}, nil)

	access, err := svc.tokens.CreateAccessToken(u.ID, []string{"user"})
	require.NoError(t, err)

	_, err = svc.VerifyEmail(context.Background(), access)
	assert.ErrorIs(t, err, ErrInvalidVerificationToken)
}

func TestRequestEmailVerificationWhenAlreadyVerified(t *testing.T) {
	u := activeUser(t, "secret-password", user.RoleUser, true)
	svc := newTestService(t, &mockUserStore{}, nil)

	err := svc.RequestEmailVerification(context.Background(), u)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestRequestPasswordResetSendsToken(t *testing.T) {
	u := activeUser(t, "secret-password", user.RoleUser, true)

	store := &mockUserStore{
		findByIdentifierFn: func(ctx context.Context, identifier string) (*user.User, error) {
			if u.Matches(identifier) {
				return u, nil
			}
			return nil, user.ErrNotFound
		},
	}
	sender := newMockEmailSender()
	svc := newTestService(t, store, sender)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "alice@example.com"))

	select {
	case token := <-sender.resets:
		claims, err := svc.tokens.ParsePasswordResetToken(token)
		require.NoError(t, err)
		assert.Equal(t, u.ID, claims.UserID)
	case <-time.After(time.Second):
		t.Fatal("reset email was not sent")
	}
}

func TestRequestPasswordResetUnknownIdentifier(t *testing.T) {
	svc := newTestService(t, &mockUserStore{}, nil)

	err := svc.RequestPasswordReset(context.Background(), "nobody")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestResetPasswordRevokesSession(t *testing.T) {
	u := activeUser(t, "old-password", user.RoleUser, true)
	u.RefreshToken = ptr("stored-refresh-token")

	var newHash string
	var revoked bool
	store := &mockUserStore{
		findActiveByIDFn: func(ctx context.Context, id uuid.UUID) (*user.User, error) {
			return u, nil
		},
		updatePasswordFn: func(ctx context.Context, id uuid.UUID, hash string) error {
			newHash = hash
			return nil
		},
		updateRefreshTokenFn: func(ctx context.Context, id uuid.UUID, token *string) error {
			assert.Nil(t, token)
			revoked = true
			return nil
		},
	}
	svc := newTestService(t, store, nil)

	token, err := svc.tokens.CreatePasswordResetToken(u.ID)
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(context.Background(), token, "new-password"))

	assert.True(t, revoked)
	assert.True(t, CheckPassword(newHash, "new-password"))
	assert.False(t, CheckPassword(newHash, "old-password"))
}

func TestResetPasswordValidation(t *testing.T) {
	svc := newTestService(t, &mockUserStore{}, nil)

	err := svc.ResetPassword(context.Background(), "whatever", "")
	assert.ErrorIs(t, err, ErrPasswordRequired)

	err = svc.ResetPassword(context.Background(), "whatever", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestResetPasswordRejectsWrongTokenKind(t *testing.T) {
	u := activeUser(t, "secret-password", user.RoleUser, true)
	svc := newTestService(t, &mockUserStore{}, nil)

	verification, err := svc.tokens.CreateVerificationToken(u.ID)
	require.NoError(t, err)

	err = svc.ResetPassword(context.Background(), verification, "new-password")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func ptr(s string) *string { return &s }
