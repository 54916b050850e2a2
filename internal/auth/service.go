package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/google/uuid"

	"github.com/tastebook/tastebook/internal/logging"
	"github.com/tastebook/tastebook/internal/user"
)

// ScopeVerified is granted on top of the role scopes once the user has
// proven ownership of their email address.
const ScopeVerified = "user:verified"

// UserStore is the persistence boundary the auth core depends on. All
// lookups used for authentication resolve active users only.
type UserStore interface {
	Create(ctx context.Context, u *user.User) (*user.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*user.User, error)
	FindActiveByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	FindByUsername(ctx context.Context, username string) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	UpdateRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
}

// EmailSender delivers verification and reset mails. Delivery is
// fire-and-forget; a failure never rolls back the operation that issued
// the token.
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, toEmail, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, token string) error
}

// Service orchestrates registration, login, token refresh, logout and the
// verification/reset flows.
type Service struct {
	users      UserStore
	tokens     *TokenMaker
	email      EmailSender
	logger     *logging.Logger
	roleScopes map[string][]string
}

func NewService(users UserStore, tokens *TokenMaker, email EmailSender, logger *logging.Logger, roleScopes map[string][]string) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		email:      email,
		logger:     logger,
		roleScopes: roleScopes,
	}
}

// Tokens is the credential pair returned by login, and the single access
// token returned by refresh and verification.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RegisterParams carries the signup fields.
type RegisterParams struct {
	Username  string
	Email     string
	Password  string
	FirstName *string
	LastName  *string
}

// Register creates a new account with the default role and sends the
// verification mail out-of-band.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*user.User, error) {
	if params.Username == "" {
		return nil, ErrUsernameRequired
	}
	if params.Email == "" {
		return nil, ErrEmailRequired
	}
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if params.Password == "" {
		return nil, ErrPasswordRequired
	}
	if len(params.Password) < 8 {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.users.FindByUsername(ctx, params.Username); err == nil {
		return nil, user.ErrDuplicateUsername
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if _, err := s.users.FindByEmail(ctx, params.Email); err == nil {
		return nil, user.ErrDuplicateEmail
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	newUser, err := s.users.Create(ctx, &user.User{
		Username:       params.Username,
		Email:          params.Email,
		HashedPassword: hash,
		FirstName:      params.FirstName,
		LastName:       params.LastName,
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.CreateVerificationToken(newUser.ID)
	if err != nil {
		// The account exists either way; a new mail can be requested later.
		s.logger.Warn("failed to create verification token", "user_id", newUser.ID, "error", err.Error())
		return newUser, nil
	}
	s.sendMailAsync(newUser.Email, token, s.email.SendVerificationEmail)

	return newUser, nil
}

// Authenticate verifies a login identifier and password against the store.
// It returns nil without an error when no active user matches or the
// password is wrong, so callers cannot distinguish the two cases.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*user.User, error) {
	u, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !CheckPassword(u.HashedPassword, password) {
		return nil, nil
	}

	return u, nil
}

// GrantedScopes computes the capability scopes for a user from the role
// table, fresh from current state. Verified users additionally get
// user:verified.
func (s *Service) GrantedScopes(u *user.User) []string {
	base := s.roleScopes[string(u.Role)]
	scopes := make([]string, 0, len(base)+1)
	scopes = append(scopes, base...)
	if u.IsVerified {
		scopes = append(scopes, ScopeVerified)
	}
	return scopes
}

// Login authenticates credentials and issues an access and refresh token
// pair. The refresh token is persisted onto the user record before the pair
// is returned; a new login unconditionally replaces any prior session.
func (s *Service) Login(ctx context.Context, identifier, password string) (*Tokens, error) {
	u, err := s.Authenticate(ctx, identifier, password)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.tokens.CreateAccessToken(u.ID, s.GrantedScopes(u))
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	refreshToken, err := s.tokens.CreateRefreshToken(u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	// Persist before returning: a token the store never recorded must not
	// reach the caller.
	if err := s.users.UpdateRefreshToken(ctx, u.ID, &refreshToken); err != nil {
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return &Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.tokens.AccessTokenTTL().Seconds()),
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated; it stays valid until logout or the
// next login. Scopes are recomputed from current role and verification
// state, so a promotion between login and refresh is reflected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindActiveByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	// The stored token must exactly match the presented one; anything else
	// means the session was revoked or replaced by a newer login.
	if u.RefreshToken == nil || *u.RefreshToken != refreshToken {
		return nil, ErrSessionRevoked
	}

	accessToken, err := s.tokens.CreateAccessToken(u.ID, s.GrantedScopes(u))
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	return &Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.tokens.AccessTokenTTL().Seconds()),
	}, nil
}

// Logout revokes the user's stored refresh token. Logging out twice is not
// an error.
func (s *Service) Logout(ctx context.Context, u *user.User) error {
	if err := s.users.UpdateRefreshToken(ctx, u.ID, nil); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// sendMailAsync delivers a mail on a fresh goroutine. The surrounding
// request must not block on, or fail because of, mail transport.
func (s *Service) sendMailAsync(toEmail, token string, send func(context.Context, string, string) error) {
	go func() {
		if err := send(context.Background(), toEmail, token); err != nil {
			s.logger.Warn("failed to send email", "email", toEmail, "error", err.Error())
		}
	}()
}
