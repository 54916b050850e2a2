package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

// TokenKind is the purpose tag embedded in every token. A token minted for
// one purpose is rejected by consumers expecting any other, so a password
// reset token can never be replayed as an access or refresh token.
type TokenKind string

const (
	TokenAccess            TokenKind = "access_token"
	TokenRefresh           TokenKind = "refresh_token"
	TokenEmailVerification TokenKind = "email_verification"
	TokenPasswordReset     TokenKind = "password_reset"
)

// Single-use token lifetimes are policy, not configuration.
const (
	verificationTokenTTL  = 24 * time.Hour
	passwordResetTokenTTL = 30 * time.Minute
)

// AccessClaims is the decoded form of an access token. Only access tokens
// carry capability scopes.
type AccessClaims struct {
	UserID    uuid.UUID
	Scopes    []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasScope reports whether the capability scope was granted.
func (c *AccessClaims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// RefreshClaims is the decoded form of a refresh token.
type RefreshClaims struct {
	UserID    uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// VerificationClaims is the decoded form of an email verification token.
type VerificationClaims struct {
	UserID    uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ResetClaims is the decoded form of a password reset token.
type ResetClaims struct {
	UserID    uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenMaker encodes and decodes PASETO v4.local tokens. The key and
// lifetimes are fixed at construction; rotating the key invalidates every
// outstanding token.
type TokenMaker struct {
	symmetricKey paseto.V4SymmetricKey
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

func NewTokenMaker(secretKey []byte, accessTTL, refreshTTL time.Duration) (*TokenMaker, error) {
	if len(secretKey) != 32 {
		return nil, fmt.Errorf("secret key must be exactly 32 bytes, got %d", len(secretKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(secretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &TokenMaker{
		symmetricKey: key,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
	}, nil
}

// AccessTokenTTL returns the configured access token lifetime.
func (m *TokenMaker) AccessTokenTTL() time.Duration { return m.accessTTL }

// RefreshTokenTTL returns the configured refresh token lifetime.
func (m *TokenMaker) RefreshTokenTTL() time.Duration { return m.refreshTTL }

// CreateAccessToken mints an access token carrying the granted scopes.
func (m *TokenMaker) CreateAccessToken(userID uuid.UUID, scopes []string) (string, error) {
	token := m.newToken(userID, TokenAccess, m.accessTTL)
	if err := token.Set("scopes", scopes); err != nil {
		return "", fmt.Errorf("failed to set scopes claim: %w", err)
	}
	return token.V4Encrypt(m.symmetricKey, nil), nil
}

// CreateRefreshToken mints a long-lived refresh token.
func (m *TokenMaker) CreateRefreshToken(userID uuid.UUID) (string, error) {
	return m.newToken(userID, TokenRefresh, m.refreshTTL).V4Encrypt(m.symmetricKey, nil), nil
}

// CreateVerificationToken mints a single-purpose email verification token.
func (m *TokenMaker) CreateVerificationToken(userID uuid.UUID) (string, error) {
	return m.newToken(userID, TokenEmailVerification, verificationTokenTTL).V4Encrypt(m.symmetricKey, nil), nil
}

// CreatePasswordResetToken mints a single-purpose password reset token.
func (m *TokenMaker) CreatePasswordResetToken(userID uuid.UUID) (string, error) {
	return m.newToken(userID, TokenPasswordReset, passwordResetTokenTTL).V4Encrypt(m.symmetricKey, nil), nil
}

func (m *TokenMaker) newToken(userID uuid.UUID, kind TokenKind, ttl time.Duration) paseto.Token {
	now := time.Now()
	token := paseto.NewToken()
	token.SetSubject(userID.String())
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(ttl))
	token.SetString("scope", string(kind))
	return token
}

// ParseAccessToken decodes and verifies an access token.
func (m *TokenMaker) ParseAccessToken(tokenStr string) (*AccessClaims, error) {
	token, userID, issuedAt, expiresAt, err := m.parse(tokenStr, TokenAccess)
	if err != nil {
		return nil, err
	}

	var scopes []string
	if err := token.Get("scopes", &scopes); err != nil {
		return nil, ErrInvalidToken
	}

	return &AccessClaims{
		UserID:    userID,
		Scopes:    scopes,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// ParseRefreshToken decodes and verifies a refresh token.
func (m *TokenMaker) ParseRefreshToken(tokenStr string) (*RefreshClaims, error) {
	_, userID, issuedAt, expiresAt, err := m.parse(tokenStr, TokenRefresh)
	if err != nil {
		return nil, err
	}
	return &RefreshClaims{UserID: userID, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// ParseVerificationToken decodes and verifies an email verification token.
func (m *TokenMaker) ParseVerificationToken(tokenStr string) (*VerificationClaims, error) {
	_, userID, issuedAt, expiresAt, err := m.parse(tokenStr, TokenEmailVerification)
	if err != nil {
		return nil, err
	}
	return &VerificationClaims{UserID: userID, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// ParsePasswordResetToken decodes and verifies a password reset token.
func (m *TokenMaker) ParsePasswordResetToken(tokenStr string) (*ResetClaims, error) {
	_, userID, issuedAt, expiresAt, err := m.parse(tokenStr, TokenPasswordReset)
	if err != nil {
		return nil, err
	}
	return &ResetClaims{UserID: userID, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// parse verifies signature and expiry, then checks the purpose tag before
// trusting any other claim.
func (m *TokenMaker) parse(tokenStr string, want TokenKind) (*paseto.Token, uuid.UUID, time.Time, time.Time, error) {
	parser := paseto.NewParser()

	token, err := parser.ParseV4Local(m.symmetricKey, tokenStr, nil)
	if err != nil {
		// The default parser rules reject expired tokens; distinguish
		// expired from malformed/tampered.
		if errors.Is(err, &paseto.RuleError{}) {
			return nil, uuid.Nil, time.Time{}, time.Time{}, ErrExpiredToken
		}
		return nil, uuid.Nil, time.Time{}, time.Time{}, ErrInvalidToken
	}

	scope, err := token.GetString("scope")
	if err != nil {
		return nil, uuid.Nil, time.Time{}, time.Time{}, ErrInvalidToken
	}
	if TokenKind(scope) != want {
		return nil, uuid.Nil, time.Time{}, time.Time{}, ErrWrongTokenScope
	}

	subject, err := token.GetSubject()
	if err != nil {
		return nil, uuid.Nil, time.Time{}, time.Time{}, ErrInvalidToken
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, uuid.Nil, time.Time{}, time.Time{}, ErrInvalidToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, uuid.Nil, time.Time{}, time.Time{}, ErrInvalidToken
	}
	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, uuid.Nil, time.Time{}, time.Time{}, ErrInvalidToken
	}

	return token, userID, issuedAt, expiresAt, nil
}
