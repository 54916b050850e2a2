package auth

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tastebook/tastebook/internal/httputil"
	"github.com/tastebook/tastebook/internal/logging"
	"github.com/tastebook/tastebook/internal/ratelimit"
	"github.com/tastebook/tastebook/internal/user"
)

// Handler contains HTTP handlers for the authentication endpoints.
type Handler struct {
	service      *Service
	rateLimiter  *ratelimit.Limiter
	logger       *logging.Logger
	isProduction bool
}

func NewHandler(service *Service, rateLimiter *ratelimit.Limiter, logger *logging.Logger, isProduction bool) *Handler {
	return &Handler{
		service:      service,
		rateLimiter:  rateLimiter,
		logger:       logger,
		isProduction: isProduction,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"` // username or email
	Password string `json:"password"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Username string `json:"username"` // username or email
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// RegisterResponse represents the registration response
type RegisterResponse struct {
	User    UserResponse `json:"user"`
	Message string       `json:"message"`
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create a new account. A verification email will be sent.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration fields"
// @Success      201 {object} RegisterResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      409 {object} httputil.ErrorResponse "Username or email already exists"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allow(w, r, "register") {
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	newUser, err := h.service.Register(r.Context(), RegisterParams{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateUsername), errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("registration failed: duplicate identity", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeConflict, http.StatusConflict)
		case errors.Is(err, ErrUsernameRequired), errors.Is(err, ErrEmailRequired),
			errors.Is(err, ErrPasswordRequired), errors.Is(err, ErrPasswordTooShort),
			errors.Is(err, ErrInvalidEmailFormat):
			logger.Warn("registration failed: validation error", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		default:
			logger.Error("registration failed", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to register user", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user registered", "user_id", newUser.ID, "username", newUser.Username)

	httputil.RespondJSON(w, RegisterResponse{
		User:    UserResponse{ID: newUser.ID, Username: newUser.Username, Email: newUser.Email},
		Message: "Account created. Check your inbox to verify your email.",
	}, http.StatusCreated)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate with username or email and receive an access and refresh token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} Tokens
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allow(w, r, "login") {
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	tokens, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials")
			httputil.RespondErrorWithCode(w, "invalid username or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
			return
		}
		logger.Error("login failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user logged in")

	SetAuthCookies(w, tokens.AccessToken, tokens.RefreshToken, h.isProduction,
		h.service.tokens.AccessTokenTTL(), h.service.tokens.RefreshTokenTTL())
	httputil.RespondJSON(w, tokens, http.StatusOK)
}

// Refresh handles access token refresh
// @Summary      Refresh access token
// @Description  Exchange a valid refresh token for a new access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest false "Refresh token (cookie is used when omitted)"
// @Success      200 {object} Tokens
// @Failure      401 {object} httputil.ErrorResponse "Invalid, expired or revoked refresh token"
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var refreshToken string
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		refreshToken = req.RefreshToken
	}
	if refreshToken == "" {
		if cookieToken, err := GetRefreshTokenFromCookie(r); err == nil {
			refreshToken = cookieToken
		}
	}
	refreshToken = strings.TrimSpace(refreshToken)

	if refreshToken == "" {
		httputil.RespondErrorWithCode(w, "refresh token required", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	tokens, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrExpiredToken) ||
			errors.Is(err, ErrWrongTokenScope) || errors.Is(err, ErrSessionRevoked) {
			logger.Warn("token refresh rejected", "error", err.Error())
			httputil.RespondErrorWithCode(w, "invalid or expired refresh token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			return
		}
		logger.Error("token refresh failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to refresh token", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("access token refreshed")

	SetAuthCookies(w, tokens.AccessToken, "", h.isProduction,
		h.service.tokens.AccessTokenTTL(), 0)
	httputil.RespondJSON(w, tokens, http.StatusOK)
}

// Logout handles user logout
// @Summary      User logout
// @Description  Revoke the current session's refresh token and clear cookies
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]string
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	u, ok := UserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	if err := h.service.Logout(r.Context(), u); err != nil {
		logger.Error("logout failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to logout", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	ClearAuthCookies(w)
	logger.Info("user logged out", "user_id", u.ID)

	httputil.RespondJSON(w, map[string]string{"message": "logged out successfully"}, http.StatusOK)
}

// VerifyEmail handles email verification
// @Summary      Verify email address
// @Description  Consume a verification token and receive an access token with the upgraded scopes
// @Tags         auth
// @Produce      json
// @Param        token query string true "Verification token"
// @Success      200 {object} Tokens
// @Failure      400 {object} httputil.ErrorResponse "Invalid or expired token"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Failure      409 {object} httputil.ErrorResponse "Already verified"
// @Router       /auth/verify-email [get]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token := r.URL.Query().Get("token")
	if token == "" {
		httputil.RespondErrorWithCode(w, "verification token required", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	tokens, err := h.service.VerifyEmail(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidVerificationToken):
			logger.Warn("email verification rejected: invalid token")
			httputil.RespondErrorWithCode(w, "invalid or expired verification token", httputil.CodeInvalidToken, http.StatusBadRequest)
		case errors.Is(err, user.ErrNotFound):
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
		case errors.Is(err, ErrAlreadyVerified):
			httputil.RespondErrorWithCode(w, "email is already verified", httputil.CodeConflict, http.StatusConflict)
		default:
			logger.Error("email verification failed", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to verify email", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("email verified")

	httputil.RespondJSON(w, tokens, http.StatusOK)
}

// ResendVerification handles verification email resend
// @Summary      Resend verification email
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]string
// @Failure      409 {object} httputil.ErrorResponse "Already verified"
// @Router       /auth/resend-verification [post]
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	u, ok := UserFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	if err := h.service.RequestEmailVerification(r.Context(), u); err != nil {
		if errors.Is(err, ErrAlreadyVerified) {
			httputil.RespondErrorWithCode(w, "email is already verified", httputil.CodeConflict, http.StatusConflict)
			return
		}
		logger.Error("failed to resend verification email", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to send verification email", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, map[string]string{"message": "verification email sent"}, http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request a password reset
// @Description  Sends a reset link when the identifier matches an active account. The response is uniform either way.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Username or email"
// @Success      200 {object} map[string]string
// @Router       /auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allow(w, r, "forgot-password") {
		return
	}

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Username); err != nil {
		// Unknown identifiers get the same response as known ones.
		if !errors.Is(err, user.ErrNotFound) {
			logger.Error("password reset request failed", "error", err.Error())
		}
	}

	httputil.RespondJSON(w, map[string]string{
		"message": "if the account exists, a reset link was sent to its email",
	}, http.StatusOK)
}

// ResetPassword handles password reset confirmation
// @Summary      Reset password
// @Description  Consume a reset token and set a new password. All sessions are revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid or expired token"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, ErrInvalidResetToken):
			logger.Warn("password reset rejected: invalid token")
			httputil.RespondErrorWithCode(w, "invalid or expired reset token", httputil.CodeInvalidToken, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordRequired), errors.Is(err, ErrPasswordTooShort):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		case errors.Is(err, user.ErrNotFound):
			httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
		default:
			logger.Error("password reset failed", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to reset password", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("password reset completed")

	httputil.RespondJSON(w, map[string]string{"message": "password updated, please log in again"}, http.StatusOK)
}

// allow applies the per-IP rate limit for the given purpose. Limiter
// backend failures are logged and fail open.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())

	ok, err := h.rateLimiter.Allow(r.Context(), clientIP(r), purpose)
	if err != nil {
		logger.Error("rate limiter unavailable", "error", err.Error())
		return true
	}
	if !ok {
		logger.Warn("rate limit exceeded", "purpose", purpose)
		httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return false
	}
	return true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
