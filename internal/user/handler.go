package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tastebook/tastebook/internal/httputil"
	"github.com/tastebook/tastebook/internal/logging"
)

// Handler contains HTTP handlers for profile and moderation endpoints.
type Handler struct {
	service     *Service
	currentUser func(r *http.Request) (*User, bool)
}

// NewHandler wires the service together with the auth middleware's context
// accessor, passed in as a function to keep this package free of an auth
// import.
func NewHandler(service *Service, currentUser func(r *http.Request) (*User, bool)) *Handler {
	return &Handler{service: service, currentUser: currentUser}
}

// PromoteRequest names the user to promote
type PromoteRequest struct {
	Username string `json:"username"` // username or email
}

// ReactivateRequest names the user to reactivate
type ReactivateRequest struct {
	Username string `json:"username"` // username or email
}

// GetProfile returns a user profile
// @Summary      Get a user profile
// @Description  Returns the caller's profile, or another user's via ?username= when the role hierarchy allows it
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        username query string false "Target username (moderator/admin only)"
// @Success      200 {object} User
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /users/me [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), actor, r.URL.Query().Get("username"))
	if err != nil {
		h.respondError(w, r, err, "failed to get profile")
		return
	}

	httputil.RespondJSON(w, profile, http.StatusOK)
}

// UpdateProfile applies a partial profile update
// @Summary      Update a user profile
// @Description  Updates the caller's profile, or another user's via ?username= when the role hierarchy allows it
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        username query string false "Target username (moderator/admin only)"
// @Param        request body ProfileUpdate true "Fields to update"
// @Success      200 {object} User
// @Failure      400 {object} httputil.ErrorResponse "No fields provided"
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /users/me [patch]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var update ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), actor, r.URL.Query().Get("username"), update)
	if err != nil {
		h.respondError(w, r, err, "failed to update profile")
		return
	}

	httputil.RespondJSON(w, profile, http.StatusOK)
}

// DeleteAccount soft-deletes an account
// @Summary      Delete a user account
// @Description  Soft-deletes the caller's account, or another user's via ?username= when the role hierarchy allows it
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        username query string false "Target username (moderator/admin only)"
// @Success      200 {object} map[string]string
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse "Admin self-delete"
// @Router       /users/me [delete]
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), actor, r.URL.Query().Get("username")); err != nil {
		h.respondError(w, r, err, "failed to delete account")
		return
	}

	httputil.RespondJSON(w, map[string]string{"message": "account deleted"}, http.StatusOK)
}

// Promote raises a user to moderator
// @Summary      Promote a user to moderator
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PromoteRequest true "Username or email of the user to promote"
// @Success      200 {object} User
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse "Already a moderator"
// @Router       /admin/promote [post]
func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req PromoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	promoted, err := h.service.PromoteToModerator(r.Context(), actor, req.Username)
	if err != nil {
		h.respondError(w, r, err, "failed to promote user")
		return
	}

	httputil.RespondJSON(w, promoted, http.StatusOK)
}

// Reactivate restores a soft-deleted account
// @Summary      Reactivate a deactivated user
// @Tags         moderation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ReactivateRequest true "Username or email of the user to reactivate"
// @Success      200 {object} User
// @Failure      403 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Failure      409 {object} httputil.ErrorResponse "Already active"
// @Router       /moderation/reactivate [post]
func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req ReactivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	reactivated, err := h.service.ReactivateUser(r.Context(), actor, req.Username)
	if err != nil {
		h.respondError(w, r, err, "failed to reactivate user")
		return
	}

	httputil.RespondJSON(w, reactivated, http.StatusOK)
}

// respondError maps domain sentinels onto HTTP status codes, uniformly
// across the profile and moderation endpoints.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	logger := logging.GetLoggerFromContext(r.Context())

	switch {
	case errors.Is(err, ErrAccessDenied), errors.Is(err, ErrSelfPromotion):
		logger.Warn("operation denied", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeAccessDenied, http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
	case errors.Is(err, ErrAlreadyModerator), errors.Is(err, ErrAlreadyActive), errors.Is(err, ErrSelfDelete):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeConflict, http.StatusConflict)
	case errors.Is(err, ErrNoFields):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidRequestBody, http.StatusBadRequest)
	default:
		logger.Error(fallback, "error", err.Error())
		httputil.RespondErrorWithCode(w, fallback, httputil.CodeInternalError, http.StatusInternalServerError)
	}
}
