package recipe

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tastebook/tastebook/internal/httputil"
	"github.com/tastebook/tastebook/internal/logging"
	"github.com/tastebook/tastebook/internal/storage"
	"github.com/tastebook/tastebook/internal/user"
)

// maxImageSize caps recipe image uploads at 5 MiB.
const maxImageSize = 5 << 20

// Handler contains HTTP handlers for the recipe endpoints.
type Handler struct {
	service     *Service
	currentUser func(r *http.Request) (*user.User, bool)
}

func NewHandler(service *Service, currentUser func(r *http.Request) (*user.User, bool)) *Handler {
	return &Handler{service: service, currentUser: currentUser}
}

// Create creates a recipe
// @Summary      Create a recipe
// @Tags         recipes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateParams true "Recipe fields"
// @Success      201 {object} Recipe
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      403 {object} httputil.ErrorResponse "Email not verified"
// @Router       /recipes [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var params CreateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), actor, params)
	if err != nil {
		h.respondError(w, r, err, "failed to create recipe")
		return
	}

	httputil.RespondJSON(w, created, http.StatusCreated)
}

// Get returns a recipe by ID
// @Summary      Get a recipe
// @Tags         recipes
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Recipe ID"
// @Success      200 {object} Recipe
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /recipes/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err, "failed to get recipe")
		return
	}

	httputil.RespondJSON(w, rec, http.StatusOK)
}

// List returns the caller's recipes
// @Summary      List own recipes
// @Tags         recipes
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Recipe
// @Router       /recipes [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	recipes, err := h.service.ListByAuthor(r.Context(), actor.ID)
	if err != nil {
		h.respondError(w, r, err, "failed to list recipes")
		return
	}

	httputil.RespondJSON(w, recipes, http.StatusOK)
}

// Update replaces a recipe's content
// @Summary      Update a recipe
// @Tags         recipes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Recipe ID"
// @Param        request body CreateParams true "Recipe fields"
// @Success      200 {object} Recipe
// @Failure      403 {object} httputil.ErrorResponse "Not the author"
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /recipes/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}

	var params CreateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	updated, err := h.service.Update(r.Context(), actor, id, params)
	if err != nil {
		h.respondError(w, r, err, "failed to update recipe")
		return
	}

	httputil.RespondJSON(w, updated, http.StatusOK)
}

// UploadImage attaches an image to a recipe
// @Summary      Upload a recipe image
// @Tags         recipes
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Recipe ID"
// @Param        image formData file true "Image file (jpeg, png or webp, max 5 MiB)"
// @Success      200 {object} Recipe
// @Failure      400 {object} httputil.ErrorResponse "Bad or oversized image"
// @Failure      403 {object} httputil.ErrorResponse "Not the author"
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /recipes/{id}/image [post]
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		httputil.RespondErrorWithCode(w, "image too large or malformed form", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		httputil.RespondErrorWithCode(w, "image file is required", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		httputil.RespondErrorWithCode(w, "failed to read image", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	updated, err := h.service.AttachImage(r.Context(), actor, id, content, header.Header.Get("Content-Type"))
	if err != nil {
		h.respondError(w, r, err, "failed to upload image")
		return
	}

	httputil.RespondJSON(w, updated, http.StatusOK)
}

// Delete removes a recipe
// @Summary      Delete a recipe
// @Tags         recipes
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Recipe ID"
// @Success      200 {object} map[string]string
// @Failure      403 {object} httputil.ErrorResponse "Not the author"
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /recipes/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	id, ok := h.recipeID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.respondError(w, r, err, "failed to delete recipe")
		return
	}

	httputil.RespondJSON(w, map[string]string{"message": "recipe deleted"}, http.StatusOK)
}

func (h *Handler) recipeID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid recipe id", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	logger := logging.GetLoggerFromContext(r.Context())

	switch {
	case errors.Is(err, ErrNotFound):
		httputil.RespondErrorWithCode(w, "recipe not found", httputil.CodeNotFound, http.StatusNotFound)
	case errors.Is(err, ErrAccessDenied):
		logger.Warn("recipe operation denied", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeAccessDenied, http.StatusForbidden)
	case errors.Is(err, ErrTitleRequired), errors.Is(err, ErrNoIngredients),
		errors.Is(err, ErrEmptyImageFile), errors.Is(err, storage.ErrUnsupportedImageType):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidRequestBody, http.StatusBadRequest)
	default:
		logger.Error(fallback, "error", err.Error())
		httputil.RespondErrorWithCode(w, fallback, httputil.CodeInternalError, http.StatusInternalServerError)
	}
}
