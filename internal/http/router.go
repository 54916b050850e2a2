package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/tastebook/tastebook/internal/auth"
	"github.com/tastebook/tastebook/internal/config"
	"github.com/tastebook/tastebook/internal/httputil"
	"github.com/tastebook/tastebook/internal/logging"
	"github.com/tastebook/tastebook/internal/recipe"
	"github.com/tastebook/tastebook/internal/user"
)

// Handlers collects the handler sets the router mounts.
type Handlers struct {
	Auth   *auth.Handler
	User   *user.Handler
	Recipe *recipe.Handler
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, authMiddleware *auth.Middleware, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders(cfg.Server.IsDevelopment()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	// Auth routes (public; logout and resend-verification need a valid token)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Post("/refresh", h.Auth.Refresh)
		r.Get("/verify-email", h.Auth.VerifyEmail)
		r.Post("/forgot-password", h.Auth.ForgotPassword)
		r.Post("/reset-password", h.Auth.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Post("/logout", h.Auth.Logout)
			r.Post("/resend-verification", h.Auth.ResendVerification)
		})
	})

	// Profile routes
	r.Route("/users", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Get("/me", h.User.GetProfile)
		r.Patch("/me", h.User.UpdateProfile)
		r.Delete("/me", h.User.DeleteAccount)
	})

	// Recipe routes; publishing requires a verified email
	r.Route("/recipes", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Get("/", h.Recipe.List)
		r.Get("/{id}", h.Recipe.Get)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireScopes(auth.ScopeVerified))
			r.Post("/", h.Recipe.Create)
			r.Put("/{id}", h.Recipe.Update)
			r.Post("/{id}/image", h.Recipe.UploadImage)
			r.Delete("/{id}", h.Recipe.Delete)
		})
	})

	// Moderation routes
	r.Route("/moderation", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Use(authMiddleware.RequireScopes("moderator"))
		r.Post("/reactivate", h.User.Reactivate)
	})

	// Admin routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Use(authMiddleware.RequireScopes("admin"))
		r.Post("/promote", h.User.Promote)
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
