package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tastebook/tastebook/internal/auth"
	"github.com/tastebook/tastebook/internal/config"
	"github.com/tastebook/tastebook/internal/database"
	"github.com/tastebook/tastebook/internal/email"
	httpServer "github.com/tastebook/tastebook/internal/http"
	"github.com/tastebook/tastebook/internal/logging"
	"github.com/tastebook/tastebook/internal/ratelimit"
	"github.com/tastebook/tastebook/internal/recipe"
	"github.com/tastebook/tastebook/internal/storage"
	"github.com/tastebook/tastebook/internal/user"
)

// @title           Tastebook API
// @version         1.0
// @description     Recipe sharing backend with role-based access control and email verification.

// @contact.name   API Support
// @contact.email  support@tastebook.dev

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

// Auth endpoints allow 10 attempts per IP per minute.
const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db.DB, cfg.Database.MigrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("database migrations applied")

	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	imageStore, err := storage.NewImageStore(context.Background(), cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize image storage: %w", err)
	}
	if err := imageStore.HealthCheck(context.Background()); err != nil {
		return fmt.Errorf("failed to reach image storage: %w", err)
	}

	tokenMaker, err := auth.NewTokenMaker(
		cfg.Auth.SecretKey,
		cfg.Auth.AccessTokenDuration,
		cfg.Auth.RefreshTokenDuration,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize token maker: %w", err)
	}

	emailService := email.NewService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FrontendURL,
	)

	rateLimiter := ratelimit.NewLimiter(redisClient, authRateLimit, authRateWindow)

	userRepo := user.NewRepository(db)
	recipeRepo := recipe.NewRepository(db)

	authService := auth.NewService(userRepo, tokenMaker, emailService, logger, cfg.Auth.RoleScopes)
	userService := user.NewService(userRepo, logger)
	recipeService := recipe.NewService(recipeRepo, imageStore, logger)

	authMiddleware := auth.NewMiddleware(tokenMaker, userRepo)

	currentUser := func(r *http.Request) (*user.User, bool) {
		return auth.UserFromContext(r.Context())
	}

	handlers := httpServer.Handlers{
		Auth:   auth.NewHandler(authService, rateLimiter, logger, !cfg.Server.IsDevelopment()),
		User:   user.NewHandler(userService, currentUser),
		Recipe: recipe.NewHandler(recipeService, currentUser),
	}

	router := httpServer.NewRouter(cfg, handlers, authMiddleware, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
