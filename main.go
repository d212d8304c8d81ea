package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/audit"
	"github.com/myschoolstory/collab-3d/pkg/auth"
	"github.com/myschoolstory/collab-3d/pkg/config"
	"github.com/myschoolstory/collab-3d/pkg/database"
	"github.com/myschoolstory/collab-3d/pkg/handlers"
	"github.com/myschoolstory/collab-3d/pkg/logging"
	"github.com/myschoolstory/collab-3d/pkg/metrics"
	"github.com/myschoolstory/collab-3d/pkg/middleware"
	"github.com/myschoolstory/collab-3d/pkg/repositories"
	"github.com/myschoolstory/collab-3d/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Log startup configuration
	log.Printf("Configuration loaded:")
	log.Printf("  Environment: %s", cfg.Env)
	log.Printf("  Base URL: %s", cfg.BaseURL)
	log.Printf("  Auth verification: %v", cfg.Auth.EnableVerification)
	log.Printf("  Database: %s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	log.Printf("  Redis: %s:%d", cfg.Redis.Host, cfg.Redis.Port)

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck // stdout sync errors are not actionable

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %s", logging.SanitizeError(err))
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.Database.URL(), cfg.MigrationsPath, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %s", logging.SanitizeError(err))
	}

	// Redis is optional. Without it heartbeats are accepted and dropped,
	// rosters come back empty, and the rest of the service runs normally.
	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	} else {
		logger.Warn("Redis not configured, presence endpoints disabled")
	}

	userRepo := repositories.NewUserRepository()
	workspaceRepo := repositories.NewWorkspaceRepository()
	projectRepo := repositories.NewProjectRepository()
	modelRepo := repositories.NewSceneModelRepository()
	materialRepo := repositories.NewMaterialRepository()
	versionRepo := repositories.NewVersionRepository()

	auditor := audit.NewSecurityAuditor(logger)

	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		return fmt.Errorf("failed to create JWKS client: %w", err)
	}
	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)

	access := services.NewAccessService(workspaceRepo, auditor, logger)
	workspaceService := services.NewWorkspaceService(workspaceRepo, access, logger)
	projectService := services.NewProjectService(projectRepo, modelRepo, access, logger)
	modelService := services.NewSceneModelService(modelRepo, projectRepo, access, logger)
	materialService := services.NewMaterialService(materialRepo, workspaceRepo, access, logger)
	versionService := services.NewVersionService(versionRepo, projectRepo, modelRepo, access, logger)
	userService := services.NewUserService(userRepo, logger)
	presenceTTL := time.Duration(cfg.Presence.TTLSeconds) * time.Second
	presenceService := services.NewPresenceService(redisClient, projectRepo, userRepo, access, presenceTTL, logger)

	// Per-route chain, innermost first: database scope, then the write
	// limiter. Both run after RequireAuth, which the limiter depends on
	// for claims. Throttled writes are rejected before a pool connection
	// is checked out.
	withConnection := database.WithConnection(db, logger)
	scopeMiddleware := handlers.ScopeMiddleware(withConnection)

	var writeLimiter *middleware.WriteLimiter
	if cfg.RateLimit.Enabled {
		limiterConfig := middleware.DefaultWriteLimiterConfig()
		limiterConfig.WritesPerSecond = cfg.RateLimit.WritesPerSecond
		limiterConfig.Burst = cfg.RateLimit.Burst
		writeLimiter = middleware.NewWriteLimiter(limiterConfig, logger)
		defer writeLimiter.Stop()

		throttle := writeLimiter.Middleware()
		scopeMiddleware = func(next http.HandlerFunc) http.HandlerFunc {
			return throttle(http.HandlerFunc(withConnection(next))).ServeHTTP
		}
	}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	usersHandler := handlers.NewUsersHandler(userService, logger)
	usersHandler.RegisterRoutes(mux, authMiddleware, scopeMiddleware)

	workspacesHandler := handlers.NewWorkspacesHandler(workspaceService, auditor, logger)
	workspacesHandler.RegisterRoutes(mux, authMiddleware, scopeMiddleware)

	projectsHandler := handlers.NewProjectsHandler(projectService, auditor, logger)
	projectsHandler.RegisterRoutes(mux, authMiddleware, scopeMiddleware)

	sceneModelsHandler := handlers.NewSceneModelsHandler(modelService, auditor, logger)
	sceneModelsHandler.RegisterRoutes(mux, authMiddleware, scopeMiddleware)

	materialsHandler := handlers.NewMaterialsHandler(materialService, auditor, logger)
	materialsHandler.RegisterRoutes(mux, authMiddleware, scopeMiddleware)

	versionsHandler := handlers.NewVersionsHandler(versionService, logger)
	versionsHandler.RegisterRoutes(mux, authMiddleware, scopeMiddleware)

	presenceHandler := handlers.NewPresenceHandler(presenceService, logger)
	presenceHandler.RegisterRoutes(mux, authMiddleware, scopeMiddleware)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	mux.Handle("GET /metrics", metrics.Handler(registry))

	var handler http.Handler = mux
	handler = middleware.RequestLogger(logger)(handler)
	handler = middleware.RequestMetrics(collector)(handler)

	server := &http.Server{
		Addr:         cfg.BindAddr + ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting collab-3d scene service",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version),
			zap.Bool("tls", cfg.TLSCertPath != ""))

		var err error
		if cfg.TLSCertPath != "" && cfg.TLSKeyPath != "" {
			err = server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-stop:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}
