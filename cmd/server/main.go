package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yukikurage/task-tracker/internal/config"
	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/database"
	"github.com/yukikurage/task-tracker/internal/handlers"
	"github.com/yukikurage/task-tracker/internal/logger"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New(logger.Config{Env: cfg.AppEnv, Level: cfg.LogLevel})
	gin.SetMode(cfg.GinMode)

	// Users and roles always live in the relational database
	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db, cfg.BackendMode, log); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeOpts := repository.StoreOptions{
		DB:           db,
		TaskTable:    cfg.DDBTaskTable,
		CommentTable: cfg.DDBCommentTable,
		Logger:       log,
	}
	if cfg.BackendMode == config.BackendCloud {
		client, err := database.ConnectDynamo(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create DynamoDB client")
		}
		if err := database.EnsureDynamoTables(ctx, client, cfg, log); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare DynamoDB tables")
		}
		storeOpts.Dynamo = client
	}

	store, err := repository.NewStore(cfg.BackendMode, storeOpts)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to select task store")
	}
	log.Info().Str("backend", string(store.Mode)).Msg("task store ready")

	// Initialize services
	authService := services.NewAuthService(repository.NewUserRepository(db), repository.NewProfileRepository(db))
	if cfg.AdminUsername != "" {
		created, err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create admin account")
		}
		if created {
			log.Info().Str("username", cfg.AdminUsername).Msg("admin account created")
		}
	}

	var generator services.TaskGenerator
	if cfg.OpenAIAPIKey != "" {
		generator = services.NewAIService(cfg.OpenAIAPIKey)
	}
	taskService := services.NewTaskService(store, generator, log)
	commentService := services.NewCommentService(store, taskService, log)

	sessionStore, err := newSessionStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session store")
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		SessionStore:   sessionStore,
		AuthService:    authService,
		TaskService:    taskService,
		CommentService: commentService,
		Logger:         log,
		BackendMode:    string(cfg.BackendMode),
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	log.Info().Msg("server stopped")
}

// newSessionStore uses Redis when REDIS_HOST is set and signed cookies otherwise.
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	if cfg.RedisHost != "" {
		rs, err := redisStore.NewStore(
			10,    // Redis pool size
			"tcp", // network type
			cfg.RedisHost+":"+cfg.RedisPort,
			cfg.RedisPassword,
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			return nil, err
		}
		store = rs
	} else {
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   constants.SessionMaxAgeSecond,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}
