package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/taskhub/task-manager/internal/api"
	"github.com/taskhub/task-manager/internal/core/ports"
	"github.com/taskhub/task-manager/internal/core/service"
	"github.com/taskhub/task-manager/internal/infrastructure/config"
	mongodb "github.com/taskhub/task-manager/internal/infrastructure/db/mongo"
	redisdb "github.com/taskhub/task-manager/internal/infrastructure/db/redis"
	"github.com/taskhub/task-manager/internal/infrastructure/mail"
	"github.com/taskhub/task-manager/internal/infrastructure/queue"
	"github.com/taskhub/task-manager/internal/infrastructure/storage"
	"github.com/taskhub/task-manager/pkg/logger"
)

func main() {
	// .env is a development convenience; in deployed environments the
	// variables come from the platform.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}
	defer func() { _ = rdb.Close() }()

	userRepo := mongodb.NewUserRepository(db)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to ensure user indexes")
	}

	var taskRepo ports.TaskRepository = redisdb.NewSnapshotStore(rdb)
	if cfg.Storage == "memory" {
		taskRepo = storage.NewMemorySnapshotStore()
		log.Warn().Msg("using in-memory task storage, tasks will not survive restarts")
	}
	tokenStore := redisdb.NewTokenStore(rdb)
	presenceStore := redisdb.NewPresenceStore(rdb)
	mailer := mail.NewSMTPMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log)

	// --- Core services ---
	notifications := service.NewNotificationService(log)
	dispatcher := queue.NewDispatcher(cfg.Workers, log, notifications)
	dispatcher.Start(ctx)

	taskService := service.NewTaskService(taskRepo, dispatcher, log)
	taskService.Initialize(ctx)

	authService := service.NewAuthService(
		userRepo, tokenStore, mailer, dispatcher,
		cfg.JWTSecret, 24*time.Hour, log,
	)

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		TaskService:   taskService,
		AuthService:   authService,
		Notifications: notifications,
		Presence:      presenceStore,
		Revocations:   tokenStore,
		Mongo:         db,
		Redis:         rdb,
		JWTSecret:     cfg.JWTSecret,
		ResetRedirect: cfg.BaseURL + "/auth/reset-password",
		Logger:        log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("task manager API started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
