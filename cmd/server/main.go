package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"freelance/tracker/internal/config"
	"freelance/tracker/internal/db"
	"freelance/tracker/internal/dedup"
	"freelance/tracker/internal/events"
	"freelance/tracker/internal/handler"
	"freelance/tracker/internal/logger"
	"freelance/tracker/internal/repository"
	"freelance/tracker/internal/router"
	"freelance/tracker/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zapLogger.Sync()

	database, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		zapLogger.Fatal("open database", zap.Error(err))
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.DBDriver); err != nil {
		zapLogger.Fatal("run migrations", zap.Error(err))
	}

	checks := map[string]router.ReadinessCheck{
		"db": database.PingContext,
	}

	var publisher events.Publisher = events.NewLogPublisher(zapLogger)
	if cfg.MQURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.MQURL, zapLogger)
		if err != nil {
			zapLogger.Fatal("init event publisher", zap.Error(err))
		}
		publisher = amqpPublisher
		checks["mq"] = func(context.Context) error {
			if !amqpPublisher.IsConnected() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	defer publisher.Close()

	var deduper dedup.Deduper = dedup.NewMemoryDeduper(24 * time.Hour)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		deduper = dedup.NewRedisDeduper(rdb, 24*time.Hour, zapLogger)
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}

	userRepo := repository.NewUserRepository(database)
	projectRepo := repository.NewProjectRepository(database)
	milestoneRepo := repository.NewMilestoneRepository(database)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL, zapLogger)
	projectService := service.NewProjectService(projectRepo, milestoneRepo, publisher, zapLogger)

	sweeper := service.NewDeadlineSweeper(projectRepo, deduper, publisher, zapLogger, cfg.ReminderDays)
	if err := sweeper.Start(cfg.SweepSchedule); err != nil {
		zapLogger.Fatal("start deadline sweeper", zap.Error(err))
	}

	authHandler := handler.NewAuthHandler(authService)
	projectHandler := handler.NewProjectHandler(projectService)

	engine := router.New(authService, authHandler, projectHandler, router.Options{
		CORSOrigins: cfg.CORSOrigins,
		Logger:      zapLogger,
		Checks:      checks,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	go func() {
		zapLogger.Info("backend listening", zap.String("addr", srv.Addr), zap.String("db_driver", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sweeper.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server shutdown", zap.Error(err))
	}
	zapLogger.Info("shutdown complete")
}
