package main

import (
	"log"

	"go.uber.org/zap"

	"freelance/tracker/internal/config"
	"freelance/tracker/internal/db"
	"freelance/tracker/internal/logger"
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

	zapLogger.Info("migrations applied successfully", zap.String("db_driver", cfg.DBDriver))
}
