package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"wastejobs-backend/internal/config"
	"wastejobs-backend/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer zap.L().Sync() //nolint:errcheck

	if err := cfg.ValidateStore(); err != nil {
		zap.L().Fatal("invalid config", zap.Error(err))
	}

	db, err := database.Connect(cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		zap.L().Fatal("connect", zap.Error(err))
	}
	defer db.Close()

	if err := database.MigrateContext(context.Background(), db); err != nil {
		zap.L().Fatal("migration failed", zap.Error(err))
	}
	zap.L().Info("migration completed", zap.String("store", cfg.Store.Driver))
}
