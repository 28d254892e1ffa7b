// Package main запускает загрузку параметров расчета DCE.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dcefetch/internal/app"
	"dcefetch/internal/config"
	"dcefetch/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера
	log := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		FilePath:   cfg.LogPath,
		AppDataDir: cfg.AppDataDir,
	}).With(zap.String("run_id", uuid.New().String()))
	defer func() { _ = log.Sync() }()

	// Обработка сигналов
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory, err := app.NewComponentFactory(cfg, log)
	if err != nil {
		log.Error("Failed to create component factory", zap.Error(err))
		return
	}

	runner, err := factory.CreateRunner(ctx, os.Stdout)
	if err != nil {
		log.Error("Failed to create runner", zap.Error(err))
		return
	}

	// Результат только печатается, код выхода всегда 0
	if ok := runner.Run(ctx, time.Now()); !ok {
		log.Warn("Run finished without data")
		return
	}

	log.Info("Run finished successfully")
}
