package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/flowtrack/internal/cli"
	"github.com/BuzzLyutic/flowtrack/internal/config"
)

func main() {
	// Загрузка конфигурации
	cfg := config.Load()

	// Подключаем логгер
	newLogger := zap.NewProduction
	if cfg.LogDevelopment {
		newLogger = zap.NewDevelopment
	}
	logger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cli.NewRootCommand(&cfg, logger).Execute(context.Background()); err != nil {
		logger.Sync()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
