package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/example/tablegate/docs"
	"github.com/example/tablegate/internal/app"
	"github.com/example/tablegate/internal/config"
)

// @title TableGate API
// @version 1.0
// @description Reservation capacity control for a LINE booking bot.
// @host localhost:8080
// @BasePath /
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
