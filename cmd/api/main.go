package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jayascript1/menubot/internal/api"
	"github.com/jayascript1/menubot/internal/api/handler"
	"github.com/jayascript1/menubot/internal/app"
	"github.com/jayascript1/menubot/internal/config"
	"github.com/jayascript1/menubot/internal/logger"
)

func main() {
	appLogger := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer func() { _ = logger.Sync() }()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid config")
	}

	ctx := logger.SetComponent(context.Background(), "api")
	a, err := app.New(ctx, cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize services")
	}
	defer a.Close()

	deps := api.Deps{
		Scans:        a.Analysis,
		Batch:        a.Batch,
		BatchRootDir: cfg.Batch.RootDir,
		HealthChecks: a.HealthChecks(),
	}
	// Leave Dishes as a nil interface when the index is disabled.
	if a.DishIndex != nil {
		var searcher handler.DishSearcher = a.DishIndex
		deps.Dishes = searcher
	}

	router := api.SetupRouter(deps, cfg.Server)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
