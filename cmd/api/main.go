package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"forge-backend/infrastructure/config"
	"forge-backend/infrastructure/di"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		panic("invalid configuration: " + err.Error())
	}

	container, err := di.NewContainer(cfg, di.Options{})
	if err != nil {
		panic("failed to initialize application: " + err.Error())
	}
	logger := container.Logger
	defer container.Shutdown()

	container.Start()

	// Hot-reload the YAML overlay when one is configured. Boot-time
	// settings (address, auth) keep their startup values.
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		watcher, err := config.NewWatcher(path, logger.Named("config"))
		if err != nil {
			logger.Warn("Config watcher unavailable", zap.Error(err))
		} else {
			watcher.OnReload(func(next *config.Config) {
				logger.Info("Configuration overlay changed",
					zap.String("log_level", next.LogLevel),
					zap.Strings("allowed_origins", next.AllowedOrigins),
				)
			})
			if err := watcher.Start(); err != nil {
				logger.Warn("Config watcher failed to start", zap.Error(err))
			} else {
				defer watcher.Stop()
			}
		}
	}

	server := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      container.NewRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
