package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"laptopprice/app"
	"laptopprice/config"
	phttp "laptopprice/http"
	"laptopprice/logger"
)

func main() {
	// Look for config in root even if run from cmd/
	configPath := "config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = filepath.Join("..", "config.yaml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = ""
		}
	}

	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	zlog := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer zlog.Sync()

	// 3. Dataset, model and optional store
	a, err := app.New(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize estimator", zap.Error(err))
	}
	defer a.Close()
	zlog.Info("estimator ready",
		zap.String("variant", cfg.App.Variant),
		zap.String("layout", cfg.UI.Layout),
		zap.Bool("persist", cfg.Persist()),
	)

	feed := phttp.NewFeed(zlog.Named("feed"))
	go feed.Run()
	defer feed.Stop()

	handlers, err := phttp.NewHandlers(a, feed)
	if err != nil {
		zlog.Fatal("failed to build handlers", zap.Error(err))
	}

	// 4. Start HTTP server
	server := phttp.NewServer(phttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
	}, handlers, zlog.Named("http"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		zlog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			zlog.Error("http server failed", zap.Error(err))
		}
	}

	if err := server.Stop(); err != nil {
		zlog.Warn("server forced to shutdown", zap.Error(err))
	}
	zlog.Info("exiting")
}
