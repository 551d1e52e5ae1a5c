package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"hazacheck/internal/config"
	"hazacheck/internal/database"
	"hazacheck/internal/logging"
	"hazacheck/internal/notify"
	"hazacheck/internal/server"
	"hazacheck/internal/services"
	"hazacheck/internal/telemetry"
)

const (
	shutdownTimeout = 30 * time.Second
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log, cfg.App)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting",
		zap.String("env", cfg.App.Env),
		zap.Bool("debug", cfg.App.Debug),
		zap.String("host", cfg.App.Host),
		zap.String("port", cfg.App.Port),
		zap.String("display_timezone", cfg.App.DisplayTimezone),
	)
	if cfg.Auth.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN is not set; the admin API rejects every request")
	}

	shutdownTracing := telemetry.Setup(cfg.Telemetry, cfg.App, logger)

	db, err := database.Open(cfg.Database, logger.Named("database"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		logger.Info("closing database connections")
		if err := database.Close(db); err != nil {
			logger.Warn("error closing database", zap.Error(err))
		}
	}()

	caps, err := database.Migrate(db, cfg.Database.AutoMigrate, cfg.Auth.PINHashCost, logger.Named("database"))
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	formatter := notify.Formatter{AdminURL: cfg.Telegram.AdminURL, Location: cfg.App.Location}
	dispatcher := notify.NewDispatcher(logger.Named("notify"), cfg.Notify.Timeout,
		notify.NewTelegramSender(cfg.Telegram, formatter, &http.Client{Timeout: cfg.Notify.Timeout}),
		notify.NewEmailSender(cfg.Email, formatter),
	)

	logger.Info("notification channels", zap.Strings("enabled", dispatcher.Channels()))
	if !cfg.Auth.SessionsEnabled() {
		logger.Info("SECRET_KEY is not set; admin sessions are disabled")
	}

	opts := services.Options{
		Capabilities: caps,
		PINHashCost:  cfg.Auth.PINHashCost,
		Location:     cfg.App.Location,
	}
	srv := server.New(cfg, logger,
		services.NewInquiryService(db, dispatcher, opts, logger),
		services.NewAdminService(db, dispatcher, opts, logger),
		services.NewAdminAuth(cfg.Auth, logger),
		services.NewHealthService(db, cfg.App.Name),
	)

	addr := fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		ErrorLog:     zap.NewStdLog(logger.Named("http")),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			_ = httpServer.Close()
		}
	}
	if err := dispatcher.Wait(ctx); err != nil {
		logger.Warn("pending notifications abandoned", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("tracer shutdown failed", zap.Error(err))
	}

	logger.Info("server shutdown complete")
	return nil
}
