package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tellme/config"
	"tellme/internal/api"
	"tellme/internal/logging"
	"tellme/internal/sandbox"
	"tellme/internal/scheduler"
)

const (
	shutdownTimeout   = 10 * time.Second
	defaultConfigPath = "config.json"
	completeInterval  = time.Minute
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Parse command-line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	useEnv := flag.Bool("env", false, "Load configuration from environment variables")
	envFile := flag.String("env-file", "", "Optional .env file read before the environment (with -env)")
	flag.Parse()

	var cfg *config.Config
	var err error

	if *useEnv {
		cfg, err = config.LoadFromEnv(*envFile)
	} else {
		cfg, err = config.Load(*configPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateSandbox(); err != nil {
		return err
	}

	logger := logging.NewLogger(logging.LoggerConfig{
		Format: cfg.Logging.Format,
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Output: os.Stdout,
	})
	slog.SetDefault(logger)

	store := sandbox.NewStore()
	if err := sandbox.Seed(store); err != nil {
		return fmt.Errorf("failed to seed sandbox: %w", err)
	}
	issuer := sandbox.NewIssuer(sandbox.IssuerConfig{
		Secret:     cfg.Sandbox.JWTSecret,
		AccessTTL:  cfg.Sandbox.AccessTTL.Duration,
		RefreshTTL: cfg.Sandbox.RefreshTTL.Duration,
	})

	// Start scheduler
	sched := scheduler.NewScheduler(store, completeInterval, logger)
	go sched.Start()

	router := api.NewRouter(api.RouterConfig{
		Store:          store,
		Issuer:         issuer,
		Logger:         logger,
		RejectProvider: cfg.Sandbox.RejectProvider,
		GatewayKey:     cfg.Sandbox.GatewayKey,
		GatewaySecret:  cfg.Sandbox.GatewaySecret,
		ExposeMetrics:  true,
		AllowedOrigins: cfg.Sandbox.AllowedOrigins,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Sandbox.Host, cfg.Sandbox.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting sandbox backend",
			"addr", addr,
			"base_url", "http://"+addr+"/api",
			"demo_email", sandbox.DemoEmail,
			"reject_provider", cfg.Sandbox.RejectProvider,
		)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		sched.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("Starting graceful shutdown", "signal", sig.String())

		sched.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		logger.Info("Graceful shutdown complete")
	}

	return nil
}
