// Command tellme is a terminal client for the storefront backend: sign in,
// browse providers and slots, book, keep saved services and pay for barcodes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tellme/config"
	"tellme/internal/logging"
)

const defaultConfigPath = "tellme.json"

const usage = `Usage: tellme [flags] <command> [command flags]

Commands:
  register   create an account and sign in
  login      sign in with email and password
  logout     forget stored credentials
  whoami     show the signed-in user from the stored token
  providers  list providers offering a service (-slug)
  slots      list open slots (-provider -service -date)
  book       book a slot (-provider -service -date -slot)
  bookings   list your bookings
  saved      list saved services
  save       toggle a saved service (-service)
  profile    show or update your profile
  barcode    order and pay for a barcode
  vendor     onboard a provider (register, reset-password, categories, create-profile)

Flags:
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse command-line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	useEnv := flag.Bool("env", false, "Load configuration from TELLME_* environment variables")
	envFile := flag.String("env-file", "", "Optional .env file read before the environment (with -env)")
	logFormat := flag.String("log-format", "", "Log format: json or text (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return errors.New("no command given")
	}

	cfg, err := loadConfig(*configPath, *useEnv, *envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *logFormat != "" {
		cfg.Logging.Format = *logFormat
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	// Logs go to stderr; command output owns stdout
	logger := logging.NewLogger(logging.LoggerConfig{
		Format: cfg.Logging.Format,
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.dispatch(ctx, flag.Arg(0), flag.Args()[1:])
}

// loadConfig reads the JSON file, or the environment with -env. A missing
// default config file means built-in defaults.
func loadConfig(path string, useEnv bool, envFile string) (*config.Config, error) {
	if useEnv {
		return config.LoadFromEnv(envFile)
	}

	cfg, err := config.Load(path)
	if errors.Is(err, config.ErrConfigFileNotFound) && path == defaultConfigPath {
		cfg = &config.Config{}
		return cfg, cfg.Validate()
	}
	return cfg, err
}
