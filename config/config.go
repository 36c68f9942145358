package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Token backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Defaults applied by Validate
const (
	DefaultBaseURL      = "http://127.0.0.1:8000/api"
	DefaultMediaBaseURL = "http://127.0.0.1:8000"
	DefaultTimeout      = 30 * time.Second
	DefaultSQLitePath   = "./tellme.db"
	DefaultRedisAddr    = "127.0.0.1:6379"
	DefaultSandboxPort  = 8000
)

// Config represents the application configuration
type Config struct {
	API     APIConfig     `json:"api"`
	Tokens  TokensConfig  `json:"tokens"`
	Logging LoggingConfig `json:"logging"`
	Sandbox SandboxConfig `json:"sandbox"`
}

// APIConfig contains backend connection settings
type APIConfig struct {
	BaseURL      string   `json:"base_url"`
	MediaBaseURL string   `json:"media_base_url"`
	Timeout      Duration `json:"timeout"`
	// RequestsPerSecond limits outbound requests; zero disables limiting
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

// TokensConfig selects where credentials persist between runs
type TokensConfig struct {
	Backend       string   `json:"backend"` // "memory", "sqlite" or "redis"
	SQLitePath    string   `json:"sqlite_path"`
	RedisAddr     string   `json:"redis_addr"`
	RedisPassword string   `json:"redis_password"`
	RedisDB       int      `json:"redis_db"`
	RedisKey      string   `json:"redis_key"`
	RedisTTL      Duration `json:"redis_ttl"`
}

// LoggingConfig contains log output settings
type LoggingConfig struct {
	Format string `json:"format"` // "json" or "text"
	Level  string `json:"level"`
}

// SandboxConfig contains settings of the local sandbox backend
type SandboxConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	JWTSecret      string   `json:"jwt_secret"`
	AccessTTL      Duration `json:"access_ttl"`
	RefreshTTL     Duration `json:"refresh_ttl"`
	RejectProvider bool     `json:"reject_provider"`
	GatewayKey     string   `json:"gateway_key"`
	GatewaySecret  string   `json:"gateway_secret"`
	// AllowedOrigins are browser origins allowed to call the sandbox
	AllowedOrigins []string `json:"allowed_origins"`
}

// Duration is a time.Duration written as "30s" in JSON
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Validate validates the configuration and fills defaults
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.MediaBaseURL == "" {
		c.API.MediaBaseURL = DefaultMediaBaseURL
	}
	if c.API.Timeout.Duration < 0 {
		return fmt.Errorf("%w: negative api timeout", ErrInvalidConfig)
	}
	if c.API.Timeout.Duration == 0 {
		c.API.Timeout.Duration = DefaultTimeout
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: negative requests_per_second", ErrInvalidConfig)
	}

	switch c.Tokens.Backend {
	case "":
		c.Tokens.Backend = BackendMemory
	case BackendMemory:
	case BackendSQLite:
		if c.Tokens.SQLitePath == "" {
			c.Tokens.SQLitePath = DefaultSQLitePath
		}
	case BackendRedis:
		if c.Tokens.RedisAddr == "" {
			c.Tokens.RedisAddr = DefaultRedisAddr
		}
	default:
		return fmt.Errorf("%w: unknown token backend %q", ErrInvalidConfig, c.Tokens.Backend)
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: log format must be text or json", ErrInvalidConfig)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Sandbox.Port == 0 {
		c.Sandbox.Port = DefaultSandboxPort
	}
	if c.Sandbox.Port < 0 || c.Sandbox.Port > 65535 {
		return fmt.Errorf("%w: invalid sandbox port", ErrInvalidConfig)
	}

	return nil
}

// ValidateSandbox checks the settings the sandbox server cannot run without
func (c *Config) ValidateSandbox() error {
	if c.Sandbox.JWTSecret == "" {
		return fmt.Errorf("%w: sandbox JWT secret is required", ErrInvalidConfig)
	}
	if c.Sandbox.GatewaySecret == "" {
		return fmt.Errorf("%w: sandbox gateway secret is required", ErrInvalidConfig)
	}
	return nil
}

// Load loads configuration from a JSON file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromEnv loads configuration from TELLME_* environment variables.
// envFile, when set, is loaded first and must exist; otherwise a ./.env is
// used if present. Variables already in the environment win.
func LoadFromEnv(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	timeout, err := getEnvDuration("TELLME_API_TIMEOUT", DefaultTimeout)
	if err != nil {
		return nil, err
	}
	redisTTL, err := getEnvDuration("TELLME_REDIS_TTL", 0)
	if err != nil {
		return nil, err
	}
	accessTTL, err := getEnvDuration("TELLME_SANDBOX_ACCESS_TTL", 0)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := getEnvDuration("TELLME_SANDBOX_REFRESH_TTL", 0)
	if err != nil {
		return nil, err
	}

	config := &Config{
		API: APIConfig{
			BaseURL:           getEnv("TELLME_API_BASE_URL", DefaultBaseURL),
			MediaBaseURL:      getEnv("TELLME_MEDIA_BASE_URL", DefaultMediaBaseURL),
			Timeout:           Duration{timeout},
			RequestsPerSecond: getEnvFloat("TELLME_API_RPS", 0),
			Burst:             getEnvInt("TELLME_API_BURST", 0),
		},
		Tokens: TokensConfig{
			Backend:       getEnv("TELLME_TOKEN_BACKEND", BackendMemory),
			SQLitePath:    getEnv("TELLME_SQLITE_PATH", DefaultSQLitePath),
			RedisAddr:     getEnv("TELLME_REDIS_ADDR", DefaultRedisAddr),
			RedisPassword: getEnv("TELLME_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("TELLME_REDIS_DB", 0),
			RedisKey:      getEnv("TELLME_REDIS_KEY", ""),
			RedisTTL:      Duration{redisTTL},
		},
		Logging: LoggingConfig{
			Format: getEnv("TELLME_LOG_FORMAT", "text"),
			Level:  getEnv("TELLME_LOG_LEVEL", "info"),
		},
		Sandbox: SandboxConfig{
			Host:           getEnv("TELLME_SANDBOX_HOST", "127.0.0.1"),
			Port:           getEnvInt("TELLME_SANDBOX_PORT", DefaultSandboxPort),
			JWTSecret:      getEnv("TELLME_SANDBOX_JWT_SECRET", ""),
			AccessTTL:      Duration{accessTTL},
			RefreshTTL:     Duration{refreshTTL},
			RejectProvider: getEnvBool("TELLME_SANDBOX_REJECT_PROVIDER", false),
			GatewayKey:     getEnv("TELLME_SANDBOX_GATEWAY_KEY", "rzp_test_sandbox"),
			GatewaySecret:  getEnv("TELLME_SANDBOX_GATEWAY_SECRET", ""),
			AllowedOrigins: getEnvList("TELLME_SANDBOX_ALLOWED_ORIGINS"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping empty items
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return d, nil
}
