// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	JWT        JWTConfig        `json:"jwt"`
	Shortener  ShortenerConfig  `json:"shortener"`
	Tracking   TrackingConfig   `json:"tracking"`
	Identity   IdentityConfig   `json:"identity"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Deployment DeploymentConfig `json:"deployment"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	AutoMigrate     bool          `json:"auto_migrate"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	EnableMetrics   bool          `json:"enable_metrics"`
	ProxyHeader     string        `json:"proxy_header"`

	// ProxyHeader is only honored for peers listed here or, when enabled, private addresses
	TrustedProxies      []string `json:"trusted_proxies"`
	TrustPrivateProxies bool     `json:"trust_private_proxies"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`

	// Rate Limiting
	GlobalRateLimit  int           `json:"global_rate_limit"`  // requests per window
	TrackerRateLimit int           `json:"tracker_rate_limit"` // requests per window, per IP
	RateLimitWindow  time.Duration `json:"rate_limit_window"`
}

// JWTConfig only carries what is needed to verify tokens issued by the identity provider
type JWTConfig struct {
	SecretKey string `json:"secret_key"`
	Issuer    string `json:"issuer"`
	Audience  string `json:"audience"`
}

type ShortenerConfig struct {
	Provider string        `json:"provider"` // tinyurl, mock
	BaseURL  string        `json:"base_url"`
	APIToken string        `json:"api_token"`
	Domain   string        `json:"domain"`
	Timeout  time.Duration `json:"timeout"`
	// FixRatePerSecond throttles the bulk link fixer
	FixRatePerSecond float64 `json:"fix_rate_per_second"`
}

type TrackingConfig struct {
	PublicBaseURL string `json:"public_base_url"`
}

type IdentityConfig struct {
	BaseURL      string        `json:"base_url"`
	ServiceKey   string        `json:"service_key"`
	MaxBatchSize int           `json:"max_batch_size"`
	ItemTimeout  time.Duration `json:"item_timeout"`
	Concurrency  int           `json:"concurrency"`
}

type LoggingConfig struct {
	Level        string `json:"level"`  // debug, info, warn, error
	Format       string `json:"format"` // json, console
	Output       string `json:"output"` // stdout, file, both
	FilePath     string `json:"file_path"`
	MaxSize      int    `json:"max_size"` // MB
	MaxBackups   int    `json:"max_backups"`
	MaxAge       int    `json:"max_age"` // days
	Compress     bool   `json:"compress"`
	EnableCaller bool   `json:"enable_caller"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	Provider        string        `json:"provider"` // redis
	RedisURL        string        `json:"redis_url"`
	RedisDB         int           `json:"redis_db"`
	RedisPrefix     string        `json:"redis_prefix"`
	DefaultTTL      time.Duration `json:"default_ttl"`
	LinkTTL         time.Duration `json:"link_ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

type SchedulerConfig struct {
	ReconcileEnabled bool   `json:"reconcile_enabled"`
	ReconcileSpec    string `json:"reconcile_spec"`
	ReconcileBatch   int    `json:"reconcile_batch"`
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "postgres"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Host:                getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:                getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:         getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:        getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:         getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:     getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:           getEnvInt("SERVER_BODY_LIMIT", 8*1024*1024), // 8MB, spreadsheets
			EnableMetrics:       getEnvBool("SERVER_ENABLE_METRICS", true),
			ProxyHeader:         getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
			TrustedProxies:      getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			TrustPrivateProxies: getEnvBool("SERVER_TRUST_PRIVATE_PROXIES", true),
		},
		Security: SecurityConfig{
			AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			AllowedMethods:   getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "OPTIONS"}),
			AllowedHeaders:   getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "apikey", "x-client-info"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			GlobalRateLimit:  getEnvInt("GLOBAL_RATE_LIMIT", 2000),
			TrackerRateLimit: getEnvInt("TRACKER_RATE_LIMIT", 600),
			RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
		},
		JWT: JWTConfig{
			SecretKey: getEnvString("JWT_SECRET_KEY", ""),
			Issuer:    getEnvString("JWT_ISSUER", ""),
			Audience:  getEnvString("JWT_AUDIENCE", "authenticated"),
		},
		Shortener: ShortenerConfig{
			Provider:         getEnvString("SHORTENER_PROVIDER", "tinyurl"),
			BaseURL:          getEnvString("SHORTENER_BASE_URL", ""),
			APIToken:         getEnvString("TINYURL_API_TOKEN", ""),
			Domain:           getEnvString("SHORTENER_DOMAIN", "tinyurl.com"),
			Timeout:          getEnvDuration("SHORTENER_TIMEOUT", 5*time.Second),
			FixRatePerSecond: getEnvFloat("SHORTENER_FIX_RATE_PER_SECOND", 2),
		},
		Tracking: TrackingConfig{
			PublicBaseURL: strings.TrimRight(getEnvString("TRACKING_PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		},
		Identity: IdentityConfig{
			BaseURL:      strings.TrimRight(getEnvString("IDENTITY_BASE_URL", ""), "/"),
			ServiceKey:   getEnvString("IDENTITY_SERVICE_KEY", ""),
			MaxBatchSize: getEnvInt("IDENTITY_MAX_BATCH_SIZE", 50),
			ItemTimeout:  getEnvDuration("IDENTITY_ITEM_TIMEOUT", 3*time.Second),
			Concurrency:  getEnvInt("IDENTITY_CONCURRENCY", 8),
		},
		Logging: LoggingConfig{
			Level:        getEnvString("LOG_LEVEL", "info"),
			Format:       getEnvString("LOG_FORMAT", "json"),
			Output:       getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:     getEnvString("LOG_FILE_PATH", "/var/log/utm-tracker/app.log"),
			MaxSize:      getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:   getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:       getEnvInt("LOG_MAX_AGE", 30),
			Compress:     getEnvBool("LOG_COMPRESS", true),
			EnableCaller: getEnvBool("LOG_ENABLE_CALLER", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:         getEnvBool("CACHE_ENABLED", true),
			Provider:        getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:        getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:         getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix:     getEnvString("CACHE_REDIS_PREFIX", "utm:"),
			DefaultTTL:      getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
			LinkTTL:         getEnvDuration("CACHE_LINK_TTL", 24*time.Hour),
			CleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 30*time.Second),
		},
		Scheduler: SchedulerConfig{
			ReconcileEnabled: getEnvBool("SCHEDULER_RECONCILE_ENABLED", true),
			ReconcileSpec:    getEnvString("SCHEDULER_RECONCILE_SPEC", "@every 5m"),
			ReconcileBatch:   getEnvInt("SCHEDULER_RECONCILE_BATCH", 100),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "1.0.0"),
			CommitHash:  getEnvString("COMMIT_HASH", "unknown"),
			BuildTime:   getEnvString("BUILD_TIME", "unknown"),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from the given file if it exists.
// Variables already present in the environment are not overridden.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errs []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errs = append(errs, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errs = append(errs, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errs = append(errs, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errs = append(errs, "DB_USER is required")
	}

	// Validate JWT configuration
	if cfg.JWT.SecretKey == "" {
		errs = append(errs, "JWT_SECRET_KEY is required")
	} else if len(cfg.JWT.SecretKey) < 32 {
		errs = append(errs, "JWT_SECRET_KEY must be at least 32 characters long")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errs = append(errs, "SERVER_WRITE_TIMEOUT must be positive")
	}

	// Validate shortener configuration
	switch cfg.Shortener.Provider {
	case "tinyurl", "mock":
	default:
		errs = append(errs, "SHORTENER_PROVIDER must be one of: tinyurl, mock")
	}
	if cfg.Shortener.Timeout <= 0 {
		errs = append(errs, "SHORTENER_TIMEOUT must be positive")
	}

	// Validate tracking configuration
	if !strings.HasPrefix(cfg.Tracking.PublicBaseURL, "http://") && !strings.HasPrefix(cfg.Tracking.PublicBaseURL, "https://") {
		errs = append(errs, "TRACKING_PUBLIC_BASE_URL must start with http:// or https://")
	}

	// Validate identity configuration
	if cfg.Identity.MaxBatchSize <= 0 {
		errs = append(errs, "IDENTITY_MAX_BATCH_SIZE must be positive")
	}
	if cfg.Identity.ItemTimeout <= 0 {
		errs = append(errs, "IDENTITY_ITEM_TIMEOUT must be positive")
	}

	// Validate logging configuration
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		valid := false
		for _, level := range validLevels {
			if cfg.Logging.Level == level {
				valid = true
				break
			}
		}
		if !valid {
			errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
			errs = append(errs, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
		}
	}

	// Return validation errors if any
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
