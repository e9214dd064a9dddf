package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Economy   EconomyConfig
	Storage   StorageConfig
	Audit     AuditConfig
	RateLimit RateLimitConfig
	Log       LogConfig

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development" or "production"
}

// EconomyConfig holds the currency rules. A cap of zero or less is unbounded.
type EconomyConfig struct {
	MaxWalletAmount      int64  `env:"MAX_WALLET_AMOUNT" envDefault:"0"`
	MaxTransactionAmount int64  `env:"MAX_TRANSACTION_AMOUNT" envDefault:"0"`
	CurrencySymbol       string `env:"CURRENCY_SYMBOL" envDefault:"coins"`
	DefaultSafeCapacity  int64  `env:"DEFAULT_SAFE_CAPACITY" envDefault:"10000"`

	// Admins may run grant and take
	Admins []string `env:"ECONOMY_ADMINS" envSeparator:","`
}

// StorageConfig selects and locates the ledger store
type StorageConfig struct {
	Driver       string        `env:"LEDGER_DRIVER" envDefault:"sqlite"` // "memory" or "sqlite"
	DataDir      string        `env:"DATA_DIR"`
	DBPath       string        `env:"LEDGER_DB_PATH"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
}

// AuditConfig configures the Elasticsearch mirror of the transaction log.
// An empty URL disables it.
type AuditConfig struct {
	URL         string        `env:"ELASTICSEARCH_URL"`
	Username    string        `env:"ELASTICSEARCH_USERNAME"`
	Password    string        `env:"ELASTICSEARCH_PASSWORD"`
	IndexPrefix string        `env:"AUDIT_INDEX_PREFIX" envDefault:"contrast"`
	Retention   time.Duration `env:"AUDIT_RETENTION" envDefault:"2160h"`
	Rotation    time.Duration `env:"AUDIT_ROTATION" envDefault:"720h"`
}

// RateLimitConfig configures the Redis bet limiter. An empty address disables it.
type RateLimitConfig struct {
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	BetLimit      int           `env:"BET_RATE_LIMIT" envDefault:"30"`
	BetWindow     time.Duration `env:"BET_RATE_WINDOW" envDefault:"1m"`
}

// LogConfig configures logging output
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Only return error if file exists but couldn't be loaded
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	if cfg.Storage.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// Parse builds a Config from the current environment without touching the
// filesystem.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}

	if cfg.Storage.DataDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg.Storage.DataDir = filepath.Join(wd, "data")
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = filepath.Join(cfg.Storage.DataDir, "ledger.db")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks if the configuration is usable
func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("LEDGER_DRIVER must be memory or sqlite, got %q", c.Storage.Driver)
	}
	if c.Storage.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if c.Economy.DefaultSafeCapacity < 0 {
		return fmt.Errorf("DEFAULT_SAFE_CAPACITY cannot be negative")
	}
	if c.RateLimit.RedisAddr != "" && (c.RateLimit.BetLimit < 1 || c.RateLimit.BetWindow <= 0) {
		return fmt.Errorf("BET_RATE_LIMIT and BET_RATE_WINDOW must be positive when REDIS_ADDR is set")
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// WalletCapped reports whether a finite wallet cap is configured
func (e EconomyConfig) WalletCapped() bool {
	return e.MaxWalletAmount > 0
}

// TransferCapped reports whether a finite per-transfer cap is configured
func (e EconomyConfig) TransferCapped() bool {
	return e.MaxTransactionAmount > 0
}
