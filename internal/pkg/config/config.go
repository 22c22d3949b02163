package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	CredentialStoreFile   = "file"
	CredentialStoreRedis  = "redis"
	CredentialStoreMemory = "memory" // nothing survives a restart
)

// Config holds all application configuration.
type Config struct {
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile         string        `env:"LOG_FILE" envDefault:"dashboard.log"` // the TUI owns stdout
	APIURL          string        `env:"API_URL" envDefault:"https://logs-monitoring.onrender.com/api"`
	APITimeout      time.Duration `env:"API_TIMEOUT" envDefault:"15s"`
	APIRateLimit    float64       `env:"API_RATE_LIMIT" envDefault:"20"` // requests per second
	APIRateBurst    int           `env:"API_RATE_BURST" envDefault:"10"`
	CredentialStore string        `env:"CREDENTIAL_STORE" envDefault:"file"`
	CredentialFile  string        `env:"CREDENTIAL_FILE"`
	CredentialKey   string        `env:"CREDENTIAL_KEY" envDefault:"watchtower:console:token"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	MetricsAddr     string        `env:"METRICS_ADDR"`
	DevAPIAddr      string        `env:"DEVAPI_ADDR" envDefault:":8090"`
	DevAPIJWTSecret string        `env:"DEVAPI_JWT_SECRET" envDefault:"watch-tower-dev-secret"`
	DevAPITokenTTL  time.Duration `env:"DEVAPI_TOKEN_TTL" envDefault:"24h"`
	DevAPICapacity  int           `env:"DEVAPI_CAPACITY" envDefault:"10000"`
	DevAPISeed      bool          `env:"DEVAPI_SEED" envDefault:"true"`
	DevAPIRedact    []string      `env:"DEVAPI_REDACT_FIELDS" envSeparator:"," envDefault:"password,token,email,ssn"`
	DevAPIWALDir    string        `env:"DEVAPI_WAL_DIR"` // empty keeps records in memory only
	WALSegmentSize  int64         `env:"WAL_SEGMENT_SIZE" envDefault:"10485760"`  // 10MB
	WALMaxDiskSize  int64         `env:"WAL_MAX_DISK_SIZE" envDefault:"104857600"` // 100MB
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.CredentialStore {
	case CredentialStoreFile:
		if c.CredentialFile == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolve credential file: %w", err)
			}
			c.CredentialFile = filepath.Join(home, ".watch-tower", "token")
		}
	case CredentialStoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CREDENTIAL_STORE=%s", CredentialStoreRedis)
		}
	case CredentialStoreMemory:
	default:
		return fmt.Errorf("unknown CREDENTIAL_STORE %q", c.CredentialStore)
	}

	if c.APIRateLimit <= 0 {
		return fmt.Errorf("API_RATE_LIMIT must be positive, got %v", c.APIRateLimit)
	}
	if c.APIRateBurst < 1 {
		return fmt.Errorf("API_RATE_BURST must be at least 1, got %d", c.APIRateBurst)
	}
	if c.WALSegmentSize <= 0 || c.WALMaxDiskSize < c.WALSegmentSize {
		return fmt.Errorf("WAL_MAX_DISK_SIZE must be at least WAL_SEGMENT_SIZE (%d)", c.WALSegmentSize)
	}
	if c.DevAPICapacity < 1 {
		return fmt.Errorf("DEVAPI_CAPACITY must be at least 1, got %d", c.DevAPICapacity)
	}
	return nil
}
