package config

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	Port        string `env:"PORT" envDefault:"8080"`
	GoEnv       string `env:"GO_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Auth0Domain   string `env:"AUTH0_DOMAIN"`
	Auth0Audience string `env:"AUTH0_AUDIENCE"`

	// CronSecret authorizes the external scheduler that drives the deadline sweep
	CronSecret string `env:"CRON_SECRET"`

	AWSRegion          string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSS3Bucket        string `env:"AWS_S3_BUCKET"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	RedisURL        string `env:"REDIS_URL"`
	PubSubProjectID string `env:"PUBSUB_PROJECT_ID"`
	PubSubTopic     string `env:"PUBSUB_TOPIC"`

	SnowflakeNode int64 `env:"SNOWFLAKE_NODE" envDefault:"1"`

	// SweepInterval of zero leaves the sweep to the cron endpoint only
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" envDefault:"0s"`
	SweepBatchSize    int           `env:"SWEEP_BATCH_SIZE" envDefault:"100"`
	SweepConcurrency  int           `env:"SWEEP_CONCURRENCY" envDefault:"4"`
	SweepOrderTimeout time.Duration `env:"SWEEP_ORDER_TIMEOUT" envDefault:"10s"`
	SweepLockTTL      time.Duration `env:"SWEEP_LOCK_TTL" envDefault:"4m"`
	SweepKeyWindow    time.Duration `env:"SWEEP_KEY_WINDOW" envDefault:"5m"`

	RestockFeePercent float64 `env:"RESTOCK_FEE_PERCENT" envDefault:"5"`

	EventBufferSize int `env:"EVENT_BUFFER_SIZE" envDefault:"256"`
	EventWorkers    int `env:"EVENT_WORKERS" envDefault:"2"`
}

var (
	current   *Config
	currentMu sync.RWMutex
)

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	// Determine which environment file to load
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" {
		goEnv = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", goEnv)
	if err := godotenv.Load(envFile); err != nil {
		// In production variables are set directly, so missing files are fine
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	SetConfig(cfg)
	return cfg, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		if c.CronSecret == "" {
			return fmt.Errorf("CRON_SECRET is required")
		}
	}
	if c.SweepBatchSize <= 0 {
		return fmt.Errorf("SWEEP_BATCH_SIZE must be positive")
	}
	if c.SweepConcurrency <= 0 {
		return fmt.Errorf("SWEEP_CONCURRENCY must be positive")
	}
	if c.RestockFeePercent < 0 || c.RestockFeePercent > 100 {
		return fmt.Errorf("RESTOCK_FEE_PERCENT must be between 0 and 100")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// GetDatabaseURL returns the database URL
func (c *Config) GetDatabaseURL() string {
	return c.DatabaseURL
}

// GetConfig returns the configuration most recently loaded or set
func GetConfig() *Config {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

// SetConfig replaces the process-wide configuration (primarily for testing)
func SetConfig(cfg *Config) {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = cfg
}
