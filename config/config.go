package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Engine configuration
	EpochSeconds    int64 // interest epoch length in seconds
	MinDistribution int64 // smallest undistributed pool worth distributing

	// Founding rule seeded at registry position 0
	FoundingExecutor string
	FoundingPercent  int64

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Engine settings with defaults: 90-day epochs, distribute
		// anything above zero
		EpochSeconds:    7776000,
		MinDistribution: 1,

		// Founding rule
		FoundingExecutor: os.Getenv("GOVERNOR_FOUNDING_EXECUTOR"),
		FoundingPercent:  10,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if epoch := os.Getenv("GOVERNOR_EPOCH_SECONDS"); epoch != "" {
		if parsed, err := strconv.ParseInt(epoch, 10, 64); err == nil {
			config.EpochSeconds = parsed
		}
	}
	if min := os.Getenv("GOVERNOR_MIN_DISTRIBUTION"); min != "" {
		if parsed, err := strconv.ParseInt(min, 10, 64); err == nil {
			config.MinDistribution = parsed
		}
	}
	if percent := os.Getenv("GOVERNOR_FOUNDING_PERCENT"); percent != "" {
		if parsed, err := strconv.ParseInt(percent, 10, 64); err == nil {
			config.FoundingPercent = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.FoundingExecutor == "" {
			return nil, fmt.Errorf("GOVERNOR_FOUNDING_EXECUTOR is required")
		}
	}

	return config, nil
}
