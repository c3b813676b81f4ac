package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath string
	LogLevel     string
}

// Load reads configuration from environment variables, with a .env file
// as optional source. Everything has a default; a missing environment
// is not an error.
func Load() *Config {
	// Load .env file if it exists.
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath: "library.db",
		LogLevel:     "info",
	}
	if v := os.Getenv("LIBRARY_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("LIBRARY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

// NewLogger builds the application logger at the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", c.LogLevel, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
