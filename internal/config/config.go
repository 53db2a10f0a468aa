package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath  string
	LogLevel      string
	Port          int
	DevMode       bool
	Workers       int
	Tolerance     float64
	Overlaps      []float64
	AngleErrors   []float64
	ScenarioLower int
	ScenarioUpper int
	ShuffleSeed   int64
	Shuffle       bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnvAsInt("PORT", 8001),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		DatabasePath:  getEnv("DATABASE_PATH", "./data/focksim.db"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Workers:       getEnvAsInt("WORKERS", runtime.NumCPU()),
		Tolerance:     getEnvAsFloat("TOLERANCE", 1e-9),
		Overlaps:      getEnvAsFloats("OVERLAPS", []float64{0.9, 0.95, 1.0}),
		AngleErrors:   getEnvAsFloats("ANGLE_ERRORS", nil),
		ScenarioLower: getEnvAsInt("SCENARIO_LOWER", 0),
		ScenarioUpper: getEnvAsInt("SCENARIO_UPPER", 223),
		ShuffleSeed:   int64(getEnvAsInt("SHUFFLE_SEED", 1)),
		Shuffle:       getEnvAsBool("SHUFFLE", false),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1")
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("TOLERANCE must be positive")
	}
	if len(c.Overlaps) == 0 {
		return fmt.Errorf("OVERLAPS must list at least one value")
	}
	for _, ovl := range c.Overlaps {
		if ovl < 0 || ovl > 1 {
			return fmt.Errorf("overlap %v out of [0, 1]", ovl)
		}
	}
	if c.ScenarioLower < 0 || c.ScenarioUpper <= c.ScenarioLower {
		return fmt.Errorf("scenario interval [%d, %d) is empty", c.ScenarioLower, c.ScenarioUpper)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsFloats parses a comma-separated float list, e.g. "0.9,0.95,1".
func getEnvAsFloats(key string, defaultValue []float64) []float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return defaultValue
		}
		out = append(out, f)
	}
	return out
}
