// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	amount := cfg.Costing.OverrideAmount
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Limits enforced by Validate
const (
	MaxBatchSize     = 25
	DefaultTenant    = "default"
	DefaultBatchSize = 25
)

// Config represents the entire application configuration
type Config struct {
	Tenant        string              `yaml:"tenant"`
	Storage       StorageConfig       `yaml:"storage"`
	Costing       CostingConfig       `yaml:"costing"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// CostingConfig holds the delivery cost engine settings
type CostingConfig struct {
	OverrideAmount   float64 `yaml:"override_amount"`
	HeavyWeightKg    float64 `yaml:"heavy_weight_kg"`
	OverrideKeyword  string  `yaml:"override_keyword"`
	WriteTolerance   float64 `yaml:"write_tolerance"`
	BatchSize        int     `yaml:"batch_size"`
	WriteConcurrency int     `yaml:"write_concurrency"`
	AggregateWorkers int     `yaml:"aggregate_workers"`
	SampleSize       int     `yaml:"sample_size"`
	TieBreak         string  `yaml:"tie_break"`
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with every setting at its default
func Default() *Config {
	return &Config{
		Tenant: DefaultTenant,
		Storage: StorageConfig{
			DatabasePath: "deliverycost.db",
		},
		Costing: CostingConfig{
			OverrideAmount:   45,
			HeavyWeightKg:    30,
			OverrideKeyword:  "suite",
			WriteTolerance:   0.01,
			BatchSize:        DefaultBatchSize,
			WriteConcurrency: 4,
			AggregateWorkers: 4,
			SampleSize:       50,
			TieBreak:         "reject",
		},
		API: APIConfig{
			Port:           8085,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}
}

// Load reads and parses the config file. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${DELIVERYCOST_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	d := Default()
	return &Config{
		Tenant: getEnv("DELIVERYCOST_TENANT", d.Tenant),
		Storage: StorageConfig{
			DatabasePath: getEnv("DELIVERYCOST_DB_PATH", d.Storage.DatabasePath),
		},
		Costing: CostingConfig{
			OverrideAmount:   getEnvFloat("DELIVERYCOST_OVERRIDE_AMOUNT", d.Costing.OverrideAmount),
			HeavyWeightKg:    getEnvFloat("DELIVERYCOST_HEAVY_WEIGHT_KG", d.Costing.HeavyWeightKg),
			OverrideKeyword:  getEnv("DELIVERYCOST_OVERRIDE_KEYWORD", d.Costing.OverrideKeyword),
			WriteTolerance:   getEnvFloat("DELIVERYCOST_WRITE_TOLERANCE", d.Costing.WriteTolerance),
			BatchSize:        getEnvInt("DELIVERYCOST_BATCH_SIZE", d.Costing.BatchSize),
			WriteConcurrency: getEnvInt("DELIVERYCOST_WRITE_CONCURRENCY", d.Costing.WriteConcurrency),
			AggregateWorkers: getEnvInt("DELIVERYCOST_AGGREGATE_WORKERS", d.Costing.AggregateWorkers),
			SampleSize:       getEnvInt("DELIVERYCOST_SAMPLE_SIZE", d.Costing.SampleSize),
			TieBreak:         getEnv("DELIVERYCOST_TIE_BREAK", d.Costing.TieBreak),
		},
		API: APIConfig{
			Port:           getEnvInt("DELIVERYCOST_API_PORT", d.API.Port),
			AllowedOrigins: getEnvList("DELIVERYCOST_ALLOWED_ORIGINS", d.API.AllowedOrigins),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", d.Observability.Logging.Level),
				Format: getEnv("LOG_FORMAT", d.Observability.Logging.Format),
			},
		},
	}
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Validate reports every setting the engine cannot run with
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Tenant) == "" {
		errs = append(errs, errors.New("tenant is required"))
	}
	if c.Storage.DatabasePath == "" {
		errs = append(errs, errors.New("storage.database_path is required"))
	}

	cc := c.Costing
	if cc.OverrideAmount < 0 {
		errs = append(errs, fmt.Errorf("costing.override_amount must not be negative, got %v", cc.OverrideAmount))
	}
	if cc.HeavyWeightKg < 0 {
		errs = append(errs, fmt.Errorf("costing.heavy_weight_kg must not be negative, got %v", cc.HeavyWeightKg))
	}
	if cc.WriteTolerance < 0 {
		errs = append(errs, fmt.Errorf("costing.write_tolerance must not be negative, got %v", cc.WriteTolerance))
	}
	if cc.BatchSize < 1 || cc.BatchSize > MaxBatchSize {
		errs = append(errs, fmt.Errorf("costing.batch_size must be between 1 and %d, got %d", MaxBatchSize, cc.BatchSize))
	}
	if cc.WriteConcurrency < 1 {
		errs = append(errs, fmt.Errorf("costing.write_concurrency must be at least 1, got %d", cc.WriteConcurrency))
	}
	if cc.AggregateWorkers < 1 {
		errs = append(errs, fmt.Errorf("costing.aggregate_workers must be at least 1, got %d", cc.AggregateWorkers))
	}
	if cc.SampleSize < 0 {
		errs = append(errs, fmt.Errorf("costing.sample_size must not be negative, got %d", cc.SampleSize))
	}
	switch strings.ToLower(strings.TrimSpace(cc.TieBreak)) {
	case "", "reject", "earliest", "all":
	default:
		errs = append(errs, fmt.Errorf("costing.tie_break %q is not one of reject, earliest, all", cc.TieBreak))
	}

	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port out of range: %d", c.API.Port))
	}

	return errors.Join(errs...)
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvFloat retrieves a float environment variable with a fallback default
func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvList retrieves a comma-separated environment variable
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
