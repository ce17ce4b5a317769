package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 45.0, cfg.Costing.OverrideAmount)
	assert.Equal(t, 30.0, cfg.Costing.HeavyWeightKg)
	assert.Equal(t, "suite", cfg.Costing.OverrideKeyword)
	assert.Equal(t, 0.01, cfg.Costing.WriteTolerance)
	assert.Equal(t, 25, cfg.Costing.BatchSize)
	assert.Equal(t, "reject", cfg.Costing.TieBreak)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	os.Setenv("TEST_DELIVERY_DB", "/tmp/costs.db")
	defer os.Unsetenv("TEST_DELIVERY_DB")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
tenant: acme
storage:
  database_path: ${TEST_DELIVERY_DB}
costing:
  override_amount: 60
  tie_break: earliest
api:
  allowed_origins:
    - https://dash.example.com
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.Tenant)
	assert.Equal(t, "/tmp/costs.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 60.0, cfg.Costing.OverrideAmount)
	assert.Equal(t, "earliest", cfg.Costing.TieBreak)
	assert.Equal(t, 30.0, cfg.Costing.HeavyWeightKg, "unset keys keep defaults")
	assert.Equal(t, 25, cfg.Costing.BatchSize)
	assert.Equal(t, []string{"https://dash.example.com"}, cfg.API.AllowedOrigins)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("costing: [unclosed"), 0644))
	_, err = Load(configPath)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("DELIVERYCOST_DB_PATH", "env.db")
	os.Setenv("DELIVERYCOST_TENANT", "envco")
	os.Setenv("DELIVERYCOST_BATCH_SIZE", "10")
	os.Setenv("DELIVERYCOST_OVERRIDE_AMOUNT", "52.5")
	os.Setenv("DELIVERYCOST_ALLOWED_ORIGINS", "http://a, http://b ,")
	os.Setenv("LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("DELIVERYCOST_DB_PATH")
		os.Unsetenv("DELIVERYCOST_TENANT")
		os.Unsetenv("DELIVERYCOST_BATCH_SIZE")
		os.Unsetenv("DELIVERYCOST_OVERRIDE_AMOUNT")
		os.Unsetenv("DELIVERYCOST_ALLOWED_ORIGINS")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg := LoadFromEnv()

	assert.Equal(t, "env.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "envco", cfg.Tenant)
	assert.Equal(t, 10, cfg.Costing.BatchSize)
	assert.Equal(t, 52.5, cfg.Costing.OverrideAmount)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.API.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.Equal(t, "text", cfg.Observability.Logging.Format)
}

func TestLoadFromEnv_BadNumbersFallBack(t *testing.T) {
	os.Setenv("DELIVERYCOST_BATCH_SIZE", "lots")
	os.Setenv("DELIVERYCOST_WRITE_TOLERANCE", "tiny")
	defer os.Unsetenv("DELIVERYCOST_BATCH_SIZE")
	defer os.Unsetenv("DELIVERYCOST_WRITE_TOLERANCE")

	cfg := LoadFromEnv()
	assert.Equal(t, DefaultBatchSize, cfg.Costing.BatchSize)
	assert.Equal(t, 0.01, cfg.Costing.WriteTolerance)
}

func TestLoadOrEnvWithPath_FallsBack(t *testing.T) {
	cfg := LoadOrEnvWithPath("/nonexistent/config.yaml")
	require.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.Storage.DatabasePath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"batch too large", func(c *Config) { c.Costing.BatchSize = 26 }, "batch_size"},
		{"batch zero", func(c *Config) { c.Costing.BatchSize = 0 }, "batch_size"},
		{"negative override", func(c *Config) { c.Costing.OverrideAmount = -1 }, "override_amount"},
		{"negative tolerance", func(c *Config) { c.Costing.WriteTolerance = -0.5 }, "write_tolerance"},
		{"unknown tie break", func(c *Config) { c.Costing.TieBreak = "first" }, "tie_break"},
		{"no workers", func(c *Config) { c.Costing.AggregateWorkers = 0 }, "aggregate_workers"},
		{"no writers", func(c *Config) { c.Costing.WriteConcurrency = 0 }, "write_concurrency"},
		{"empty tenant", func(c *Config) { c.Tenant = " " }, "tenant"},
		{"bad port", func(c *Config) { c.API.Port = 70000 }, "api.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("reports every problem", func(t *testing.T) {
		cfg := Default()
		cfg.Costing.BatchSize = 100
		cfg.Costing.TieBreak = "random"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch_size")
		assert.Contains(t, err.Error(), "tie_break")
	})
}
