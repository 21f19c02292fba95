package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medbot/pkg/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.6, cfg.Matching.MedicineCutoff)
	assert.Equal(t, 0.7, cfg.Matching.SymptomCutoff)
	assert.Equal(t, 10*time.Minute, cfg.Alternatives.CacheTTL)
	assert.Equal(t, "medbot.predictions", cfg.Redis.Channel)
	assert.Equal(t, "data/medicines.csv", cfg.Data.Medicines)
	assert.Equal(t, []string{"*"}, cfg.Security.AllowedOrigins)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yml := `
server:
  port: 9090
database:
  host: db.internal
  port: 6543
alternatives:
  limit: 3
  cache_ttl: 30s
outbox:
  poll_interval: 250ms
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o600))

	t.Setenv("DB_HOST", "override.internal")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "override.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, 3, cfg.Alternatives.Limit)
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.PollInterval)
	// Untouched keys keep their defaults.
	assert.Equal(t, 60, cfg.Alternatives.MinScore)

	assert.Equal(t,
		"host=override.internal port=6543 user=medbot password= dbname=medbot sslmode=disable",
		cfg.Database.DSN())
}

func TestLoadConfigRejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("server: [port"), 0o600))

	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig(t.TempDir())
		require.NoError(t, err)
		return cfg
	}

	tests := map[string]func(*Config){
		"port":            func(c *Config) { c.Server.Port = 0 },
		"database port":   func(c *Config) { c.Database.Port = 70000 },
		"medicine cutoff": func(c *Config) { c.Matching.MedicineCutoff = 1.5 },
		"symptom cutoff":  func(c *Config) { c.Matching.SymptomCutoff = 0 },
		"score window":    func(c *Config) { c.Alternatives.MinScore = 95 },
		"openai key":      func(c *Config) { c.OpenAI.Enabled = true; c.OpenAI.APIKey = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := valid()
	cfg.Database.Enabled = false
	cfg.Database.Port = 0
	assert.NoError(t, cfg.Validate())
}

func TestConversions(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	rc := cfg.Alternatives.ToRankerConfig()
	assert.Equal(t, 60, rc.MinScore)
	assert.Equal(t, 95, rc.ExcludeScore)

	wc := cfg.Outbox.ToWorkerConfig(cfg.Redis.Channel)
	assert.NoError(t, wc.Validate())

	assert.Equal(t, "data/diets.csv", cfg.Data.ToRefdataConfig().Diets)
	assert.Equal(t, 256, cfg.PredictionLog.ToSinkConfig().Buffer)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.ToBrokerConfig().URL)

	cfg.Log.Level = "debug"
	assert.Equal(t, logger.DebugLevel, cfg.Log.ToLoggerConfig().Level)
}
