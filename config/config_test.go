package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "planner.db", cfg.Database.Path)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, time.Hour, cfg.Planning.BackfillEvery)
	assert.Equal(t, "2", cfg.DefaultCapacity().String())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("PLANNING_DEFAULT_CAPACITY", "1.5")
	t.Setenv("PLANNING_BACKFILL_EVERY", "0s")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, "1.5", cfg.DefaultCapacity().String())
	assert.Zero(t, cfg.Planning.BackfillEvery)
}

func TestLoad_File(t *testing.T) {
	// GIVEN: a YAML file and an environment override
	path := filepath.Join(t.TempDir(), "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: prod
server:
  port: 7000
log:
  level: warn
  format: console
planning:
  scenario: default
`), 0o600))
	t.Setenv("LOG_LEVEL", "debug")

	// WHEN
	cfg, err := Load(path)

	// THEN: file values apply, the environment wins
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "default", cfg.Planning.Scenario)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"db path", func(c *Config) { c.Database.Path = "" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"capacity not a number", func(c *Config) { c.Planning.DefaultCapacity = "two" }},
		{"negative capacity", func(c *Config) { c.Planning.DefaultCapacity = "-1" }},
		{"negative interval", func(c *Config) { c.Planning.BackfillEvery = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)

			tt.mutate(cfg)

			assert.Error(t, cfg.Validate())
		})
	}
}

func TestUsage_ListsVariables(t *testing.T) {
	text := Usage()

	assert.Contains(t, text, "SERVER_PORT")
	assert.Contains(t, text, "DB_PATH")
}
