package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Redis.IdempotencyTTL())
	assert.Equal(t, 0.19, cfg.Pricing.VATRate)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8082", cfg.Server.Port)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  env: production
  log_level: warn
database:
  host: db.internal
  name: pneus
kafka:
  brokers: ["k1:9092"]
  topic: lifecycle
pricing:
  vat_rate: 0.07
retry:
  max_attempts: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, "warn", cfg.App.LogLevel)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "3306", cfg.Database.Port, "unset keys keep defaults")
	assert.Equal(t, []string{"k1:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 0.07, cfg.Pricing.VATRate)
	assert.Equal(t, 8, cfg.Retry.RetryPolicy().MaxAttempts)
}

func TestEnvOverridesYAML(t *testing.T) {
	t.Setenv("DB_HOST", "mysql-primary")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("RETRY_MAX_ATTEMPTS", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "mysql-primary", cfg.Database.Host)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts, "invalid numbers are ignored")
}

func TestTestEnvUsesMemoryStore(t *testing.T) {
	t.Setenv("ENV", "test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Driver = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Pricing.VATRate = 1.5
	assert.Error(t, cfg.Validate())
}

func TestInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "3306", Name: "n"}
	assert.Equal(t, "u:p@tcp(h:3306)/n?parseTime=true&loc=UTC", d.DSN())
}
