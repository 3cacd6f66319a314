package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoad(t *testing.T) {
	t.Run("file values and defaults", func(t *testing.T) {
		dir := writeConfig(t, `
database:
  host: db
  user: store
  dbname: storefront
xendit:
  secret_key: xnd_development_abc
  timeout: 3s
`)
		cfg, err := Load("config", dir)
		require.NoError(t, err)

		assert.Equal(t, "db", cfg.Database.Host)
		assert.Equal(t, "5432", cfg.Database.Port)
		assert.Equal(t, "xnd_development_abc", cfg.Xendit.SecretKey)
		assert.Equal(t, 3*time.Second, cfg.Xendit.Timeout)
		assert.Equal(t, "https://api.xendit.co", cfg.Xendit.BaseURL)
		assert.Equal(t, 24*time.Hour, cfg.Monitor.Lookback)
		assert.Equal(t, "8080", cfg.Server.Port)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		dir := writeConfig(t, `
database:
  host: db
  user: store
  dbname: storefront
`)
		t.Setenv("XENDIT_SECRET_KEY", "xnd_from_env")
		t.Setenv("DB_HOST", "db.internal")

		cfg, err := Load("config", dir)
		require.NoError(t, err)
		assert.Equal(t, "xnd_from_env", cfg.Xendit.SecretKey)
		assert.Equal(t, "db.internal", cfg.Database.Host)
	})

	t.Run("missing database is rejected", func(t *testing.T) {
		dir := writeConfig(t, "server:\n  port: \"9000\"\n")
		_, err := Load("config", dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database configuration is incomplete")
	})

	t.Run("short jwt secret is rejected", func(t *testing.T) {
		dir := writeConfig(t, `
database:
  url: postgres://u:p@localhost:5432/db
jwt:
  secret: short
`)
		_, err := Load("config", dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT secret")
	})
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", User: "u", Password: "p", DBName: "n", Port: "5432", SSLMode: "disable", TimeZone: "UTC"}
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable&TimeZone=UTC", d.DSN())

	d.URL = "postgres://override"
	assert.Equal(t, "postgres://override", d.DSN())
}
