package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultHost, cfg.HTTP.Host)
	assert.Equal(t, defaultPort, cfg.HTTP.Port)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, DefaultAuthSecret, cfg.Auth.Secret)
	assert.Equal(t, int64(defaultMaxUploadBytes), cfg.Compare.MaxUploadBytes)
	assert.Empty(t, cfg.Graph.URI)
	assert.False(t, cfg.Compare.DevMode)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_WRITE_TIMEOUT", "45s")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("AUTH_TOKEN_TTL", "2h")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("COMPARE_DEV_MODE", "true")
	t.Setenv("COMPARE_DEV_DATA_DIR", "/srv/data")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 45*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Compare.DevMode)
	assert.Equal(t, "/srv/data", cfg.Compare.DevDataDir)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"port out of range":    {"SERVER_PORT": "70000"},
		"port not a number":    {"SERVER_PORT": "http"},
		"bad duration":         {"SERVER_READ_TIMEOUT": "soon"},
		"short secret":         {"AUTH_SECRET": "tiny"},
		"dev mode without dir": {"COMPARE_DEV_MODE": "true"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timekeep.yaml")
	content := "server:\n  port: 7070\ndb:\n  path: /tmp/accounts.db\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.HTTP.Port)
	assert.Equal(t, "/tmp/accounts.db", cfg.Database.Path)
}

func TestAllowedOrigins(t *testing.T) {
	cfg := HTTPConfig{AllowedOriginsCSV: " http://a.test, ,http://b.test "}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins())
	assert.Nil(t, HTTPConfig{}.AllowedOrigins())
}
