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
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenValidityDuration)
	assert.True(t, cfg.SecureCookies)
	// secrets intentionally have no default
	assert.Empty(t, cfg.AccessTokenSecret)
	assert.Empty(t, cfg.RefreshTokenSecret)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.LoadDefaults()
		cfg.AccessTokenSecret = "access-secret"
		cfg.RefreshTokenSecret = "refresh-secret"
		return cfg
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing access secret fails", func(t *testing.T) {
		cfg := valid()
		cfg.AccessTokenSecret = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing refresh secret fails", func(t *testing.T) {
		cfg := valid()
		cfg.RefreshTokenSecret = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("identical secrets fail", func(t *testing.T) {
		cfg := valid()
		cfg.RefreshTokenSecret = cfg.AccessTokenSecret
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing DSN fails", func(t *testing.T) {
		cfg := valid()
		cfg.DatabaseDSN = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestParseFlags_Overlay(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"accountd", "-a", ":9090", "-d", "postgres://localhost/accounts", "-t", "5", "-r", "60"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, ":9090", cfg.EndpointAddrHTTP)
	assert.Equal(t, "postgres://localhost/accounts", cfg.DatabaseDSN)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenValidityDuration)
	assert.Equal(t, time.Hour, cfg.RefreshTokenValidityDuration)
}

func TestParseJson_Overlay(t *testing.T) {
	content := `{
		"endpoint_addr_http": ":7070",
		"access_token_secret": "json-access",
		"refresh_token_secret": "json-refresh",
		"access_token_validity_duration": "10m",
		"secure_cookies": false
	}`
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"accountd", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, ":7070", cfg.EndpointAddrHTTP)
	assert.Equal(t, "json-access", cfg.AccessTokenSecret)
	assert.Equal(t, "json-refresh", cfg.RefreshTokenSecret)
	assert.Equal(t, 10*time.Minute, cfg.AccessTokenValidityDuration)
	assert.False(t, cfg.SecureCookies)
	// untouched fields keep their defaults
	assert.Equal(t, "mongodb://localhost:27017/accountd", cfg.DatabaseDSN)
}
