// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"errors"
	"time"
)

// Config holds runtime settings for the accountd server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the public HTTP endpoint.
//   - DatabaseDSN: store DSN; mongodb:// selects the document backend,
//     postgres:// the relational one.
//   - AccessTokenSecret / RefreshTokenSecret: distinct HMAC secrets for
//     signing the two token kinds (HS256), so either can be rotated alone.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token
//     lifetimes.
//   - SecureCookies: mark session cookies Secure; disable only for local
//     plain-HTTP development.
type Config struct {
	EndpointAddrHTTP             string
	DatabaseDSN                  string
	AccessTokenSecret            string
	RefreshTokenSecret           string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	SecureCookies                bool
}

// LoadDefaults populates Config with development defaults. The signing
// secrets have no default: they must always be supplied.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.DatabaseDSN = "mongodb://localhost:27017/accountd"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 30 * 24 * time.Hour
	c.SecureCookies = true
}

// Validate checks the startup invariants. A missing signing secret is a
// fatal condition, not something to discover per request.
func (c *Config) Validate() error {
	if c.AccessTokenSecret == "" {
		return errors.New("access token secret is required")
	}
	if c.RefreshTokenSecret == "" {
		return errors.New("refresh token secret is required")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	if c.DatabaseDSN == "" {
		return errors.New("database DSN is required")
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
