package config

import "time"

// Config is the top-level bookswap configuration.
type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Identity IdentityConfig `mapstructure:"identity"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Fixtures FixturesConfig `mapstructure:"fixtures"`
}

// StoreConfig selects and tunes the collection backend.
type StoreConfig struct {
	Driver        string `mapstructure:"driver"` // sqlite, postgres or memory
	Path          string `mapstructure:"path"`
	DSN           string `mapstructure:"dsn"`
	MaxValueBytes int    `mapstructure:"max_value_bytes"`
}

// IdentityConfig controls user id normalization.
type IdentityConfig struct {
	GuestID         string   `mapstructure:"guest_id"`
	ForeignPrefixes []string `mapstructure:"foreign_prefixes"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr      string        `mapstructure:"addr"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	External  ExternalAuth  `mapstructure:"external"`
}

// ExternalAuth verifies identity provider assertions. An empty key disables
// provider sign-in.
type ExternalAuth struct {
	Key      string `mapstructure:"key"`
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// FixturesConfig points at an alternative seed file; empty uses the
// built-in demo data.
type FixturesConfig struct {
	Path string `mapstructure:"path"`
}
