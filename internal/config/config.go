package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds all configuration for the application. It is loaded once
// at startup and treated as immutable afterwards.
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Headers HeaderConfig
	Access  AccessConfig
	Log     LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

// StoreConfig holds trust store configuration.
type StoreConfig struct {
	Driver    string `env:"STORE_DRIVER" envDefault:"redis"`
	RedisURL  string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	DSN       string `env:"DB_DSN"`
	KeyPrefix string `env:"STORE_KEY_PREFIX" envDefault:"trustd:"`
}

// HeaderConfig names the inbound headers carrying the caller's source IP
// and identity. The identity header is trusted completely and must only
// be settable by the upstream identity provider.
type HeaderConfig struct {
	ClientIP string `env:"CLIENT_IP_HEADER" envDefault:"X-Forwarded-For"`
	Identity string `env:"CLIENT_USERNAME_HEADER" envDefault:"X-Forwarded-User"`
}

// AccessConfig holds the static allow-list and decision cache settings.
type AccessConfig struct {
	AllowedNetworks []string      `env:"ALLOWED_NETWORKS" envSeparator:","`
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Store); err != nil {
		return nil, fmt.Errorf("parsing store config: %w", err)
	}
	if err := env.Parse(&cfg.Headers); err != nil {
		return nil, fmt.Errorf("parsing header config: %w", err)
	}
	if err := env.Parse(&cfg.Access); err != nil {
		return nil, fmt.Errorf("parsing access config: %w", err)
	}
	if err := env.Parse(&cfg.Log); err != nil {
		return nil, fmt.Errorf("parsing log config: %w", err)
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AllowedPrefixes parses the configured allow-list into network prefixes.
func (c *AccessConfig) AllowedPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.AllowedNetworks))
	for _, cidr := range c.AllowedNetworks {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid network %q in ALLOWED_NETWORKS: %w", cidr, err)
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "redis":
		if c.Store.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_DRIVER is redis")
		}
	case "postgres", "sqlite3":
		if c.Store.DSN == "" {
			return fmt.Errorf("DB_DSN is required when STORE_DRIVER is %s", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (want redis, postgres or sqlite3)", c.Store.Driver)
	}

	if c.Headers.ClientIP == "" {
		return fmt.Errorf("CLIENT_IP_HEADER must not be empty")
	}
	if c.Headers.Identity == "" {
		return fmt.Errorf("CLIENT_USERNAME_HEADER must not be empty")
	}
	if c.Access.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative")
	}

	if _, err := c.Access.AllowedPrefixes(); err != nil {
		return err
	}

	return nil
}
