// Package config loads Grandline settings from a .env file, an optional YAML
// file and GRANDLINE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "GRANDLINE"

// Config is a nil-safe view over a viper instance.
type Config struct {
	v *viper.Viper
}

// New wraps v. A nil v yields a Config whose getters return zero values.
func New(v *viper.Viper) *Config {
	return &Config{v: v}
}

// Load reads configuration. path may name a YAML file explicitly; when
// empty, grandline.yaml is looked up in . and /etc/grandline and its absence
// is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("grandline")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/grandline")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return New(v), nil
}

// SetDefaults registers every known key with its default value. Keys must
// be registered for AutomaticEnv to resolve them during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.path", "grandline.db")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.busy_timeout", "5s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.admin_username", "admin")
	v.SetDefault("auth.admin_password", "")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "15m")
	v.SetDefault("rate_limit.trust_proxy", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Viper returns the underlying instance, which may be nil.
func (c *Config) Viper() *viper.Viper { return c.v }

func (c *Config) GetString(key string) string {
	if c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

func (c *Config) GetInt(key string) int {
	if c.v == nil {
		return 0
	}
	return c.v.GetInt(key)
}

func (c *Config) GetBool(key string) bool {
	if c.v == nil {
		return false
	}
	return c.v.GetBool(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	if c.v == nil {
		return 0
	}
	return c.v.GetDuration(key)
}

func (c *Config) IsSet(key string) bool {
	if c.v == nil {
		return false
	}
	return c.v.IsSet(key)
}

// Sub returns the subtree at key. A missing subtree yields an empty Config,
// never nil.
func (c *Config) Sub(key string) *Config {
	if c.v == nil {
		return New(nil)
	}
	return New(c.v.Sub(key))
}

func (c *Config) Unmarshal(target any) error {
	if c.v == nil {
		return nil
	}
	return c.v.Unmarshal(target)
}

// Environment returns the deployment environment name.
func (c *Config) Environment() string { return c.GetString("environment") }

// IsProduction reports whether internal error details must be hidden.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment(), "production")
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.GetString("server.host"), strconv.Itoa(c.GetInt("server.port")))
}
