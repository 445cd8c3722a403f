package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conduit-lang/conduit-sdk/pkg/sdk/apierr"
)

const (
	// EnvPrefix prefixes every environment override, e.g. CONDUIT_SDK_AUTH_TOKEN
	EnvPrefix = "CONDUIT_SDK"

	// MaxAttempts is the upper clamp of the retry budget
	MaxAttempts = 10
)

// Auth schemes
const (
	SchemeCookie = "cookie"
	SchemeToken  = "token"
)

// Cache backends
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config represents the SDK service configuration
type Config struct {
	URL     string        `mapstructure:"url"`
	Version string        `mapstructure:"version"`
	Timeout time.Duration `mapstructure:"timeout"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Errors  ErrorsConfig  `mapstructure:"errors"`
	Cache   CacheConfig   `mapstructure:"cache"`
	DNS     DNSConfig     `mapstructure:"dns"`
}

// AuthConfig represents authentication and transport options
type AuthConfig struct {
	Scheme             string `mapstructure:"scheme"`
	Token              string `mapstructure:"token"`
	CookieName         string `mapstructure:"cookie_name"`
	Gzip               bool   `mapstructure:"gzip"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// RetryConfig represents the retry budget and backoff bounds
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// ErrorsConfig represents the error handling policy
type ErrorsConfig struct {
	Disposition string `mapstructure:"disposition"`
}

// CacheConfig represents the response cache backend
type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig represents the redis connection used by the redis cache backend
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DNSConfig represents host resolution options
type DNSConfig struct {
	Check            bool `mapstructure:"check"`
	ResolveLocalhost bool `mapstructure:"resolve_localhost"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Version: "v3",
		Timeout: 30 * time.Second,
		Auth: AuthConfig{
			Scheme:     SchemeCookie,
			CookieName: "session",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   15 * time.Millisecond,
			MaxDelay:    500 * time.Millisecond,
		},
		Errors: ErrorsConfig{Disposition: apierr.Rethrow.String()},
		Cache: CacheConfig{
			Backend: CacheNone,
			TTL:     5 * time.Minute,
			Prefix:  "conduit-sdk:",
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
	}
}

// Load reads configuration from path, or from conduit-sdk.yml in the working
// directory when path is empty. A missing default file is not an error; a
// missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("conduit-sdk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("url", d.URL)
	v.SetDefault("version", d.Version)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("auth.scheme", d.Auth.Scheme)
	v.SetDefault("auth.token", d.Auth.Token)
	v.SetDefault("auth.cookie_name", d.Auth.CookieName)
	v.SetDefault("auth.gzip", d.Auth.Gzip)
	v.SetDefault("auth.insecure_skip_verify", d.Auth.InsecureSkipVerify)
	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.base_delay", d.Retry.BaseDelay)
	v.SetDefault("retry.max_delay", d.Retry.MaxDelay)
	v.SetDefault("errors.disposition", d.Errors.Disposition)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.prefix", d.Cache.Prefix)
	v.SetDefault("cache.redis.addr", d.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", d.Cache.Redis.Password)
	v.SetDefault("cache.redis.db", d.Cache.Redis.DB)
	v.SetDefault("dns.check", d.DNS.Check)
	v.SetDefault("dns.resolve_localhost", d.DNS.ResolveLocalhost)
}

// Normalize clamps out-of-range values and validates the rest
func (c *Config) Normalize() error {
	if c.Retry.MaxAttempts < 0 {
		c.Retry.MaxAttempts = 0
	}
	if c.Retry.MaxAttempts > MaxAttempts {
		c.Retry.MaxAttempts = MaxAttempts
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		c.Retry.MaxDelay = c.Retry.BaseDelay
	}
	c.URL = strings.TrimRight(c.URL, "/")
	c.Auth.Scheme = strings.ToLower(c.Auth.Scheme)
	c.Cache.Backend = strings.ToLower(c.Cache.Backend)
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheNone
	}
	return validateConfig(c)
}

// Disposition returns the parsed error disposition
func (c *Config) Disposition() apierr.Disposition {
	d, _ := apierr.ParseDisposition(c.Errors.Disposition)
	return d
}

// BaseURL returns the service URL with the API version appended
func (c *Config) BaseURL() string {
	if c.Version == "" {
		return c.URL
	}
	return c.URL + "/" + c.Version
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return fmt.Errorf("url is invalid: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("url must use http or https, got: %s", cfg.URL)
		}
		if u.Host == "" {
			return fmt.Errorf("url must include a host, got: %s", cfg.URL)
		}
	}

	switch cfg.Auth.Scheme {
	case SchemeCookie, SchemeToken:
	default:
		return fmt.Errorf("auth.scheme must be %q or %q, got: %s", SchemeCookie, SchemeToken, cfg.Auth.Scheme)
	}

	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got: %s", cfg.Timeout)
	}
	if cfg.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry.base_delay must not be negative, got: %s", cfg.Retry.BaseDelay)
	}

	if _, err := apierr.ParseDisposition(cfg.Errors.Disposition); err != nil {
		return fmt.Errorf("errors.disposition: %w", err)
	}

	switch cfg.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if cfg.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be one of none, memory, redis, got: %s", cfg.Cache.Backend)
	}
	return nil
}
