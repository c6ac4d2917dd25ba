// Package config loads catalog client settings from a YAML file, the
// environment and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/card-catalog-client/pkg/catalog"
	"github.com/Sternrassler/card-catalog-client/pkg/client"
	"github.com/Sternrassler/card-catalog-client/pkg/logging"
	"github.com/Sternrassler/card-catalog-client/pkg/pagination"
)

// Environment variables read by ApplyEnv.
const (
	EnvBaseURL     = "CATALOG_BASE_URL"
	EnvUserAgent   = "CATALOG_USER_AGENT"
	EnvPageSize    = "CATALOG_PAGE_SIZE"
	EnvPartitions  = "CATALOG_PARTITIONS"
	EnvRedisURL    = "REDIS_URL"
	EnvLogLevel    = "LOG_LEVEL"
	EnvMetricsAddr = "METRICS_ADDR"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all runtime settings.
type Config struct {
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`

	// PageSize is the number of cards requested per page
	PageSize int `yaml:"page_size"`

	// Partitions overrides the default expansion sequence
	Partitions []string `yaml:"partitions"`

	// RedisURL enables the shared rate-limit budget: "host:port" or "redis://..."
	RedisURL string `yaml:"redis_url"`

	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxAttempts       int           `yaml:"max_attempts"`

	LogLevel    string `yaml:"log_level"`
	Pretty      bool   `yaml:"pretty"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the built-in settings.
func Default() Config {
	cc := client.DefaultConfig("http://localhost:3000", "card-catalog-client/0.1.0")
	return Config{
		BaseURL:           cc.BaseURL,
		UserAgent:         cc.UserAgent,
		PageSize:          pagination.DefaultPageSize,
		RequestsPerSecond: cc.RequestsPerSecond,
		Burst:             cc.Burst,
		Timeout:           cc.Timeout,
		MaxAttempts:       cc.Retry.MaxAttempts,
		LogLevel:          string(logging.LevelInfo),
	}
}

// Load builds a Config from defaults, the optional YAML file at path and the
// process environment. Flags are applied separately with ApplyFlags.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBaseURL); ok {
		c.BaseURL = v
	}
	if v, ok := lookup(EnvUserAgent); ok {
		c.UserAgent = v
	}
	if v, ok := lookup(EnvPageSize); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPageSize, err)
		}
		c.PageSize = n
	}
	if v, ok := lookup(EnvPartitions); ok {
		c.Partitions = splitList(v)
	}
	if v, ok := lookup(EnvRedisURL); ok {
		c.RedisURL = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		c.MetricsAddr = v
	}
	return nil
}

// Validate checks every field.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base_url must be an http(s) URL (got %q)", ErrInvalidConfig, c.BaseURL)
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return fmt.Errorf("%w: user_agent is required", ErrInvalidConfig)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("%w: page_size must be positive (got %d)", ErrInvalidConfig, c.PageSize)
	}
	if _, err := c.Sequence(); err != nil {
		return fmt.Errorf("%w: partitions: %w", ErrInvalidConfig, err)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second must not be negative", ErrInvalidConfig)
	}
	if c.Burst < 0 {
		return fmt.Errorf("%w: burst must not be negative", ErrInvalidConfig)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max_attempts must be at least 1", ErrInvalidConfig)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.RedisURL != "" {
		if _, err := c.redisOptions(); err != nil {
			return fmt.Errorf("%w: redis_url: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Sequence returns the configured partitions or the default sequence.
func (c Config) Sequence() (catalog.Sequence, error) {
	if len(c.Partitions) == 0 {
		return catalog.DefaultSequence(), nil
	}
	return catalog.ParseSequence(c.Partitions)
}

// Logging returns the logger settings.
func (c Config) Logging() logging.Config {
	lc := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.LogLevel); err == nil {
		lc.Level = level
	}
	lc.Pretty = c.Pretty
	return lc
}

// NewRedis connects to RedisURL. Returns nil when no URL is configured.
func (c Config) NewRedis() (*redis.Client, error) {
	if c.RedisURL == "" {
		return nil, nil
	}
	opts, err := c.redisOptions()
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

func (c Config) redisOptions() (*redis.Options, error) {
	if strings.Contains(c.RedisURL, "://") {
		return redis.ParseURL(c.RedisURL)
	}
	return &redis.Options{Addr: c.RedisURL}, nil
}

// Client returns the HTTP gateway settings. rdb may be nil.
func (c Config) Client(rdb *redis.Client) client.Config {
	cc := client.DefaultConfig(c.BaseURL, c.UserAgent)
	cc.Redis = rdb
	cc.RequestsPerSecond = c.RequestsPerSecond
	cc.Burst = c.Burst
	if c.Timeout > 0 {
		cc.Timeout = c.Timeout
	}
	cc.Retry.MaxAttempts = c.MaxAttempts
	return cc
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
