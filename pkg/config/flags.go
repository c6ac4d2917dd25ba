package config

import (
	"github.com/spf13/pflag"
)

// Flag names registered by RegisterFlags.
const (
	FlagConfig      = "config"
	FlagBaseURL     = "base-url"
	FlagUserAgent   = "user-agent"
	FlagPageSize    = "page-size"
	FlagPartitions  = "partitions"
	FlagRedis       = "redis"
	FlagLogLevel    = "log-level"
	FlagPretty      = "pretty"
	FlagMetricsAddr = "metrics-addr"
)

// RegisterFlags defines the configuration flags on fs. Defaults shown in
// help come from Default; only flags set on the command line override the
// file and environment.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagConfig, "", "path to a YAML config file")
	fs.String(FlagBaseURL, d.BaseURL, "catalog API base URL")
	fs.String(FlagUserAgent, d.UserAgent, "User-Agent sent with every request")
	fs.Int(FlagPageSize, d.PageSize, "cards per page")
	fs.StringSlice(FlagPartitions, nil, "expansion codes to traverse, in order (default: built-in sequence)")
	fs.String(FlagRedis, "", "Redis address or URL for the shared rate-limit budget")
	fs.String(FlagLogLevel, d.LogLevel, "log level (debug, info, warn, error)")
	fs.Bool(FlagPretty, false, "human-readable log output")
	fs.String(FlagMetricsAddr, "", "serve Prometheus metrics on this address")
}

// ApplyFlags copies every flag that was set on the command line.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	set := func(name string, apply func() error) {
		if err != nil || fs.Lookup(name) == nil || !fs.Changed(name) {
			return
		}
		err = apply()
	}

	set(FlagBaseURL, func() (e error) { c.BaseURL, e = fs.GetString(FlagBaseURL); return })
	set(FlagUserAgent, func() (e error) { c.UserAgent, e = fs.GetString(FlagUserAgent); return })
	set(FlagPageSize, func() (e error) { c.PageSize, e = fs.GetInt(FlagPageSize); return })
	set(FlagPartitions, func() (e error) { c.Partitions, e = fs.GetStringSlice(FlagPartitions); return })
	set(FlagRedis, func() (e error) { c.RedisURL, e = fs.GetString(FlagRedis); return })
	set(FlagLogLevel, func() (e error) { c.LogLevel, e = fs.GetString(FlagLogLevel); return })
	set(FlagPretty, func() (e error) { c.Pretty, e = fs.GetBool(FlagPretty); return })
	set(FlagMetricsAddr, func() (e error) { c.MetricsAddr, e = fs.GetString(FlagMetricsAddr); return })

	return err
}
