// Package config loads ncinspect settings from defaults, an optional YAML
// file and NCVIEW_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, for example
// NCVIEW_REMOTE_TIMEOUT for remote.timeout.
const EnvPrefix = "NCVIEW"

type Config struct {
	LogLevel string       `mapstructure:"log_level"`
	Remote   RemoteConfig `mapstructure:"remote"`
	Server   ServerConfig `mapstructure:"server"`
	S3       S3Config     `mapstructure:"s3"`
	MinIO    MinIOConfig  `mapstructure:"minio"`
	Guest    GuestConfig  `mapstructure:"guest"`
}

// RemoteConfig controls HTTP range reads.
type RemoteConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	// Requests per second; 0 disables throttling.
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`
	// Bytes read per request while parsing the header.
	HeaderBurst int `mapstructure:"header_burst"`
}

// ServerConfig controls `ncinspect serve`.
type ServerConfig struct {
	Addr        string        `mapstructure:"addr"`
	Root        string        `mapstructure:"root"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// URL prefixes POST /handles may open remotely. Empty refuses every
	// remote open.
	AllowedRemotes []string `mapstructure:"allowed_remotes"`
}

// GuestConfig locates the wasip1 build of the native library used by
// `ncinspect guest`.
type GuestConfig struct {
	Module string `mapstructure:"module"`
}

type S3Config struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Load reads configuration. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")

	v.SetDefault("remote.timeout", 30*time.Second)
	v.SetDefault("remote.user_agent", "ncinspect")
	v.SetDefault("remote.rate_limit", 0)
	v.SetDefault("remote.burst", 1)
	v.SetDefault("remote.header_burst", 8<<10)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.root", ".")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.allowed_remotes", []string{})

	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.use_ssl", false)

	v.SetDefault("guest.module", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that cannot work.
func (c *Config) Validate() error {
	if c.Remote.HeaderBurst <= 0 {
		return fmt.Errorf("remote.header_burst must be positive, got %d", c.Remote.HeaderBurst)
	}
	if c.Remote.RateLimit < 0 {
		return fmt.Errorf("remote.rate_limit must not be negative, got %g", c.Remote.RateLimit)
	}
	if c.Remote.RateLimit > 0 && c.Remote.Burst < 1 {
		return fmt.Errorf("remote.burst must be at least 1 when rate_limit is set, got %d", c.Remote.Burst)
	}
	return nil
}
