// Package config loads the audit service configuration from a YAML file,
// the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mamamialezatoz/go-pmaudit/internal/logger"
)

// EnvPrefix prefixes every environment variable read by the service
const EnvPrefix = "PMAUDIT"

// Config is the complete service configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logger     logger.Config    `mapstructure:"logger"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Policy     PolicyConfig     `mapstructure:"policy"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	RequestLog RequestLogConfig `mapstructure:"request_log"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	Debug           bool          `mapstructure:"debug"`
}

// FetchConfig configures page downloads
type FetchConfig struct {
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxBodySize int64         `mapstructure:"max_body_size"`
}

// PolicyConfig configures where the exclusion policy comes from
type PolicyConfig struct {
	Path        string        `mapstructure:"path"`
	URL         string        `mapstructure:"url"`
	CacheDir    string        `mapstructure:"cache_dir"`
	CacheExpiry time.Duration `mapstructure:"cache_expiry"`
	Watch       bool          `mapstructure:"watch"`
}

// ScoringConfig configures the PageSpeed Insights and CrUX lookups
type ScoringConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	Concurrency    int           `mapstructure:"concurrency"`
	FieldCacheSize int           `mapstructure:"field_cache_size"`
	FieldCacheTTL  time.Duration `mapstructure:"field_cache_ttl"`
}

// RequestLogConfig configures the per-request log files
type RequestLogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// Load reads the configuration. Values come, by increasing precedence,
// from defaults, the config file, then PMAUDIT_* environment variables
// (a .env file in the working directory is loaded first). An empty path
// looks for config.yaml in the working directory and ./config; a missing
// file is only an error when path is given explicitly.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// API_KEY is accepted for existing deployments
	if err := v.BindEnv("scoring.api_key", EnvPrefix+"_SCORING_API_KEY", "API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind API_KEY: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Logger.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so that environment overrides apply to it
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.debug", false)

	v.SetDefault("logger.level", logger.DefaultLevel)
	v.SetDefault("logger.format", logger.DefaultFormat)
	v.SetDefault("logger.output_paths", logger.DefaultOutputPaths)
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", logger.DefaultMaxSizeMB)
	v.SetDefault("logger.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("logger.max_age_days", logger.DefaultMaxAgeDays)

	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.max_body_size", 10<<20)

	v.SetDefault("policy.path", "")
	v.SetDefault("policy.url", "")
	v.SetDefault("policy.cache_dir", "")
	v.SetDefault("policy.cache_expiry", 24*time.Hour)
	v.SetDefault("policy.watch", true)

	v.SetDefault("scoring.timeout", 30*time.Second)
	v.SetDefault("scoring.max_retries", 3)
	v.SetDefault("scoring.initial_backoff", time.Second)
	v.SetDefault("scoring.concurrency", 10)
	v.SetDefault("scoring.field_cache_size", 512)
	v.SetDefault("scoring.field_cache_ttl", 6*time.Hour)

	v.SetDefault("request_log.enabled", true)
	v.SetDefault("request_log.dir", "logs")
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	switch c.Logger.Format {
	case logger.FormatJSON, logger.FormatConsole:
	default:
		errs = append(errs, fmt.Errorf("logger.format must be %q or %q", logger.FormatJSON, logger.FormatConsole))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch.timeout must be positive"))
	}
	if c.Policy.Path != "" && c.Policy.URL != "" {
		errs = append(errs, errors.New("policy.path and policy.url are mutually exclusive"))
	}
	if c.Scoring.MaxRetries < 0 {
		errs = append(errs, errors.New("scoring.max_retries must not be negative"))
	}
	if c.Scoring.Concurrency <= 0 {
		errs = append(errs, errors.New("scoring.concurrency must be positive"))
	}
	if c.RequestLog.Enabled && c.RequestLog.Dir == "" {
		errs = append(errs, errors.New("request_log.dir is required when request logs are enabled"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
