package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the agent's top-level configuration, loaded from a YAML file
// layered with environment variable overrides.
type Config struct {
	AVS     AVSConfig     `mapstructure:"avs"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Timer   TimerConfig   `mapstructure:"timer"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	API     APIConfig     `mapstructure:"api"`
}

// AVSConfig configures the Applied-Versions Store.
type AVSConfig struct {
	// Path is the packed-binary snapshot file the store loads from and
	// persists to.
	Path string `mapstructure:"path"`
	// CacheSize bounds the read-through LRU cache in front of Lookup.
	// 0 disables the cache.
	CacheSize int `mapstructure:"cache_size"`
	// SQLiteMirrorPath names an embedded sqlite database for the debug
	// mirror in internal/agent/store/sqlite. The engine does not open the
	// mirror from this setting, and AVS upserts are not written to it.
	SQLiteMirrorPath string `mapstructure:"sqlite_mirror_path"`
}

// QueueConfig configures the event queue.
type QueueConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// TimerConfig holds the timer settings. TickInterval is validated, but the
// timer table always ticks at timer.TickInterval (5s) and does not read it.
type TimerConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// RetryConfig configures the retry engine's circuit breaker.
type RetryConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	BreakerTimeout   time.Duration `mapstructure:"breaker_timeout"`
}

// FetchConfig configures the bundle fetcher.
type FetchConfig struct {
	URL             string        `mapstructure:"url"`
	AuthToken       string        `mapstructure:"auth_token"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// LogConfig holds logging-related configuration, unchanged in shape from
// the teacher's pkg/logger.Config.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig holds metrics-related configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// APIConfig holds the debug/health HTTP surface configuration.
type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")

		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigFromEnv loads configuration from environment variables only.
func LoadConfigFromEnv() (*Config, error) {
	setDefaults()
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("avs.path", "/data/webconfig/applied_versions.bin")
	viper.SetDefault("avs.cache_size", 256)
	viper.SetDefault("avs.sqlite_mirror_path", "")

	viper.SetDefault("queue.capacity", 256)

	viper.SetDefault("timer.tick_interval", "5s")

	viper.SetDefault("retry.failure_threshold", 5)
	viper.SetDefault("retry.success_threshold", 2)
	viper.SetDefault("retry.breaker_timeout", "30s")

	viper.SetDefault("fetch.timeout", "10s")
	viper.SetDefault("fetch.max_elapsed_time", "30s")
	viper.SetDefault("fetch.refresh_interval", "5m")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.filename", "")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.addr", ":9080")
}

// Validate checks the configuration for internally-inconsistent values.
func (c *Config) Validate() error {
	if c.AVS.Path == "" {
		return fmt.Errorf("avs.path cannot be empty")
	}
	if c.Queue.Capacity <= 0 {
		return fmt.Errorf("queue.capacity must be positive")
	}
	if c.Timer.TickInterval <= 0 {
		return fmt.Errorf("timer.tick_interval must be positive")
	}
	if c.Log.Level == "" {
		return fmt.Errorf("log level cannot be empty")
	}
	if c.API.Enabled && c.API.Addr == "" {
		return fmt.Errorf("api.addr cannot be empty when api.enabled is true")
	}
	return nil
}
