package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Location lookups
	GeocodeURL     string `mapstructure:"geocode_url" yaml:"geocode_url"`
	GeocodeAPIKey  string `mapstructure:"geocode_api_key" yaml:"geocode_api_key"`
	GeocodeCountry string `mapstructure:"geocode_country" yaml:"geocode_country"`
	GeocodeDelayMs int    `mapstructure:"geocode_delay_ms" yaml:"geocode_delay_ms"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Location cache
	CacheBackend  string `mapstructure:"cache_backend" yaml:"cache_backend"`
	CachePath     string `mapstructure:"cache_path" yaml:"cache_path"`
	CacheTTLHours int    `mapstructure:"cache_ttl_hours" yaml:"cache_ttl_hours"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix" yaml:"redis_prefix"`

	// Remediation
	CompletenessThreshold float64 `mapstructure:"completeness_threshold" yaml:"completeness_threshold"`
	OutlierSizeCutoff     int     `mapstructure:"outlier_size_cutoff" yaml:"outlier_size_cutoff"`

	// Segmentation
	KMin          int   `mapstructure:"k_min" yaml:"k_min"`
	KMax          int   `mapstructure:"k_max" yaml:"k_max"`
	KMeansNInit   int   `mapstructure:"kmeans_n_init" yaml:"kmeans_n_init"`
	KMeansMaxIter int   `mapstructure:"kmeans_max_iter" yaml:"kmeans_max_iter"`
	Seed          int64 `mapstructure:"seed" yaml:"seed"`
	Workers       int   `mapstructure:"workers" yaml:"workers"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// GeocodeDelay is the minimum spacing between location lookups.
func (c *Global) GeocodeDelay() time.Duration {
	return time.Duration(c.GeocodeDelayMs) * time.Millisecond
}

// CacheTTL is how long persisted lookups stay valid.
func (c *Global) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// Dir returns ~/.tidyseg.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tidyseg"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tidyseg/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory is read first; variables already
// set in the environment win over it.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TIDYSEG")
	v.AutomaticEnv()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// A missing file is fine; a malformed one is not.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.CachePath == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.CachePath = filepath.Join(dir, "locations.db")
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("geocode_url", "https://geocode.maps.co/search")
	v.SetDefault("geocode_api_key", "")
	v.SetDefault("geocode_country", "Malaysia")
	v.SetDefault("geocode_delay_ms", 1200)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 10)
	v.SetDefault("retry_max_attempts", 2)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// cache
	v.SetDefault("cache_backend", "memory")
	v.SetDefault("cache_path", "")
	v.SetDefault("cache_ttl_hours", 720)
	v.SetDefault("redis_addr", "127.0.0.1:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_prefix", "tidyseg:loc:")
	// remediation
	v.SetDefault("completeness_threshold", 0.8)
	v.SetDefault("outlier_size_cutoff", 500)
	// segmentation
	v.SetDefault("k_min", 2)
	v.SetDefault("k_max", 10)
	v.SetDefault("kmeans_n_init", 10)
	v.SetDefault("kmeans_max_iter", 300)
	v.SetDefault("seed", 42)
	v.SetDefault("workers", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}
