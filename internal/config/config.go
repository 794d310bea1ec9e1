package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all runtime settings. Values come from defaults, an
// optional config file and ENRICH_* environment variables, in increasing
// priority.
type Config struct {
	LogLevel           string        `mapstructure:"log_level"`
	UserAgent          string        `mapstructure:"user_agent"`
	HTTPTimeout        time.Duration `mapstructure:"http_timeout"`
	DialTimeout        time.Duration `mapstructure:"dial_timeout"`
	MaxBodyBytes       int64         `mapstructure:"max_body_bytes"`
	MaxSubpages        int           `mapstructure:"max_subpages"`
	SubpageConcurrency int           `mapstructure:"subpage_concurrency"`
	RequestDelay       time.Duration `mapstructure:"request_delay"`
	CatalogPath        string        `mapstructure:"catalog_path"`
	ServerAddr         string        `mapstructure:"server_addr"`
	BatchConcurrency   int           `mapstructure:"batch_concurrency"`
	DetectLanguage     bool          `mapstructure:"detect_language"`
}

const envPrefix = "ENRICH"

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("user_agent", "")
	v.SetDefault("http_timeout", 10*time.Second)
	v.SetDefault("dial_timeout", 5*time.Second)
	v.SetDefault("max_body_bytes", 5*1024*1024)
	v.SetDefault("max_subpages", 12)
	v.SetDefault("subpage_concurrency", 1)
	v.SetDefault("request_delay", time.Duration(0))
	v.SetDefault("catalog_path", "")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("batch_concurrency", 4)
	v.SetDefault("detect_language", true)
}

// Load reads the configuration. path may be empty; a named file that
// cannot be read is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.HTTPTimeout <= 0:
		return fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	case c.MaxSubpages < 0:
		return fmt.Errorf("max_subpages must not be negative, got %d", c.MaxSubpages)
	case c.SubpageConcurrency < 1:
		return fmt.Errorf("subpage_concurrency must be at least 1, got %d", c.SubpageConcurrency)
	case c.RequestDelay < 0:
		return fmt.Errorf("request_delay must not be negative, got %s", c.RequestDelay)
	case c.BatchConcurrency < 1:
		return fmt.Errorf("batch_concurrency must be at least 1, got %d", c.BatchConcurrency)
	}
	return nil
}
