// Package config provides configuration loading and validation for the
// ceres CLI.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ceres-project/ceres/pkg/ceres"
)

// Sentinel validation errors.
var (
	ErrInvalidCachingBehavior = errors.New("invalid default slice caching behavior")
	ErrInvalidNodeCacheSize   = errors.New("node cache capacity must be positive")
	ErrInvalidLogLevel        = errors.New("invalid log level")
)

// Default configuration values.
const (
	defaultCachingBehavior = "latest"
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
)

// Config holds all configuration for the ceres CLI.
type Config struct {
	Tree          TreeConfig          `mapstructure:"tree"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// TreeConfig controls the default behaviour of trees opened by the CLI.
type TreeConfig struct {
	// DefaultCachingBehavior is one of "none", "latest", "all"; applied via
	// ceres.SetDefaultSliceCachingBehavior before any tree is touched.
	DefaultCachingBehavior string `mapstructure:"default_caching_behavior"`

	// NodeCacheCapacity is validated (it must be positive) but not applied:
	// every Tree sizes its name->Node cache with ceres.DefaultNodeCacheCapacity.
	NodeCacheCapacity int `mapstructure:"node_cache_capacity"`
}

// ObservabilityConfig controls logging and metrics for the CLI process.
type ObservabilityConfig struct {
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	ServiceName string `mapstructure:"service_name"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("ceres")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("/etc/ceres")
	}

	viperCfg.SetEnvPrefix("CERES")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("read config file: %w", readErr)
		}
	}

	var cfg Config

	if err := viperCfg.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("tree.default_caching_behavior", defaultCachingBehavior)
	viperCfg.SetDefault("tree.node_cache_capacity", ceres.DefaultNodeCacheCapacity)

	viperCfg.SetDefault("observability.log_level", defaultLogLevel)
	viperCfg.SetDefault("observability.log_format", defaultLogFormat)
	viperCfg.SetDefault("observability.metrics_addr", "")
	viperCfg.SetDefault("observability.service_name", "ceres")
}

func validateConfig(cfg *Config) error {
	if _, ok := ceres.ParseCacheBehavior(cfg.Tree.DefaultCachingBehavior); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCachingBehavior, cfg.Tree.DefaultCachingBehavior)
	}

	if cfg.Tree.NodeCacheCapacity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidNodeCacheSize, cfg.Tree.NodeCacheCapacity)
	}

	switch cfg.Observability.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.Observability.LogLevel)
	}

	return nil
}
