package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. LIBMVT_DATA_DIR
	EnvPrefix = "LIBMVT"

	DefaultDataDir        = "./data"
	DefaultIndexURL       = "https://raw.githubusercontent.com/mvt-project/mvt-indicators/main/indicators.yaml"
	DefaultUpdateTimeout  = 15 * time.Second
	DefaultCheckInterval  = time.Hour
	DefaultMatchCacheSize = 4096

	sqliteFileName = "libmvt.db"
	indicatorsDir  = "indicators"
)

// Config holds the runtime configuration. The data directory is always
// explicit: every derived path is resolved from it at load time.
type Config struct {
	DataDir        string `mapstructure:"data_dir" validate:"required"`
	IndicatorsDir  string `mapstructure:"indicators_dir"`
	SQLitePath     string `mapstructure:"sqlite_path"`
	LogLevel       string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	MatchCacheSize int    `mapstructure:"match_cache_size" validate:"min=0"`

	Updater UpdaterConfig `mapstructure:"updater"`
}

// UpdaterConfig configures the indicator feed updater
type UpdaterConfig struct {
	IndexURL      string        `mapstructure:"index_url" validate:"required,url"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
	CheckInterval time.Duration `mapstructure:"check_interval" validate:"gte=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("indicators_dir", "") // Empty = derive from data_dir
	v.SetDefault("sqlite_path", "")    // Empty = derive from data_dir
	v.SetDefault("log_level", "info")
	v.SetDefault("match_cache_size", DefaultMatchCacheSize)

	v.SetDefault("updater.index_url", DefaultIndexURL)
	v.SetDefault("updater.timeout", DefaultUpdateTimeout)
	v.SetDefault("updater.check_interval", DefaultCheckInterval)
}

// loadFromEnv maps LIBMVT_DATA_DIR, LIBMVT_UPDATER_INDEX_URL and friends
func loadFromEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadConfig reads configuration from defaults, an optional config file, the
// environment and finally overrides (usually command line flags; empty
// strings are ignored). With path empty, config.yaml is looked up in the
// working directory and ./config; a missing file is not an error.
func LoadConfig(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	loadFromEnv(v)

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
			return nil, fmt.Errorf("unable to read config: %w", err)
		}
	}

	for key, value := range overrides {
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ResolveDataPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// ResolveDataPaths derives unset paths from DataDir
func (c *Config) ResolveDataPaths() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.DataDir == "" {
		return
	}
	c.DataDir = filepath.Clean(c.DataDir)

	if c.IndicatorsDir == "" {
		c.IndicatorsDir = filepath.Join(c.DataDir, indicatorsDir)
	} else {
		c.IndicatorsDir = filepath.Clean(c.IndicatorsDir)
	}

	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.DataDir, sqliteFileName)
	} else if c.SQLitePath != ":memory:" {
		c.SQLitePath = filepath.Clean(c.SQLitePath)
	}
}

// Validate checks the struct tags
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
