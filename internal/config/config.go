// Package config loads jobdesk configuration from defaults, an optional
// config file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/celestiaorg/jobdesk/internal/api/v1/routes"
	"github.com/celestiaorg/jobdesk/internal/constants"
	"github.com/celestiaorg/jobdesk/internal/db"
	"github.com/celestiaorg/jobdesk/internal/jobquery"
	"github.com/celestiaorg/jobdesk/internal/types"
)

// Config holds application configuration
type Config struct {
	API      APIConfig     `mapstructure:"api"`
	Query    QueryConfig   `mapstructure:"query"`
	Drafts   DraftsConfig  `mapstructure:"drafts"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
	LogLevel string        `mapstructure:"log_level"`
	LogJSON  bool          `mapstructure:"log_json"`
}

// APIConfig holds backend connection settings
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Token   string        `mapstructure:"token"`
}

// QueryConfig holds job list settings
type QueryConfig struct {
	PageSize int           `mapstructure:"page_size"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// DraftsConfig holds local draft stash settings
type DraftsConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// MetricsConfig holds the optional metrics listener
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultConfigPath returns the config file looked up when JOBDESK_CONFIG is unset
func DefaultConfigPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "jobdesk", "config.yaml")
}

// Load reads configuration. Precedence: environment (JOBDESK_ prefix, also
// populated from .env) over the config file over defaults.
func Load() (Config, error) {
	// A missing .env file is fine
	_ = godotenv.Load()

	v := viper.New()

	// default values
	v.SetDefault("api.base_url", routes.DefaultBaseURL)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.token", "")
	v.SetDefault("query.page_size", jobquery.DefaultPageSize)
	v.SetDefault("query.debounce", jobquery.DefaultDebounce)
	v.SetDefault("drafts.driver", db.DefaultDriver)
	v.SetDefault("drafts.dsn", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetConfigType("yaml")

	cfgPath := os.Getenv(constants.EnvConfigFile)
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Dir(DefaultConfigPath()))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.BindEnv("api.base_url", "JOBDESK_API_BASE_URL", constants.EnvServerAddress); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	// read config file if present; an explicit file must exist
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Validate checks the loaded values
func (c Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("%w: api.base_url is required", types.ErrValidation)
	}
	if _, err := url.Parse(c.API.BaseURL); err != nil {
		return fmt.Errorf("%w: api.base_url: %w", types.ErrValidation, err)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("%w: api.timeout must not be negative", types.ErrValidation)
	}
	if c.Query.PageSize < 1 {
		return fmt.Errorf("%w: query.page_size must be at least 1", types.ErrValidation)
	}
	if c.Query.Debounce < 0 {
		return fmt.Errorf("%w: query.debounce must not be negative", types.ErrValidation)
	}
	return db.ValidateDriver(c.Drafts.Driver)
}
