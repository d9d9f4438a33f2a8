// Package config loads sqlprep settings from a YAML file, SQLPREP_*
// environment variables and defaults, in that order of precedence
// (flags bound by the CLI win over all three).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every setting the CLI consumes.
type Config struct {
	Driver        string    `mapstructure:"driver"`
	DSN           string    `mapstructure:"dsn"`
	Log           LogConfig `mapstructure:"log"`
	InspectParams bool      `mapstructure:"inspect_params"`
	PreviewLength int       `mapstructure:"preview_length"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Default values.
const (
	DefaultDriver        = "sqlite"
	DefaultDSN           = ":memory:"
	DefaultLogLevel      = "info"
	DefaultPreviewLength = 100
	EnvPrefix            = "SQLPREP"
)

// Drivers lists the database/sql driver names the CLI registers.
var Drivers = []string{"sqlite", "mysql", "pgx"}

// New returns a viper instance carrying defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("driver", DefaultDriver)
	v.SetDefault("dsn", DefaultDSN)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.development", false)
	v.SetDefault("inspect_params", true)
	v.SetDefault("preview_length", DefaultPreviewLength)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads cfgFile when given, or an optional sqlprep.yaml from the
// working directory or $HOME/.sqlprep, and decodes the result.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("sqlprep")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.sqlprep")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown drivers and negative preview lengths.
func (c *Config) Validate() error {
	known := false
	for _, d := range Drivers {
		if c.Driver == d {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unsupported driver %q (want one of %s)", c.Driver, strings.Join(Drivers, ", "))
	}
	if c.PreviewLength < 0 {
		return fmt.Errorf("preview_length must not be negative, got %d", c.PreviewLength)
	}
	return nil
}
