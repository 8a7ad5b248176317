// Package config loads isodalton settings from defaults, an optional YAML
// file, ISODALTON_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ChrisMcGann/isodalton/pkg/distribution"
)

const (
	// FileName is the config file looked up in the working directory.
	FileName = "isodalton"
	// EnvPrefix prefixes environment variables, e.g. ISODALTON_STATES.
	EnvPrefix = "ISODALTON"
)

// Config holds the engine and I/O settings shared by all commands.
type Config struct {
	States          int    `mapstructure:"states" yaml:"states"`
	Log10           bool   `mapstructure:"log10" yaml:"log10"`
	MaxBufferStates int    `mapstructure:"max_buffer_states" yaml:"max_buffer_states"`
	Catalog         string `mapstructure:"catalog" yaml:"catalog"`
	Overrides       string `mapstructure:"overrides" yaml:"overrides"`
	LogLevel        string `mapstructure:"log_level" yaml:"log_level"`
	Precision       int    `mapstructure:"precision" yaml:"precision"`
}

// flagNames maps config keys to the flags that can set them.
var flagNames = map[string]string{
	"states":            "states",
	"log10":             "log10",
	"max_buffer_states": "max-buffer-states",
	"catalog":           "catalog",
	"overrides":         "overrides",
	"log_level":         "log-level",
	"precision":         "precision",
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		States:          1000,
		MaxBufferStates: distribution.DefaultMaxBufferStates,
		LogLevel:        "warn",
		Precision:       6,
	}
}

// Load builds the configuration. path names an explicit config file; when
// empty, isodalton.yaml in the working directory is used if present. Flags
// in flags that were set on the command line win over everything else.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set defaults
	def := Default()
	v.SetDefault("states", def.States)
	v.SetDefault("log10", def.Log10)
	v.SetDefault("max_buffer_states", def.MaxBufferStates)
	v.SetDefault("catalog", def.Catalog)
	v.SetDefault("overrides", def.Overrides)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("precision", def.Precision)

	// Configure viper
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagNames {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.States <= 0 {
		return &ConfigError{Field: "states", Message: "must be positive"}
	}
	if c.MaxBufferStates <= 0 {
		return &ConfigError{Field: "max_buffer_states", Message: "must be positive"}
	}
	if c.Precision < 0 || c.Precision > 15 {
		return &ConfigError{Field: "precision", Message: "must be between 0 and 15"}
	}
	if _, err := c.Level(); err != nil {
		return &ConfigError{Field: "log_level", Message: err.Error()}
	}
	return nil
}

// Domain returns the probability domain selected by Log10
func (c *Config) Domain() distribution.Domain {
	if c.Log10 {
		return distribution.Log10
	}
	return distribution.Linear
}

// Level parses LogLevel (debug, info, warn, error)
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
