// Package config loads epub2md settings from a config file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the settings shared by all commands. Command line flags
// override these values when they are set explicitly.
type Config struct {
	// MaxChunk is the character budget for paragraph and blockquote blocks.
	MaxChunk int `mapstructure:"max_chunk"`

	ExtractImages    bool `mapstructure:"extract_images"`
	KeepNav          bool `mapstructure:"keep_nav"`
	IncludeNonLinear bool `mapstructure:"include_nonlinear"`
	SkipLicense      bool `mapstructure:"skip_license"`

	LogLevel string `mapstructure:"log_level"`
	Debug    bool   `mapstructure:"debug"`

	// ExtraPlaceholders adds locale-keyed headings to leave out of the TOC.
	ExtraPlaceholders map[string][]string `mapstructure:"extra_placeholders"`
}

// configName is searched for in the home directory and the working directory,
// with any extension viper understands (.yaml, .toml, .json, ...).
const configName = ".epub2md"

// LoadConfig reads configPath, or searches for .epub2md when it is empty.
// A missing search-path config is not an error; defaults apply. Environment
// variables prefixed EPUB2MD_ override file values.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(configName)
	}

	v.SetEnvPrefix("EPUB2MD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
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

// NewDefaultConfig returns the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		MaxChunk:          1200,
		ExtractImages:     true,
		LogLevel:          "info",
		ExtraPlaceholders: map[string][]string{},
	}
}

// Validate rejects settings the parser cannot honour.
func (c *Config) Validate() error {
	if c.MaxChunk < 0 {
		return fmt.Errorf("max_chunk must be >= 0, got %d", c.MaxChunk)
	}
	for locale, words := range c.ExtraPlaceholders {
		for _, w := range words {
			if strings.TrimSpace(w) == "" {
				return fmt.Errorf("extra_placeholders.%s contains an empty entry", locale)
			}
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("max_chunk", d.MaxChunk)
	v.SetDefault("extract_images", d.ExtractImages)
	v.SetDefault("keep_nav", d.KeepNav)
	v.SetDefault("include_nonlinear", d.IncludeNonLinear)
	v.SetDefault("skip_license", d.SkipLicense)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("extra_placeholders", d.ExtraPlaceholders)
}
