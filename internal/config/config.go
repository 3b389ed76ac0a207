// Package config provides configuration management for countrypicker.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mattsblocklist/countrypicker/internal/catalog"
	"github.com/mattsblocklist/countrypicker/internal/countries"
	"github.com/mattsblocklist/countrypicker/internal/picker"
	"github.com/mattsblocklist/countrypicker/internal/search"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "COUNTRYPICKER_"

// Config represents the application configuration.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog" envPrefix:"CATALOG_"`
	Picker  PickerConfig  `yaml:"picker" envPrefix:"PICKER_"`
	Search  SearchConfig  `yaml:"search" envPrefix:"SEARCH_"`
	Server  ServerConfig  `yaml:"server" envPrefix:"SERVER_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
}

// CatalogConfig holds catalog loading settings.
type CatalogConfig struct {
	RemoteURL string        `yaml:"remote_url" env:"REMOTE_URL"`
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Variant   string        `yaml:"variant" env:"VARIANT"`
}

// PickerConfig holds the default picker options.
type PickerConfig struct {
	Translation    string   `yaml:"translation" env:"TRANSLATION"`
	Region         string   `yaml:"region" env:"REGION"`
	Subregion      string   `yaml:"subregion" env:"SUBREGION"`
	IncludeCodes   []string `yaml:"include" env:"INCLUDE" envSeparator:","`
	ExcludeCodes   []string `yaml:"exclude" env:"EXCLUDE" envSeparator:","`
	PreferredCodes []string `yaml:"preferred" env:"PREFERRED" envSeparator:","`
	AlphaFilter    bool     `yaml:"alpha_filter" env:"ALPHA_FILTER"`
}

// SearchConfig holds search matcher settings.
type SearchConfig struct {
	Mode               string  `yaml:"mode" env:"MODE"`
	Threshold          float64 `yaml:"threshold" env:"THRESHOLD"`
	Distance           int     `yaml:"distance" env:"DISTANCE"`
	MinMatchCharLength int     `yaml:"min_match_char_length" env:"MIN_MATCH_CHAR_LENGTH"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr              string        `yaml:"addr" env:"ADDR"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	opts := search.DefaultOptions()
	return &Config{
		Catalog: CatalogConfig{
			RemoteURL: catalog.DefaultRemoteURL,
			Timeout:   30 * time.Second,
			Variant:   string(countries.Glyph),
		},
		Picker: PickerConfig{
			Translation: string(countries.Common),
		},
		Search: SearchConfig{
			Mode:               string(search.ModeApproximate),
			Threshold:          opts.Threshold,
			Distance:           opts.Distance,
			MinMatchCharLength: opts.MinMatchCharLength,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a YAML file and expands environment variables.
// Settings missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the config
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv creates a configuration from COUNTRYPICKER_* environment
// variables only, e.g. COUNTRYPICKER_SERVER_ADDR or COUNTRYPICKER_PICKER_EXCLUDE.
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	if _, err := countries.ParseFlagVariant(c.Catalog.Variant); err != nil {
		return fmt.Errorf("invalid catalog.variant: %w", err)
	}
	if c.Catalog.Timeout < 0 {
		return fmt.Errorf("invalid catalog.timeout: %s", c.Catalog.Timeout)
	}
	if _, err := countries.ParseRegion(c.Picker.Region); err != nil {
		return fmt.Errorf("invalid picker.region: %w", err)
	}
	if _, err := search.ParseMode(c.Search.Mode); err != nil {
		return fmt.Errorf("invalid search.mode: %w", err)
	}
	if c.Search.Threshold < 0 || c.Search.Threshold > 1 {
		return fmt.Errorf("invalid search.threshold: %v is outside [0, 1]", c.Search.Threshold)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q", c.Log.Format)
	}
	return nil
}

// Options returns the default picker options. The config must be valid.
func (c *Config) Options() picker.Options {
	variant, _ := countries.ParseFlagVariant(c.Catalog.Variant)
	region, _ := countries.ParseRegion(c.Picker.Region)
	return picker.Options{
		FlagVariant:    variant,
		Translation:    countries.ParseTranslation(c.Picker.Translation),
		Region:         region,
		Subregion:      c.Picker.Subregion,
		IncludeCodes:   c.Picker.IncludeCodes,
		ExcludeCodes:   c.Picker.ExcludeCodes,
		PreferredCodes: c.Picker.PreferredCodes,
		AlphaFilter:    c.Picker.AlphaFilter,
	}
}

// Matcher returns the configured search matcher. The config must be valid.
func (c SearchConfig) Matcher() search.Matcher {
	mode, _ := search.ParseMode(c.Mode)
	return search.NewMatcher(mode, search.Options{
		Threshold:          c.Threshold,
		Distance:           c.Distance,
		MinMatchCharLength: c.MinMatchCharLength,
	})
}

// Logger creates a logger writing to w.
func (c LogConfig) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q", s)
	}
	return level, nil
}
