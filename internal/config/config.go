// Package config loads map defaults and store selection from a YAML file
// and SURVEYMAP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment prefix, e.g. SURVEYMAP_STORE_DRIVER.
const EnvPrefix = "SURVEYMAP"

// Store drivers.
const (
	DriverFile   = "file"
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

type Config struct {
	Map   Map   `mapstructure:"map"`
	Store Store `mapstructure:"store"`
	Cache Cache `mapstructure:"cache"`
}

// Map holds the defaults every MapConfig starts from.
type Map struct {
	StreetURL      string   `mapstructure:"street_url"`
	SatelliteURL   string   `mapstructure:"satellite_url"`
	Zoom           float64  `mapstructure:"zoom"`
	MinZoom        float64  `mapstructure:"min_zoom"`
	MaxZoom        float64  `mapstructure:"max_zoom"`
	HighlightColor string   `mapstructure:"highlight_color"`
	LabelField     string   `mapstructure:"label_field"`
	Controls       []string `mapstructure:"controls"`
}

type Store struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Cache sizes the rendered style cache.
type Cache struct {
	MaxCost int64         `mapstructure:"max_cost"`
	TTL     time.Duration `mapstructure:"ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("map.street_url", "https://demotiles.maplibre.org/style.json")
	v.SetDefault("map.satellite_url", "")
	v.SetDefault("map.zoom", 16.0)
	v.SetDefault("map.min_zoom", 2.0)
	v.SetDefault("map.max_zoom", 22.0)
	v.SetDefault("map.highlight_color", "#ffcc00")
	v.SetDefault("map.label_field", "name")
	v.SetDefault("map.controls", []string{"navigation", "draw"})
	v.SetDefault("store.driver", DriverFile)
	v.SetDefault("store.dsn", "")
	v.SetDefault("cache.max_cost", int64(1<<16))
	v.SetDefault("cache.ttl", 10*time.Minute)
}

// Load reads path, or ./surveymap.yaml when path is empty and the file
// exists, then applies environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("surveymap")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
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

// Validate checks the store selection and zoom bounds.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverFile, DriverDuckDB, DriverSQLite:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Map.MinZoom > c.Map.MaxZoom {
		return fmt.Errorf("min_zoom %v greater than max_zoom %v", c.Map.MinZoom, c.Map.MaxZoom)
	}
	return nil
}
