// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Data      DataConfig      `yaml:"data" mapstructure:"data"`
	Spatial   SpatialConfig   `yaml:"spatial" mapstructure:"spatial"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Nominatim NominatimConfig `yaml:"nominatim" mapstructure:"nominatim"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the warehouse backend.
type StoreConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string `yaml:"driver" mapstructure:"driver"`
	// Path is the SQLite database file.
	Path string `yaml:"path" mapstructure:"path"`
	// DatabaseURL is the Postgres connection string when Driver is "postgres".
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DataConfig holds the default input file locations per source.
type DataConfig struct {
	Listings      string `yaml:"listings" mapstructure:"listings"`
	Amenities     string `yaml:"amenities" mapstructure:"amenities"`
	Crime         string `yaml:"crime" mapstructure:"crime"`
	Polygons      string `yaml:"polygons" mapstructure:"polygons"`
	Neighborhoods string `yaml:"neighborhoods" mapstructure:"neighborhoods"`
	TempDir       string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// SpatialConfig configures the spatial join.
type SpatialConfig struct {
	// AmenityRadiusM is the search radius in meters. It is also the imputed
	// distance when no amenity of a category falls inside it.
	AmenityRadiusM float64 `yaml:"amenity_radius_m" mapstructure:"amenity_radius_m"`
}

// PipelineConfig configures the feature build.
type PipelineConfig struct {
	// Workers caps assembly concurrency; 0 means one per CPU.
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// NominatimConfig configures the geocoding client.
type NominatimConfig struct {
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string  `yaml:"user_agent" mapstructure:"user_agent"`
	RPS       float64 `yaml:"rps" mapstructure:"rps"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VALUATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "valuation.db")
	v.SetDefault("data.listings", "data/raw/real_estate_queretaro_dataset.csv")
	v.SetDefault("data.amenities", "data/raw/amenities.csv")
	v.SetDefault("data.crime", "data/raw/crime_queretaro.xlsx")
	v.SetDefault("data.polygons", "data/raw/municipios_queretaro.geojson")
	v.SetDefault("data.neighborhoods", "data/raw/neighborhoods.csv")
	v.SetDefault("data.temp_dir", "/tmp/valuation")
	v.SetDefault("spatial.amenity_radius_m", 5000.0)
	v.SetDefault("pipeline.workers", 0)
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "valuation-cli")
	v.SetDefault("nominatim.rps", 1.0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
