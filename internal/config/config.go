package config

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Database DatabaseConfig `mapstructure:"database"`
	Site     SiteConfig     `mapstructure:"site"`
	Assets   AssetsConfig   `mapstructure:"assets"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// CatalogConfig selects where the catalog document is persisted
type CatalogConfig struct {
	Driver string `mapstructure:"driver"` // file | postgres
	Path   string `mapstructure:"path"`   // JSON document path for the file driver
	Name   string `mapstructure:"name"`   // Row key for the postgres driver

	PollInterval int `mapstructure:"poll_interval"` // Seconds between syncs in watch mode for the postgres driver
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// DSN renders the pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// SiteConfig holds the static site output and page chrome
type SiteConfig struct {
	OutputDir     string `mapstructure:"output_dir"`
	Title         string `mapstructure:"title"`
	Subtitle      string `mapstructure:"subtitle"`
	Lang          string `mapstructure:"lang"`
	Currency      string `mapstructure:"currency"`
	FallbackImage string `mapstructure:"fallback_image"`
	Stylesheet    string `mapstructure:"stylesheet"`
	Footer        string `mapstructure:"footer"`
	IndexHeading  string `mapstructure:"index_heading"`
	IndexTitle    string `mapstructure:"index_title"`
	WriteWorkers  int    `mapstructure:"write_workers"`
}

// AssetsConfig holds image fetching configuration
type AssetsConfig struct {
	Timeout              int    `mapstructure:"timeout"`
	MaxRetries           int    `mapstructure:"max_retries"`
	MaxRequestsPerSecond int    `mapstructure:"max_requests_per_second"`
	UserAgent            string `mapstructure:"user_agent"`
	Proxy                string `mapstructure:"proxy"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	Database     int    `mapstructure:"database"`
	StreamPrefix string `mapstructure:"stream_prefix"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from a YAML file with environment variable overrides.
// An empty path searches config.yaml in the current directory; a missing file
// there is not an error and leaves the defaults in place.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug("No config.yaml found, using defaults")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the container cannot wire.
func (c *Config) Validate() error {
	switch c.Catalog.Driver {
	case DriverFile:
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required for the %s driver", DriverFile)
		}
	case DriverPostgres:
		if c.Catalog.Name == "" {
			return fmt.Errorf("catalog.name is required for the %s driver", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown catalog.driver %q", c.Catalog.Driver)
	}
	if c.Site.OutputDir == "" {
		return fmt.Errorf("site.output_dir is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.driver", DriverFile)
	v.SetDefault("catalog.path", "menu.json")
	v.SetDefault("catalog.name", "default")
	v.SetDefault("catalog.poll_interval", 30)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "carta")
	v.SetDefault("database.user", "carta_user")
	v.SetDefault("database.password", "carta_pass")

	v.SetDefault("site.output_dir", ".")
	v.SetDefault("site.title", "Bar Sergios")
	v.SetDefault("site.subtitle", "Gastronomía & Buen Ambiente")
	v.SetDefault("site.lang", "es")
	v.SetDefault("site.currency", "€")
	v.SetDefault("site.fallback_image", "https://images.unsplash.com/photo-1559339352-11d035aa65de?auto=format&fit=crop&w=500&q=80")
	v.SetDefault("site.stylesheet", "styles.css")
	v.SetDefault("site.footer", "© 2026 Bar Sergios. Todos los derechos reservados.")
	v.SetDefault("site.index_heading", "Nuestra Carta")
	v.SetDefault("site.index_title", "Inicio")
	v.SetDefault("site.write_workers", 4)

	v.SetDefault("assets.timeout", 30)
	v.SetDefault("assets.max_retries", 2)
	v.SetDefault("assets.max_requests_per_second", 5)
	v.SetDefault("assets.user_agent", "carta-asset-fetcher/1.0")
	v.SetDefault("assets.proxy", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.stream_prefix", "carta:stream:")
	v.SetDefault("redis.key_prefix", "carta:site:")

	v.SetDefault("metrics.addr", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
