// Package config loads settings from .env, an optional config.yaml and
// WASTEJOBS_ environment variables.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Auth       AuthConfig       `yaml:"auth" mapstructure:"auth"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Maps       MapsConfig       `yaml:"maps" mapstructure:"maps"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Matcher    MatcherConfig    `yaml:"matcher" mapstructure:"matcher"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Port                int      `yaml:"port" mapstructure:"port"`
	CORSOrigins         []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AuthConfig holds the HMAC secret shared with the identity provider.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

type ClassifierConfig struct {
	OpenAIAPIKey string `yaml:"openai_api_key" mapstructure:"openai_api_key"`
	Model        string `yaml:"model" mapstructure:"model"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// MapsConfig covers the Google Routes and Geocoding APIs.
type MapsConfig struct {
	APIKey                string `yaml:"api_key" mapstructure:"api_key"`
	DirectionsTimeoutSecs int    `yaml:"directions_timeout_secs" mapstructure:"directions_timeout_secs"`
	RouteCacheTTLMins     int    `yaml:"route_cache_ttl_mins" mapstructure:"route_cache_ttl_mins"`
	RouteCacheMaxEntries  int    `yaml:"route_cache_max_entries" mapstructure:"route_cache_max_entries"`
	RouteCacheCleanup     string `yaml:"route_cache_cleanup" mapstructure:"route_cache_cleanup"`
	GeocodingBaseURL      string `yaml:"geocoding_base_url" mapstructure:"geocoding_base_url"`
	GeocodingRegion       string `yaml:"geocoding_region" mapstructure:"geocoding_region"`
	GeocodingTimeoutSecs  int    `yaml:"geocoding_timeout_secs" mapstructure:"geocoding_timeout_secs"`
}

// IngestConfig configures the disposal point import. An empty Schedule
// disables periodic imports in the server.
type IngestConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Query             string  `yaml:"query" mapstructure:"query"`
	Schedule          string  `yaml:"schedule" mapstructure:"schedule"`
	Refresh           bool    `yaml:"refresh" mapstructure:"refresh"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RunTimeoutMins    int     `yaml:"run_timeout_mins" mapstructure:"run_timeout_mins"`
}

type MatcherConfig struct {
	RequireOpen bool `yaml:"require_open" mapstructure:"require_open"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and environment variables.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("WASTEJOBS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional names used by hosting platforms
	bind := map[string]string{
		"store.database_url":        "DATABASE_URL",
		"server.port":               "PORT",
		"auth.jwt_secret":           "APP_JWT_SECRET",
		"classifier.openai_api_key": "OPENAI_API_KEY",
		"maps.api_key":              "GOOGLE_MAPS_API_KEY",
	}
	for key, env := range bind {
		prefixed := "WASTEJOBS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", key)
		}
	}

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_secs", 15)
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("classifier.openai_api_key", "")
	v.SetDefault("classifier.model", "gpt-4o-mini")
	v.SetDefault("classifier.base_url", "")
	v.SetDefault("classifier.timeout_secs", 30)
	v.SetDefault("maps.api_key", "")
	v.SetDefault("maps.directions_timeout_secs", 5)
	v.SetDefault("maps.route_cache_ttl_mins", 60)
	v.SetDefault("maps.route_cache_max_entries", 1000)
	v.SetDefault("maps.route_cache_cleanup", "@every 10m")
	v.SetDefault("maps.geocoding_base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("maps.geocoding_region", "pl")
	v.SetDefault("maps.geocoding_timeout_secs", 10)
	v.SetDefault("ingest.base_url", "https://testmapa.um.warszawa.pl/mapviewer/dataserver/DANE_WAWA")
	v.SetDefault("ingest.query", "")
	v.SetDefault("ingest.schedule", "0 3 * * *")
	v.SetDefault("ingest.refresh", false)
	v.SetDefault("ingest.requests_per_second", 2.0)
	v.SetDefault("ingest.concurrency", 3)
	v.SetDefault("ingest.timeout_secs", 30)
	v.SetDefault("ingest.run_timeout_mins", 10)
	v.SetDefault("matcher.require_open", false)
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

// ValidateStore checks the settings every command that touches the
// database needs.
func (c *Config) ValidateStore() error {
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		return eris.Errorf("config: unsupported store.driver %q", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url (DATABASE_URL) is required")
	}
	return nil
}

// ValidateServer checks the settings the HTTP server needs.
func (c *Config) ValidateServer() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" {
		return eris.New("config: auth.jwt_secret (APP_JWT_SECRET) is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	return nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (c ServerConfig) ShutdownTimeout() time.Duration { return seconds(c.ShutdownTimeoutSecs) }
func (c ClassifierConfig) Timeout() time.Duration     { return seconds(c.TimeoutSecs) }
func (c MapsConfig) DirectionsTimeout() time.Duration { return seconds(c.DirectionsTimeoutSecs) }
func (c MapsConfig) GeocodingTimeout() time.Duration  { return seconds(c.GeocodingTimeoutSecs) }
func (c MapsConfig) RouteCacheTTL() time.Duration     { return time.Duration(c.RouteCacheTTLMins) * time.Minute }
func (c IngestConfig) Timeout() time.Duration         { return seconds(c.TimeoutSecs) }
func (c IngestConfig) RunTimeout() time.Duration      { return time.Duration(c.RunTimeoutMins) * time.Minute }

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
