package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Index   IndexConfig   `yaml:"index" mapstructure:"index"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// IndexConfig locates the address map.
type IndexConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// StoreConfig configures the persistent result cache.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GeocodeConfig configures the geocode client.
type GeocodeConfig struct {
	PoolSize         int `yaml:"pool_size" mapstructure:"pool_size"`
	GeohashPrecision int `yaml:"geohash_precision" mapstructure:"geohash_precision"`
}

// BatchConfig configures batch geocoding.
type BatchConfig struct {
	Concurrency   int `yaml:"concurrency" mapstructure:"concurrency"`
	CacheTTLHours int `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	RateLimit       float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst       int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	CORSOrigins     []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	CacheEntries    int      `yaml:"cache_entries" mapstructure:"cache_entries"`
	CacheTTLMinutes int      `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
	MaxBatch        int      `yaml:"max_batch" mapstructure:"max_batch"`
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
	v.SetEnvPrefix("ADDRMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("index.path", "addrmap.idx")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "addrmap-cache.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("geocode.pool_size", 8)
	v.SetDefault("geocode.geohash_precision", 9)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.cache_ttl_hours", 720)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 50)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.cache_entries", 10000)
	v.SetDefault("server.cache_ttl_minutes", 60)
	v.SetDefault("server.max_batch", 1000)

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

// Validate checks the settings a command mode depends on. Modes are "find",
// "batch", "serve" and "inspect".
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Index.Path == "" {
		errs = append(errs, "index.path is required")
	}
	if c.Geocode.PoolSize < 1 {
		errs = append(errs, fmt.Sprintf("geocode.pool_size must be positive, got %d", c.Geocode.PoolSize))
	}
	if p := c.Geocode.GeohashPrecision; p < 0 || p > 12 {
		errs = append(errs, fmt.Sprintf("geocode.geohash_precision must be 0-12, got %d", p))
	}

	switch mode {
	case "find", "inspect":
	case "batch":
		if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 256 {
			errs = append(errs, fmt.Sprintf("batch.concurrency must be 1-256, got %d", c.Batch.Concurrency))
		}
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit <= 0 || c.Server.RateBurst < 1 {
			errs = append(errs, "server.rate_limit and server.rate_burst must be positive")
		}
		if c.Server.CacheEntries < 0 {
			errs = append(errs, "server.cache_entries must not be negative")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
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
