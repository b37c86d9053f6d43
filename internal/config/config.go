// Package config loads runtime configuration from a YAML file and the
// environment. Environment variables use the DEPSCOUT_ prefix and win
// over file values; provider clone credentials are read directly by
// the acquirer and are not part of this schema.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/depscout/depscout/pkg/errors"
)

const envPrefix = "DEPSCOUT"

// Config is the resolved runtime configuration.
type Config struct {
	// Document store. Empty MongoURI selects the in-memory store.
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`

	// Discovery protocol endpoint. Empty disables the fallback tier.
	DiscoveryURL string `mapstructure:"discovery_url"`

	// Registry response cache. RedisAddr selects the redis backend,
	// otherwise CacheDir selects the file backend.
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	CacheDir      string        `mapstructure:"cache_dir"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`

	// HTTP API listen address for the serve command.
	ListenAddr string `mapstructure:"listen_addr"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from configFile (or the default search
// paths when empty) plus the environment.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so AutomaticEnv-only values survive
	// the Unmarshal below.
	v.SetDefault("mongo_uri", "")
	v.SetDefault("mongo_database", "depscout")
	v.SetDefault("discovery_url", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cache_dir", "")
	v.SetDefault("cache_ttl", 24*time.Hour)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "read config file %s", configFile)
		}
	} else {
		v.SetConfigName("depscout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/depscout")
		// Missing default config files are fine; env and defaults apply.
		_ = v.ReadInConfig()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "decode configuration")
	}
	return &cfg, nil
}
