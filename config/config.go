package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// BaseURL is the externally visible base URL, used to build provider
	// redirect URLs.
	BaseURL string `mapstructure:"BASE_URL"`

	TwitterClientID      string `mapstructure:"TWITTER_CLIENT_ID"`
	TwitterClientSecret  string `mapstructure:"TWITTER_CLIENT_SECRET"`
	FacebookClientID     string `mapstructure:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `mapstructure:"FACEBOOK_CLIENT_SECRET"`

	PublishTimeoutSec   int `mapstructure:"PUBLISH_TIMEOUT_SEC"`
	PendingSignupTTLMin int `mapstructure:"PENDING_SIGNUP_TTL_MIN"`
	SessionTTLHour      int `mapstructure:"SESSION_TTL_HOUR"`
}

// LoadConfig reads configuration from file, environment variables, and
// defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/crosspost/")
	v.AddConfigPath("$HOME/.crosspost")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/crosspost_dev")
	v.SetDefault("MONGO_DB_NAME", "crosspost_dev")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "crosspost-server")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("PUBLISH_TIMEOUT_SEC", 10)
	v.SetDefault("PENDING_SIGNUP_TTL_MIN", 15)
	v.SetDefault("SESSION_TTL_HOUR", 720) // 30 days

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return &cfg, nil
}
