// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
)

// Config represents the bridge configuration
type Config struct {
	AppName            string `env:"SOS_BRIDGE_APP_NAME"`
	AppVersion         string `env:"SOS_BRIDGE_APP_VERSION"`
	ServerPort         string `env:"SOS_BRIDGE_SERVER_PORT"`
	ServerLogLevel     string `env:"SOS_BRIDGE_SERVER_LOG_LEVEL"`
	PostgresDsn        string `env:"SOS_BRIDGE_PG_DSN"`
	PostgresLogLevel   string `env:"SOS_BRIDGE_PG_LOG_LEVEL"`
	RedisHost          string `env:"SOS_BRIDGE_REDIS_HOST"`
	RedisPort          string `env:"SOS_BRIDGE_REDIS_PORT"`
	RedisPassword      string `env:"SOS_BRIDGE_REDIS_PASSWORD,optional"`
	EngineWSURL        string `env:"SOS_BRIDGE_ENGINE_WS_URL"`
	UpstoxAccessToken  string `env:"SOS_BRIDGE_UPSTOX_ACCESS_TOKEN,optional"`
	OptionChainEnabled string `env:"SOS_BRIDGE_OPTION_CHAIN_ENABLED,optional"`
}

var (
	SingleLine string = "--------------------------------------------------"
)

var (
	instance *Config
	once     sync.Once
	err      error
)

// Get returns the bridge configuration
func Get() (*Config, error) {
	once.Do(func() {
		instance, err = loadConfig()
	})
	return instance, err
}

// loadConfig loads configuration from environment variables
func loadConfig() (*Config, error) {
	cfg := &Config{}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() error {
	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(c).Elem()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" {
			return fmt.Errorf("missing env tag for field %s", field.Name)
		}

		envName, opts, _ := strings.Cut(envTag, ",")
		value := os.Getenv(envName)
		if value == "" && opts != "optional" {
			return fmt.Errorf("env variable %s is required but not set", envName)
		}

		v.Field(i).SetString(value)
	}

	return nil
}

// IsOptionChainEnabled reports whether the option chain publish task is enabled
func (c *Config) IsOptionChainEnabled() bool {
	return strings.EqualFold(c.OptionChainEnabled, "true")
}

// String returns the configuration as a string
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n--------------------------------------\n")
	sb.WriteString("Configuration:\n")
	sb.WriteString("--------------------------------------\n")

	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(*c)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i).String()

		// Mask sensitive fields
		value = maskSensitiveField(field.Name, value)
		sb.WriteString(fmt.Sprintf("  %s:  %s\n", field.Name, value))
	}

	sb.WriteString("--------------------------------------\n")

	return sb.String()
}

func maskSensitiveField(fieldName, value string) string {
	sensitiveFields := []string{"token", "dsn", "secret", "password", "url"}

	fieldNameLower := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(fieldNameLower, sensitive) {
			return maskValue(value)
		}
	}

	return value
}

func maskValue(value string) string {
	if len(value) <= 3 {
		return strings.Repeat("*", 7)
	}
	return value[:3] + strings.Repeat("*", 7)
}
