package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Assistant   AssistantConfig `mapstructure:"assistant"`
	Server      ServerConfig    `mapstructure:"server"`
	Log         LogConfig       `mapstructure:"log"`
	DB          DBConfig        `mapstructure:"db"`
	MQTT        MQTTConfig      `mapstructure:"mqtt"`
	Skills      SkillsConfig    `mapstructure:"skills"`
	Session     SessionConfig   `mapstructure:"session"`
	Terminal    TerminalConfig  `mapstructure:"terminal"`
	ToolTimeout time.Duration   `mapstructure:"tool_timeout"`
}

type AssistantConfig struct {
	Name    string `mapstructure:"name"`
	CallsMe string `mapstructure:"calls_me"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BrokerURL   string `mapstructure:"broker_url"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type SkillsConfig struct {
	CatalogFile     string `mapstructure:"catalog_file"`
	DefaultLocation string `mapstructure:"default_location"`
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// TerminalConfig is read by friday-terminal only.
type TerminalConfig struct {
	ID string `mapstructure:"id"`
}

var defaults = map[string]any{
	"assistant.name":          "friday",
	"assistant.calls_me":      "sir",
	"server.http_addr":        ":9010",
	"log.level":               "info",
	"db.dsn":                  "",
	"mqtt.enabled":            false,
	"mqtt.broker_url":         "tcp://localhost:1883",
	"mqtt.client_id":          "friday-server",
	"mqtt.username":           "",
	"mqtt.password":           "",
	"mqtt.topic_prefix":       "friday",
	"skills.catalog_file":     "",
	"skills.default_location": "",
	"session.ttl":             "10m",
	"terminal.id":             "console-01",
	"tool_timeout":            "8s",
}

// LoadConfig reads configFile, or config.yaml from the working directory
// when it is empty, then overlays FRIDAY_* environment variables. A missing
// default config file is not an error.
func LoadConfig(configFile string) (*Config, error) {
	// .env only fills variables that are not already set
	_ = godotenv.Load()

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("FRIDAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
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

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Assistant.Name) == "" {
		return fmt.Errorf("assistant.name is required")
	}
	if c.MQTT.Enabled && c.MQTT.BrokerURL == "" {
		return fmt.Errorf("mqtt.broker_url is required when mqtt.enabled is set")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.ToolTimeout <= 0 {
		return fmt.Errorf("tool_timeout must be positive")
	}
	return nil
}
