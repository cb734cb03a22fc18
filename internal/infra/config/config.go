// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Roon      RoonConfig      `yaml:"roon"`
	Extension ExtensionConfig `yaml:"extension"`
	Bot       BotConfig       `yaml:"bot"`
	API       APIConfig       `yaml:"api"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Hooks     HooksConfig     `yaml:"hooks"`
}

// RoonConfig represents the core connection configuration.
type RoonConfig struct {
	Host             string `yaml:"host" validate:"required"`
	Port             int    `yaml:"port" default:"9330" validate:"gte=1,lte=65535"`
	TokenFile        string `yaml:"token_file" default:"queuebot-token.yaml"`
	ReconnectDelayMs int    `yaml:"reconnect_delay_ms" default:"5000" validate:"gte=100,lte=600000"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms" default:"10000" validate:"gte=100,lte=600000"`
}

// ReconnectDelay returns the delay between connection attempts.
func (c RoonConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMs) * time.Millisecond
}

// RequestTimeout returns the handshake and write timeout.
func (c RoonConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// ExtensionConfig represents the identity shown in the Roon extension list.
type ExtensionConfig struct {
	ID             string `yaml:"id" default:"com.osa030.queuebot" validate:"required"`
	DisplayName    string `yaml:"display_name" default:"Queue Bot" validate:"required"`
	DisplayVersion string `yaml:"display_version" default:"1.0.0" validate:"required"`
	Publisher      string `yaml:"publisher" default:"osa030"`
	Email          string `yaml:"email" default:"queuebot@example.com" validate:"omitempty,email"`
	Website        string `yaml:"website" validate:"omitempty,url"`
}

// BotConfig represents the queue bot behaviour.
type BotConfig struct {
	Marker string `yaml:"marker" default:"Queue Bot" validate:"required"`
}

// APIConfig represents the operator API configuration.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" default:":8090"`
	Token   string `yaml:"token" validate:"required_if=Enabled true"`
}

// MQTTConfig represents the MQTT status mirror configuration.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker" default:"tcp://localhost:1883" validate:"required_if=Enabled true"`
	ClientID string `yaml:"client_id" default:"queuebot"`
	Topic    string `yaml:"topic" default:"queuebot/status" validate:"required_if=Enabled true"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      int    `yaml:"qos" validate:"gte=0,lte=2"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	if v := os.Getenv("ROON_HOST"); v != "" {
		c.Roon.Host = v
	}
	if v := os.Getenv("ROON_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid ROON_PORT %q", v)
		}
		c.Roon.Port = port
	}
	if v := os.Getenv("QUEUEBOT_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		c.MQTT.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		c.MQTT.Password = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}
