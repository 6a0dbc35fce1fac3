// Package config provides configuration management for the go-battgw gateway.
package config

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// General settings
	LogLevel string `mapstructure:"log_level"`

	// Upstream MQTT broker the gateway attaches to. Ignored when the
	// embedded broker is enabled; the gateway then attaches locally.
	MQTT struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
	} `mapstructure:"mqtt"`

	// Embedded broker for devices whose firmware hardcodes a shared MQTT
	// client identifier; giving each device a local session avoids the
	// takeover fights they trigger on a shared upstream.
	Broker struct {
		Enabled bool   `mapstructure:"enabled"`
		Host    string `mapstructure:"host"`
		Port    int    `mapstructure:"port"`
	} `mapstructure:"broker"`

	// Vendor and gateway topic layouts.
	Topics struct {
		VendorPrefix string `mapstructure:"vendor_prefix"`
		StatePrefix  string `mapstructure:"state_prefix"`
	} `mapstructure:"topics"`

	// Devices the gateway bridges.
	Devices []DeviceConfig `mapstructure:"devices"`

	// Home Assistant MQTT discovery settings.
	HomeAssistant struct {
		Enabled              bool   `mapstructure:"enabled"`
		DiscoveryPrefix      string `mapstructure:"discovery_prefix"`
		RetainDiscovery      bool   `mapstructure:"retain_discovery"`
		ListenToBirthMessage bool   `mapstructure:"listen_to_birth_message"`
		RediscoveryInterval  int    `mapstructure:"rediscovery_interval_hours"`
	} `mapstructure:"homeassistant"`

	// Periodic telemetry polling.
	Poll struct {
		Enabled         bool `mapstructure:"enabled"`
		IntervalSeconds int  `mapstructure:"interval_seconds"`
	} `mapstructure:"poll"`

	// Availability bookkeeping.
	Availability struct {
		TimeoutSeconds       int `mapstructure:"timeout_seconds"`
		SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
	} `mapstructure:"availability"`

	// HTTP API settings.
	API struct {
		Enabled bool   `mapstructure:"enabled"`
		Host    string `mapstructure:"host"`
		Port    int    `mapstructure:"port"`
	} `mapstructure:"api"`
}

// DeviceConfig identifies one bridged device.
type DeviceConfig struct {
	Type string `mapstructure:"type"` // catalog model type, e.g. HMB
	ID   string `mapstructure:"id"`   // device identifier used in topics
	Name string `mapstructure:"name"` // display name, defaults to ID
}

// ReportTopic returns the vendor topic a device publishes telemetry frames on.
func (c *Config) ReportTopic(deviceType, deviceID string) string {
	return fmt.Sprintf("%s/%s/device/%s/ctrl", c.Topics.VendorPrefix, deviceType, deviceID)
}

// ControlTopic returns the vendor topic a device listens for command frames on.
func (c *Config) ControlTopic(deviceType, deviceID string) string {
	return fmt.Sprintf("%s/%s/App/%s/ctrl", c.Topics.VendorPrefix, deviceType, deviceID)
}

// StateTopic returns the gateway topic decoded state is published under,
// one topic per device per sub-message.
func (c *Config) StateTopic(deviceID, subMessage string) string {
	return fmt.Sprintf("%s/%s/%s", c.Topics.StatePrefix, deviceID, subMessage)
}

// AvailabilityTopic returns the gateway topic device availability is
// published under.
func (c *Config) AvailabilityTopic(deviceID string) string {
	return fmt.Sprintf("%s/%s/availability", c.Topics.StatePrefix, deviceID)
}

// CommandTopic returns the gateway topic text commands are accepted on.
// The command name is the final segment; a single-level wildcard subscribes
// to all commands of one device.
func (c *Config) CommandTopic(deviceID, command string) string {
	return fmt.Sprintf("%s/%s/command/%s", c.Topics.StatePrefix, deviceID, command)
}

// BrokerAddress returns the address the gateway's MQTT client connects to.
func (c *Config) BrokerAddress() string {
	if c.Broker.Enabled {
		return fmt.Sprintf("tcp://%s:%d", c.Broker.Host, c.Broker.Port)
	}
	return fmt.Sprintf("tcp://%s:%d", c.MQTT.Host, c.MQTT.Port)
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{
		LogLevel: "info",
	}

	cfg.MQTT.Host = "localhost"
	cfg.MQTT.Port = 1883

	cfg.Broker.Enabled = false
	cfg.Broker.Host = "0.0.0.0"
	cfg.Broker.Port = 1890

	cfg.Topics.VendorPrefix = "hame_energy"
	cfg.Topics.StatePrefix = "battgw"

	cfg.HomeAssistant.Enabled = true
	cfg.HomeAssistant.DiscoveryPrefix = "homeassistant"
	cfg.HomeAssistant.RetainDiscovery = true
	cfg.HomeAssistant.ListenToBirthMessage = true
	cfg.HomeAssistant.RediscoveryInterval = 24

	cfg.Poll.Enabled = true
	cfg.Poll.IntervalSeconds = 60

	cfg.Availability.TimeoutSeconds = 300
	cfg.Availability.SweepIntervalSeconds = 30

	cfg.API.Enabled = true
	cfg.API.Host = "0.0.0.0"
	cfg.API.Port = 8080

	return cfg
}

// Load reads the configuration from a file and environment variables.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Override with specific config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found, use defaults
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Println("No configuration file found, using defaults")
		} else {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	v.SetEnvPrefix("BATTGW")
	v.AutomaticEnv()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	for i := range cfg.Devices {
		if cfg.Devices[i].Name == "" {
			cfg.Devices[i].Name = cfg.Devices[i].ID
		}
	}

	return cfg, nil
}

// Print displays the current configuration.
func (c *Config) Print() {
	logger := log.With().Str("component", "config").Logger()
	logger.Info().Msg("go-battgw Gateway Configuration:")
	logger.Info().Msg("-----------------------------")
	logger.Info().Str("log_level", c.LogLevel).Msg("Log Level")

	logger.Info().
		Bool("embedded_broker", c.Broker.Enabled).
		Str("address", c.BrokerAddress()).
		Msg("MQTT")

	logger.Info().
		Str("vendor_prefix", c.Topics.VendorPrefix).
		Str("state_prefix", c.Topics.StatePrefix).
		Msg("Topics")

	for _, d := range c.Devices {
		logger.Info().
			Str("type", d.Type).
			Str("id", d.ID).
			Str("name", d.Name).
			Msg("Device")
	}

	logger.Info().
		Bool("enabled", c.HomeAssistant.Enabled).
		Str("discovery_prefix", c.HomeAssistant.DiscoveryPrefix).
		Msg("Home Assistant")

	logger.Info().
		Bool("enabled", c.Poll.Enabled).
		Int("interval_seconds", c.Poll.IntervalSeconds).
		Msg("Polling")

	logger.Info().Bool("enabled", c.API.Enabled).Msg("API Enabled")
	if c.API.Enabled {
		logger.Info().
			Str("host", c.API.Host).
			Int("port", c.API.Port).
			Msg("API Server")
	}

	logger.Info().Msg("-----------------------------")
}
