package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "localhost", cfg.MQTT.Host)
	assert.Equal(t, 1883, cfg.MQTT.Port)
	assert.Equal(t, "hame_energy", cfg.Topics.VendorPrefix)
	assert.Equal(t, "battgw", cfg.Topics.StatePrefix)
	assert.True(t, cfg.HomeAssistant.Enabled)
	assert.Equal(t, "homeassistant", cfg.HomeAssistant.DiscoveryPrefix)
	assert.Equal(t, 60, cfg.Poll.IntervalSeconds)
	assert.Equal(t, 300, cfg.Availability.TimeoutSeconds)
	assert.Equal(t, 8080, cfg.API.Port)
}

func TestTopicLayouts(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "hame_energy/HMB/device/dev1/ctrl", cfg.ReportTopic("HMB", "dev1"))
	assert.Equal(t, "hame_energy/HMB/App/dev1/ctrl", cfg.ControlTopic("HMB", "dev1"))
	assert.Equal(t, "battgw/dev1/runtimeInfo", cfg.StateTopic("dev1", "runtimeInfo"))
	assert.Equal(t, "battgw/dev1/availability", cfg.AvailabilityTopic("dev1"))
	assert.Equal(t, "battgw/dev1/command/reboot", cfg.CommandTopic("dev1", "reboot"))
}

func TestBrokerAddress(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "tcp://localhost:1883", cfg.BrokerAddress())

	cfg.Broker.Enabled = true
	assert.Equal(t, "tcp://0.0.0.0:1890", cfg.BrokerAddress())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
log_level: debug
mqtt:
  host: broker.local
  port: 1884
topics:
  vendor_prefix: hame_energy
devices:
  - type: HMB
    id: dev001
  - type: HMG
    id: dev002
    name: Cellar inverter
poll:
  interval_seconds: 120
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "broker.local", cfg.MQTT.Host)
	assert.Equal(t, 1884, cfg.MQTT.Port)
	assert.Equal(t, 120, cfg.Poll.IntervalSeconds)

	// Unset sections keep their defaults.
	assert.Equal(t, "battgw", cfg.Topics.StatePrefix)
	assert.Equal(t, 300, cfg.Availability.TimeoutSeconds)

	// Device names default to the ID.
	require.Len(t, cfg.Devices, 2)
	assert.Equal(t, "dev001", cfg.Devices[0].Name)
	assert.Equal(t, "Cellar inverter", cfg.Devices[1].Name)
}
