// Package homeassistant provides MQTT auto-discovery support for Home Assistant integration.
package homeassistant

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/helgesson/go-battgw/internal/catalog"
	"github.com/helgesson/go-battgw/internal/decoder"
	"github.com/helgesson/go-battgw/internal/jinja"
	"github.com/helgesson/go-battgw/internal/transform"
)

//go:embed layouts/sensors.yaml
var sensorsYAML []byte

// Config holds the Home Assistant auto-discovery configuration.
type Config struct {
	DiscoveryPrefix string
	RetainDiscovery bool
}

// SensorConfig is presentation metadata for one entity from the layouts YAML.
type SensorConfig struct {
	Name              string `yaml:"name"`
	DeviceClass       string `yaml:"device_class,omitempty"`
	UnitOfMeasurement string `yaml:"unit_of_measurement,omitempty"`
	StateClass        string `yaml:"state_class,omitempty"`
	Icon              string `yaml:"icon,omitempty"`
	Category          string `yaml:"category,omitempty"`
}

// LayoutConfig is the embedded presentation metadata, keyed by model type and
// then by dotted state path.
type LayoutConfig struct {
	Version     string                             `yaml:"version"`
	Description string                             `yaml:"description"`
	Sensors     map[string]map[string]SensorConfig `yaml:"sensors"`
}

// DiscoveryMessage is a Home Assistant MQTT discovery payload.
type DiscoveryMessage struct {
	Name                string     `json:"name"`
	UniqueID            string     `json:"unique_id"`
	StateTopic          string     `json:"state_topic"`
	ValueTemplate       string     `json:"value_template"`
	DeviceClass         string     `json:"device_class,omitempty"`
	UnitOfMeasurement   string     `json:"unit_of_measurement,omitempty"`
	StateClass          string     `json:"state_class,omitempty"`
	Icon                string     `json:"icon,omitempty"`
	EntityCategory      string     `json:"entity_category,omitempty"`
	PayloadOn           string     `json:"payload_on,omitempty"`
	PayloadOff          string     `json:"payload_off,omitempty"`
	Device              DeviceInfo `json:"device"`
	AvailabilityTopic   string     `json:"availability_topic,omitempty"`
	PayloadAvailable    string     `json:"payload_available,omitempty"`
	PayloadNotAvailable string     `json:"payload_not_available,omitempty"`
}

// DeviceInfo groups entities under one Home Assistant device.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model,omitempty"`
	SwVersion    string   `json:"sw_version,omitempty"`
}

// Target identifies the device a discovery batch is generated for.
type Target struct {
	ID                string
	Name              string
	ReportTopic       string
	AvailabilityTopic string
}

// AutoDiscovery generates Home Assistant discovery messages from device
// catalogs. Entity value templates are compiled from the catalog's field
// transforms and parse the raw report frame inside Home Assistant itself, so
// entities track the device even when the decoded state topics are not used.
type AutoDiscovery struct {
	config Config
	layout *LayoutConfig
}

// New creates a new auto-discovery generator with the embedded presentation
// metadata.
func New(config Config) (*AutoDiscovery, error) {
	var layout LayoutConfig
	if err := yaml.Unmarshal(sensorsYAML, &layout); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sensors layout: %w", err)
	}

	log.Info().
		Str("version", layout.Version).
		Int("model_count", len(layout.Sensors)).
		Msg("Home Assistant sensor layout loaded")

	return &AutoDiscovery{config: config, layout: &layout}, nil
}

// DeviceMessages generates one discovery message per catalog field of the
// device's model, keyed by discovery topic.
func (ad *AutoDiscovery) DeviceMessages(model *catalog.Model, target Target) (map[string]DiscoveryMessage, error) {
	device := DeviceInfo{
		Identifiers:  []string{fmt.Sprintf("battgw_%s", target.ID)},
		Name:         target.Name,
		Manufacturer: model.Manufacturer,
		Model:        model.Name,
		SwVersion:    "go-battgw",
	}

	messages := make(map[string]DiscoveryMessage)
	for _, sub := range model.SubMessages {
		for _, field := range sub.Fields {
			template, err := jinja.FieldTemplate(field.Transform, field.Keys, "value")
			if err != nil {
				return nil, fmt.Errorf("failed to compile template for %s: %w", field.Path, err)
			}

			path := field.Path.String()
			meta := ad.sensorMeta(model.Type, path)
			component := componentFor(field)

			msg := DiscoveryMessage{
				Name:                meta.Name,
				UniqueID:            fmt.Sprintf("battgw_%s_%s", target.ID, pathSlug(path)),
				StateTopic:          target.ReportTopic,
				ValueTemplate:       template,
				DeviceClass:         meta.DeviceClass,
				UnitOfMeasurement:   meta.UnitOfMeasurement,
				StateClass:          meta.StateClass,
				Icon:                meta.Icon,
				EntityCategory:      meta.Category,
				Device:              device,
				AvailabilityTopic:   target.AvailabilityTopic,
				PayloadAvailable:    "online",
				PayloadNotAvailable: "offline",
			}
			if component == "binary_sensor" {
				msg.PayloadOn = "true"
				msg.PayloadOff = "false"
				// Binary sensors carry no unit or state class.
				msg.UnitOfMeasurement = ""
				msg.StateClass = ""
			}

			messages[ad.discoveryTopic(component, target.ID, path)] = msg
		}
	}

	return messages, nil
}

// CleanupMessages generates empty retained payloads that remove a device's
// entities from Home Assistant.
func (ad *AutoDiscovery) CleanupMessages(model *catalog.Model, target Target) map[string]string {
	messages := make(map[string]string)
	for _, sub := range model.SubMessages {
		for _, field := range sub.Fields {
			path := field.Path.String()
			messages[ad.discoveryTopic(componentFor(field), target.ID, path)] = ""
		}
	}
	return messages
}

// Retain reports whether discovery messages should be published retained.
func (ad *AutoDiscovery) Retain() bool {
	return ad.config.RetainDiscovery
}

// sensorMeta looks up presentation metadata for a state path, falling back
// to a name derived from the path itself.
func (ad *AutoDiscovery) sensorMeta(modelType, path string) SensorConfig {
	if byPath, ok := ad.layout.Sensors[modelType]; ok {
		if meta, ok := byPath[path]; ok {
			return meta
		}
	}
	return SensorConfig{Name: prettyName(path)}
}

// discoveryTopic builds <prefix>/<component>/battgw_<id>/<slug>/config.
func (ad *AutoDiscovery) discoveryTopic(component, deviceID, path string) string {
	return fmt.Sprintf("%s/%s/battgw_%s/%s/config",
		ad.config.DiscoveryPrefix, component, strings.ToLower(deviceID), pathSlug(path))
}

// componentFor picks the Home Assistant component from the field's result
// type: boolean transforms become binary sensors, everything else a sensor.
func componentFor(field decoder.FieldDefinition) string {
	t := transform.Number()
	if field.Transform != nil {
		t = *field.Transform
	}
	if !t.IsMultiKey() && t.ResultType() == transform.ValueBool {
		return "binary_sensor"
	}
	return "sensor"
}

// pathSlug turns a dotted state path into a topic-safe identifier.
func pathSlug(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, ".", "_"))
}

// prettyName derives a display name from a state path, e.g.
// "timePeriods.0.startTime" becomes "Time periods 0 start time".
func prettyName(path string) string {
	raw := strings.ReplaceAll(path, ".", " ")
	var b strings.Builder
	for i, r := range raw {
		switch {
		case i == 0 && r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		case r >= 'A' && r <= 'Z':
			b.WriteByte(' ')
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
