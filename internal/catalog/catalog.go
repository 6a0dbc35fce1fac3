// Package catalog holds the per-device-model field catalogs: which raw keys
// exist, how they transform, where they land in device state, and which
// text commands a model accepts. Catalogs are pure configuration, validated
// eagerly at registration so that misuse fails at startup rather than at
// decode time.
package catalog

import (
	"fmt"
	"strings"

	"github.com/helgesson/go-battgw/internal/decoder"
)

// SubMessage is a named group of fields gated by a predicate over the flat
// key map: one logical payload type a device can send. The predicate is a
// required-key subset check.
type SubMessage struct {
	Name     string
	Requires []string
	Fields   []decoder.FieldDefinition
}

// Matches reports whether a frame's flat values belong to this sub-message.
func (m SubMessage) Matches(flat decoder.FlatValues) bool {
	return flat.HasAll(m.Requires...)
}

// Decode applies the sub-message's field definitions to state. Fields whose
// source keys are missing from the frame are left untouched.
func (m SubMessage) Decode(flat decoder.FlatValues, state decoder.DeviceState) {
	decoder.ApplyFields(m.Fields, flat, state)
}

// Command maps a text command accepted from the automation platform to the
// vendor frame published to the device. A frame containing %s has the
// command payload substituted in.
type Command struct {
	Name  string
	Frame string
}

// TakesArg reports whether the command substitutes its payload.
func (c Command) TakesArg() bool {
	return strings.Contains(c.Frame, "%s")
}

// Build renders the vendor frame for the given payload text.
func (c Command) Build(arg string) string {
	if !c.TakesArg() {
		return c.Frame
	}
	return fmt.Sprintf(c.Frame, arg)
}

// Model is the complete catalog for one device family.
type Model struct {
	Type         string // device type token used in vendor topics
	Name         string
	Manufacturer string
	PollCommand  string // vendor frame requesting a telemetry report
	SubMessages  []SubMessage
	Commands     []Command
}

// Command looks a command up by name.
func (m *Model) Command(name string) (Command, bool) {
	for _, c := range m.Commands {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

// Catalog is an immutable set of validated device models.
type Catalog struct {
	models map[string]*Model
	order  []string
}

// New validates the given models and builds a catalog. Any validation error
// is a configuration-time programming error and aborts startup.
func New(models ...Model) (*Catalog, error) {
	c := &Catalog{models: make(map[string]*Model, len(models))}
	for i := range models {
		m := models[i]
		if err := validateModel(&m); err != nil {
			return nil, fmt.Errorf("model %q: %w", m.Type, err)
		}
		if _, dup := c.models[m.Type]; dup {
			return nil, fmt.Errorf("duplicate model type %q", m.Type)
		}
		c.models[m.Type] = &m
		c.order = append(c.order, m.Type)
	}
	return c, nil
}

// Lookup returns the model for a device type token.
func (c *Catalog) Lookup(deviceType string) (*Model, bool) {
	m, ok := c.models[deviceType]
	return m, ok
}

// Types lists the registered model types in registration order.
func (c *Catalog) Types() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
