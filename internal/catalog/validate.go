package catalog

import (
	"fmt"

	"github.com/helgesson/go-battgw/internal/decoder"
)

func validateModel(m *Model) error {
	if m.Type == "" {
		return fmt.Errorf("type must not be empty")
	}
	if len(m.SubMessages) == 0 {
		return fmt.Errorf("model needs at least one sub-message")
	}
	seen := make(map[string]struct{}, len(m.SubMessages))
	for _, sub := range m.SubMessages {
		if sub.Name == "" {
			return fmt.Errorf("sub-message name must not be empty")
		}
		if _, dup := seen[sub.Name]; dup {
			return fmt.Errorf("duplicate sub-message %q", sub.Name)
		}
		seen[sub.Name] = struct{}{}
		if len(sub.Fields) == 0 {
			return fmt.Errorf("sub-message %q: needs at least one field", sub.Name)
		}
		for _, f := range sub.Fields {
			if err := validateField(f); err != nil {
				return fmt.Errorf("sub-message %q: field %q: %w", sub.Name, f.Path, err)
			}
		}
	}
	names := make(map[string]struct{}, len(m.Commands))
	for _, cmd := range m.Commands {
		if cmd.Name == "" || cmd.Frame == "" {
			return fmt.Errorf("command %q: name and frame must not be empty", cmd.Name)
		}
		if _, dup := names[cmd.Name]; dup {
			return fmt.Errorf("duplicate command %q", cmd.Name)
		}
		names[cmd.Name] = struct{}{}
	}
	return nil
}

func validateField(f decoder.FieldDefinition) error {
	if len(f.Keys) == 0 {
		return fmt.Errorf("needs at least one source key")
	}
	for _, k := range f.Keys {
		if k == "" {
			return fmt.Errorf("source key must not be empty")
		}
	}
	if len(f.Path) == 0 {
		return fmt.Errorf("destination path must not be empty")
	}
	if f.Path[0].IsIndex() {
		return fmt.Errorf("destination path must start with a property name")
	}
	if len(f.Keys) > 1 {
		if f.Transform == nil || !f.Transform.IsMultiKey() {
			return fmt.Errorf("multiple source keys require a multi-value transform")
		}
	} else if f.Transform != nil && f.Transform.IsMultiKey() {
		return fmt.Errorf("multi-value transform %s requires multiple source keys", f.Transform.Kind)
	}
	if f.Transform != nil {
		if err := f.Transform.Validate(); err != nil {
			return err
		}
	}
	return nil
}
