package decoder

import "github.com/helgesson/go-battgw/internal/transform"

// FieldDefinition binds one or more raw source keys, through an optional
// transform, to a destination path in device state. A field with several
// source keys must carry a multi-value transform; a field without a
// transform defaults to the number transform.
type FieldDefinition struct {
	Keys      []string
	Path      KeyPath
	Transform *transform.Transform
}

// Field builds a single-key definition with the default number transform.
func Field(key string, path KeyPath) FieldDefinition {
	return FieldDefinition{Keys: []string{key}, Path: path}
}

// FieldWith builds a single-key definition with an explicit transform.
func FieldWith(key string, path KeyPath, t transform.Transform) FieldDefinition {
	return FieldDefinition{Keys: []string{key}, Path: path, Transform: &t}
}

// MultiField builds a multi-key definition; t must be a multi-value kind.
func MultiField(keys []string, path KeyPath, t transform.Transform) FieldDefinition {
	return FieldDefinition{Keys: keys, Path: path, Transform: &t}
}

// ApplyFields interprets each field against the flat values and writes the
// results into state. A field whose source keys are not all present is
// skipped entirely: it neither overwrites nor clears previously assigned
// state at its path. A map-transform miss without a default likewise leaves
// the field unset. Nothing here ever returns an error; malformed data
// degrades per the transform semantics.
func ApplyFields(fields []FieldDefinition, flat FlatValues, state DeviceState) {
	for _, f := range fields {
		if !flat.HasAll(f.Keys...) {
			continue
		}
		if len(f.Keys) > 1 {
			set := make(map[string]string, len(f.Keys))
			for _, k := range f.Keys {
				set[k] = flat[k]
			}
			state.Set(f.Path, transform.InterpretMulti(*f.Transform, set))
			continue
		}
		t := transform.Number()
		if f.Transform != nil {
			t = *f.Transform
		}
		value, ok := transform.Interpret(t, flat[f.Keys[0]])
		if !ok {
			continue
		}
		state.Set(f.Path, value)
	}
}
