// Package decoder turns raw vendor wire frames into typed, nested device
// state: frame parsing, key paths, and the field assignment engine.
package decoder

import "strings"

// FlatValues maps raw key to raw string value for one frame. It is rebuilt
// fresh per frame and never merged across frames.
type FlatValues map[string]string

// ParseFrame splits one raw wire frame into its flat key/value map. Frames
// are comma-separated key=value ASCII tokens; a fragment that does not split
// into exactly two non-empty parts is silently dropped. A duplicate key's
// later value overwrites the earlier one.
func ParseFrame(raw string) FlatValues {
	values := make(FlatValues)
	for _, fragment := range strings.Split(raw, ",") {
		kv := strings.SplitN(fragment, "=", 2)
		if len(kv) != 2 || kv[0] == "" || kv[1] == "" {
			continue
		}
		values[kv[0]] = kv[1]
	}
	return values
}

// HasAll reports whether every given key is present.
func (fv FlatValues) HasAll(keys ...string) bool {
	for _, k := range keys {
		if _, ok := fv[k]; !ok {
			return false
		}
	}
	return true
}
