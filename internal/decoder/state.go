package decoder

// DeviceState is the nested, JSON-serializable structure a device's decoded
// fields are assembled into. It survives across frames: a decode only
// overwrites the paths its fields touch. Callers must serialize concurrent
// writes to the same state themselves; the engine assumes exclusive access
// for the duration of one call.
type DeviceState map[string]any

// NewDeviceState returns an empty device state.
func NewDeviceState() DeviceState {
	return make(DeviceState)
}

// Set writes value at path, creating intermediate containers as needed: a
// list when the next segment is an index, a keyed map otherwise. The final
// segment's prior value, if any, is overwritten. The root is always a map;
// an index-shaped first segment is stored under its decimal name.
func (st DeviceState) Set(path KeyPath, value any) {
	if len(path) == 0 {
		return
	}
	key := path[0].String()
	if len(path) == 1 {
		st[key] = value
		return
	}
	st[key] = setInChild(st[key], path[1:], value)
}

// Get walks path and returns the value stored there.
func (st DeviceState) Get(path KeyPath) (any, bool) {
	var cur any = map[string]any(st)
	for _, seg := range path {
		if seg.isIndex {
			list, ok := cur.([]any)
			if !ok || seg.index >= len(list) {
				return nil, false
			}
			cur = list[seg.index]
		} else {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = m[seg.name]
			if !ok {
				return nil, false
			}
		}
	}
	return cur, true
}

// Clone returns a deep copy, safe to hand to another goroutine.
func (st DeviceState) Clone() DeviceState {
	return DeviceState(cloneMap(st))
}

func setInChild(container any, path KeyPath, value any) any {
	seg := path[0]
	if seg.isIndex {
		list, _ := container.([]any)
		list = ensureLen(list, seg.index+1)
		if len(path) == 1 {
			list[seg.index] = value
		} else {
			list[seg.index] = setInChild(list[seg.index], path[1:], value)
		}
		return list
	}
	m, ok := container.(map[string]any)
	if !ok {
		m = make(map[string]any)
	}
	if len(path) == 1 {
		m[seg.name] = value
	} else {
		m[seg.name] = setInChild(m[seg.name], path[1:], value)
	}
	return m
}

func ensureLen(list []any, n int) []any {
	for len(list) < n {
		list = append(list, nil)
	}
	return list
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
