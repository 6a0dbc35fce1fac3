package decoder

import (
	"strconv"
	"strings"
)

// PathSegment is one element of a KeyPath: either a property name or a
// non-negative list index. The shape is decided once, at construction time,
// so the write path never has to guess.
type PathSegment struct {
	name    string
	index   int
	isIndex bool
}

// Name builds a property-name segment.
func Name(s string) PathSegment { return PathSegment{name: s} }

// Index builds a list-index segment.
func Index(i int) PathSegment { return PathSegment{index: i, isIndex: true} }

// IsIndex reports whether the segment addresses a list position.
func (s PathSegment) IsIndex() bool { return s.isIndex }

// String renders the segment for logging and sensor object IDs.
func (s PathSegment) String() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return s.name
}

// KeyPath locates a value in nested device state.
type KeyPath []PathSegment

// Path builds a KeyPath from a mix of strings and ints. An int, or a string
// whose textual form parses as a non-negative integer, becomes a list index;
// anything else becomes a property name.
func Path(elems ...any) KeyPath {
	path := make(KeyPath, 0, len(elems))
	for _, e := range elems {
		switch v := e.(type) {
		case int:
			if v >= 0 {
				path = append(path, Index(v))
			} else {
				path = append(path, Name(strconv.Itoa(v)))
			}
		case string:
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				path = append(path, Index(n))
			} else {
				path = append(path, Name(v))
			}
		case PathSegment:
			path = append(path, v)
		}
	}
	return path
}

// String renders the path dot-separated, e.g. "timePeriods.0.startTime".
func (p KeyPath) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}
