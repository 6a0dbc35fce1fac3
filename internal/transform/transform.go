// Package transform defines the declarative value-transform algebra used to
// decode raw device telemetry values, together with its runtime interpreter.
// A Transform is pure configuration: built once when a device catalog is
// registered and shared read-only between the interpreter and the template
// compiler.
package transform

// Kind identifies one variant of the closed transform algebra.
type Kind int

const (
	// Single-value kinds.
	KindNumber Kind = iota
	KindDivide
	KindMultiply
	KindBoolean
	KindBitBoolean
	KindEqualsBoolean
	KindNotEqualsBoolean
	KindTemperature
	KindTimeString
	KindNegate
	KindParseInt
	KindIdentity
	KindMap
	KindRound
	KindChain
	KindTimePeriodField
	KindMpptPVField
	KindBitMaskToWeekday

	// Multi-value kinds, operating over a named set of raw inputs.
	KindSum
	KindMin
	KindMax
	KindDiff
	KindAverage
)

// String returns the string representation of the transform kind.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindDivide:
		return "divide"
	case KindMultiply:
		return "multiply"
	case KindBoolean:
		return "boolean"
	case KindBitBoolean:
		return "bitBoolean"
	case KindEqualsBoolean:
		return "equalsBoolean"
	case KindNotEqualsBoolean:
		return "notEqualsBoolean"
	case KindTemperature:
		return "temperature"
	case KindTimeString:
		return "timeString"
	case KindNegate:
		return "negate"
	case KindParseInt:
		return "parseInt"
	case KindIdentity:
		return "identity"
	case KindMap:
		return "map"
	case KindRound:
		return "round"
	case KindChain:
		return "chain"
	case KindTimePeriodField:
		return "timePeriodField"
	case KindMpptPVField:
		return "mpptPvField"
	case KindBitMaskToWeekday:
		return "bitMaskToWeekday"
	case KindSum:
		return "sum"
	case KindMin:
		return "min"
	case KindMax:
		return "max"
	case KindDiff:
		return "diff"
	case KindAverage:
		return "average"
	default:
		return "unknown"
	}
}

// ValueType describes the Go type a transform produces.
type ValueType int

const (
	ValueNumber ValueType = iota
	ValueBool
	ValueString
)

// MapEntry is one key/value pair of a lookup-table transform. Entries keep
// their declaration order so that compiled if/elif branches are stable.
type MapEntry struct {
	Key   string
	Value any
}

// Transform is an immutable, data-only description of a value conversion.
// Exactly the fields relevant to its Kind are populated; use the package
// constructors rather than building values by hand.
type Transform struct {
	Kind Kind

	Factor      float64    // divide / multiply constant
	Bit         uint       // bitBoolean bit position
	Cmp         string     // equalsBoolean / notEqualsBoolean comparison literal
	Table       []MapEntry // map lookup table, in declaration order
	Default     any        // map default value
	HasDefault  bool
	Steps       []Transform // chain steps
	Field       string      // timePeriodField / mpptPvField sub-field selector
	Scale       float64     // min/max/diff/average divisor, 0 means none
	RoundMean   bool        // average: round the mean before scaling
	Decimals    int         // round precision
	HasDecimals bool
}

// Field selectors for TimePeriodField.
const (
	PeriodStartTime = "startTime"
	PeriodEndTime   = "endTime"
	PeriodWeekday   = "weekday"
	PeriodPower     = "power"
	PeriodEnabled   = "enabled"
)

// Field selectors for MpptPVField.
const (
	PVVoltage = "voltage"
	PVCurrent = "current"
	PVPower   = "power"
)

// Number parses the raw value as a floating point number, degrading to 0.
func Number() Transform { return Transform{Kind: KindNumber} }

// Divide parses the raw value as a number and divides it by divisor.
func Divide(divisor float64) Transform {
	return Transform{Kind: KindDivide, Factor: divisor}
}

// Multiply parses the raw value as a number and multiplies it by multiplier.
func Multiply(multiplier float64) Transform {
	return Transform{Kind: KindMultiply, Factor: multiplier}
}

// Boolean tests bit 0 of the raw value parsed as an integer.
func Boolean() Transform { return Transform{Kind: KindBoolean} }

// BitBoolean tests the given bit of the raw value parsed as an integer.
func BitBoolean(bit uint) Transform {
	return Transform{Kind: KindBitBoolean, Bit: bit}
}

// EqualsBoolean is true when the raw string equals s exactly.
func EqualsBoolean(s string) Transform {
	return Transform{Kind: KindEqualsBoolean, Cmp: s}
}

// NotEqualsBoolean is true when the raw string differs from s.
func NotEqualsBoolean(s string) Transform {
	return Transform{Kind: KindNotEqualsBoolean, Cmp: s}
}

// Temperature recovers a signed 8-bit reading that the device encoded as
// unsigned: values in (127,255] map to value-256, everything else passes
// through unchanged.
func Temperature() Transform { return Transform{Kind: KindTemperature} }

// TimeString zero-pads an H:M string to HH:MM, falling back to "00:00".
func TimeString() Transform { return Transform{Kind: KindTimeString} }

// Negate parses the raw value as a number and negates it.
func Negate() Transform { return Transform{Kind: KindNegate} }

// ParseInt parses the raw value as an integer, degrading to 0.
func ParseInt() Transform { return Transform{Kind: KindParseInt} }

// Identity passes the raw string through untouched.
func Identity() Transform { return Transform{Kind: KindIdentity} }

// MapTable looks the raw string up in an ordered key/value table. Unmatched
// keys resolve to nothing: the field stays unset.
func MapTable(entries ...MapEntry) Transform {
	return Transform{Kind: KindMap, Table: entries}
}

// MapTableDefault is MapTable with a fallback value for unmatched keys.
func MapTableDefault(def any, entries ...MapEntry) Transform {
	return Transform{Kind: KindMap, Table: entries, Default: def, HasDefault: true}
}

// Round rounds the parsed value to the nearest integer, ties toward +inf.
func Round() Transform { return Transform{Kind: KindRound} }

// RoundTo rounds the parsed value to the given number of decimals.
func RoundTo(decimals int) Transform {
	return Transform{Kind: KindRound, Decimals: decimals, HasDecimals: true}
}

// Chain folds the raw value through each step in order, re-stringifying the
// intermediate result between steps. Steps must be single-value kinds and
// must not themselves be chains.
func Chain(steps ...Transform) Transform {
	return Transform{Kind: KindChain, Steps: steps}
}

// TimePeriodField extracts one sub-field of a pipe-delimited time period
// (start hour|start minute|end hour|end minute|weekday mask|power|enabled).
func TimePeriodField(field string) Transform {
	return Transform{Kind: KindTimePeriodField, Field: field}
}

// MpptPVField extracts voltage, current or power (tenths precision) from a
// pipe-delimited MPPT channel reading.
func MpptPVField(field string) Transform {
	return Transform{Kind: KindMpptPVField, Field: field}
}

// BitMaskToWeekday renders a 7-bit weekday mask (bit 0 = Sunday) as an
// ascending digit-set string, e.g. 0b0000101 -> "02".
func BitMaskToWeekday() Transform { return Transform{Kind: KindBitMaskToWeekday} }

// Sum adds all raw inputs, treating unparsable entries as 0.
func Sum() Transform { return Transform{Kind: KindSum} }

// Min takes the minimum over the parsable inputs, optionally divided by scale.
func Min(scale float64) Transform { return Transform{Kind: KindMin, Scale: scale} }

// Max takes the maximum over the parsable inputs, optionally divided by scale.
func Max(scale float64) Transform { return Transform{Kind: KindMax, Scale: scale} }

// Diff takes max-min over the parsable inputs, optionally divided by scale.
func Diff(scale float64) Transform { return Transform{Kind: KindDiff, Scale: scale} }

// Average takes the mean over the parsable inputs, optionally rounded to the
// nearest integer before being divided by scale.
func Average(scale float64, round bool) Transform {
	return Transform{Kind: KindAverage, Scale: scale, RoundMean: round}
}

// IsMultiKey reports whether the transform aggregates several raw values.
func (t Transform) IsMultiKey() bool {
	switch t.Kind {
	case KindSum, KindMin, KindMax, KindDiff, KindAverage:
		return true
	default:
		return false
	}
}

// ResultType reports the Go type the transform produces when interpreted.
func (t Transform) ResultType() ValueType {
	switch t.Kind {
	case KindBoolean, KindBitBoolean, KindEqualsBoolean, KindNotEqualsBoolean:
		return ValueBool
	case KindIdentity, KindTimeString, KindBitMaskToWeekday:
		return ValueString
	case KindTimePeriodField:
		switch t.Field {
		case PeriodEnabled:
			return ValueBool
		case PeriodPower:
			return ValueNumber
		default:
			return ValueString
		}
	case KindMap:
		// Table values decide; a mixed table is treated as string-valued.
		kind, uniform := tableValueType(t)
		if uniform {
			return kind
		}
		return ValueString
	case KindChain:
		if len(t.Steps) == 0 {
			return ValueString
		}
		return t.Steps[len(t.Steps)-1].ResultType()
	default:
		return ValueNumber
	}
}

func tableValueType(t Transform) (ValueType, bool) {
	var kind ValueType
	for i, e := range t.Table {
		k := literalType(e.Value)
		if i == 0 {
			kind = k
		} else if k != kind {
			return 0, false
		}
	}
	if t.HasDefault && literalType(t.Default) != kind {
		return 0, false
	}
	return kind, true
}

func literalType(v any) ValueType {
	switch v.(type) {
	case bool:
		return ValueBool
	case float64, int, int64:
		return ValueNumber
	default:
		return ValueString
	}
}
