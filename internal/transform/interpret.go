package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Interpret executes a single-value transform against one raw string value.
// The second return value is false only when the field should stay unset
// (a map miss without a default); malformed numeric text never produces an
// error, it degrades to the documented default instead.
func Interpret(t Transform, raw string) (any, bool) {
	switch t.Kind {
	case KindNumber:
		return parseFloat(raw), true
	case KindDivide:
		return parseFloat(raw) / t.Factor, true
	case KindMultiply:
		return parseFloat(raw) * t.Factor, true
	case KindBoolean:
		return parseInt(raw)&1 != 0, true
	case KindBitBoolean:
		return parseInt(raw)&(1<<t.Bit) != 0, true
	case KindEqualsBoolean:
		return raw == t.Cmp, true
	case KindNotEqualsBoolean:
		return raw != t.Cmp, true
	case KindTemperature:
		v := parseFloat(raw)
		if v > 127 && v <= 255 {
			return v - 256, true
		}
		return v, true
	case KindTimeString:
		parts := strings.Split(raw, ":")
		if len(parts) != 2 {
			return "00:00", true
		}
		return fmt.Sprintf("%02d:%02d", parseInt(parts[0]), parseInt(parts[1])), true
	case KindNegate:
		v := parseFloat(raw)
		if v == 0 {
			return float64(0), true
		}
		return -v, true
	case KindParseInt:
		return parseInt(raw), true
	case KindIdentity:
		return raw, true
	case KindMap:
		for _, e := range t.Table {
			if e.Key == raw {
				return e.Value, true
			}
		}
		if t.HasDefault {
			return t.Default, true
		}
		return nil, false
	case KindRound:
		return roundValue(parseFloat(raw), t), true
	case KindChain:
		return interpretChain(t, raw)
	case KindTimePeriodField:
		return interpretTimePeriod(t.Field, raw), true
	case KindMpptPVField:
		return interpretMpptPV(t.Field, raw), true
	case KindBitMaskToWeekday:
		return WeekdayFromBitMask(parseInt(raw)), true
	default:
		// Multi-value kinds; callers route those through InterpretMulti.
		return nil, false
	}
}

// InterpretMulti executes a multi-value transform against a named set of raw
// values. The set holds one entry per source key of the field definition.
func InterpretMulti(t Transform, values map[string]string) any {
	switch t.Kind {
	case KindSum:
		var total float64
		for _, raw := range values {
			total += parseFloat(raw)
		}
		return total
	case KindMin, KindMax, KindDiff, KindAverage:
		parsed := parsedSubset(values)
		if len(parsed) == 0 {
			return float64(0)
		}
		var result float64
		switch t.Kind {
		case KindMin:
			result = minOf(parsed)
		case KindMax:
			result = maxOf(parsed)
		case KindDiff:
			result = maxOf(parsed) - minOf(parsed)
		case KindAverage:
			var total float64
			for _, v := range parsed {
				total += v
			}
			result = total / float64(len(parsed))
			if t.RoundMean {
				result = math.Floor(result + 0.5)
			}
		}
		if t.Scale > 0 {
			result /= t.Scale
		}
		return result
	default:
		return float64(0)
	}
}

func interpretChain(t Transform, raw string) (any, bool) {
	if len(t.Steps) == 0 {
		return raw, true
	}
	cur := raw
	var out any = raw
	for _, step := range t.Steps {
		v, ok := Interpret(step, cur)
		if !ok {
			return nil, false
		}
		out = v
		cur = FormatValue(v)
	}
	return out, true
}

func interpretTimePeriod(field, raw string) any {
	parts := strings.Split(raw, "|")
	if len(parts) < 7 {
		switch field {
		case PeriodStartTime, PeriodEndTime:
			return "00:00"
		case PeriodWeekday:
			return "0123456"
		case PeriodPower:
			return 0
		default:
			return false
		}
	}
	switch field {
	case PeriodStartTime:
		return fmt.Sprintf("%d:%02d", parseInt(parts[0]), parseInt(parts[1]))
	case PeriodEndTime:
		return fmt.Sprintf("%d:%02d", parseInt(parts[2]), parseInt(parts[3]))
	case PeriodWeekday:
		return WeekdayFromBitMask(parseInt(parts[4]))
	case PeriodPower:
		return parseInt(parts[5])
	default:
		return parts[6] == "1"
	}
}

func interpretMpptPV(field, raw string) any {
	parts := strings.Split(raw, "|")
	if len(parts) < 3 {
		return float64(0)
	}
	idx := 0
	switch field {
	case PVCurrent:
		idx = 1
	case PVPower:
		idx = 2
	}
	return float64(parseInt(parts[idx])) / 10
}

// FormatValue renders an interpreted value the way it appears in published
// state: floats without trailing zeros, booleans as true/false.
func FormatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// parseFloat turns raw numeric text into a float64, degrading to 0 on any
// parse failure. Telemetry from lossy links must never crash the decode path.
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// parseInt matches the template engine's int filter: plain integer text
// first, then float text truncated toward zero, then 0.
func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return int(math.Trunc(parseFloat(s)))
}

func roundValue(v float64, t Transform) float64 {
	if t.HasDecimals && t.Decimals > 0 {
		p := math.Pow(10, float64(t.Decimals))
		return math.Floor(v*p+0.5) / p
	}
	return math.Floor(v + 0.5)
}

func parsedSubset(values map[string]string) []float64 {
	parsed := make([]float64, 0, len(values))
	for _, raw := range values {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		parsed = append(parsed, v)
	}
	return parsed
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
