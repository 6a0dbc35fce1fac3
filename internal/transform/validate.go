package transform

import "fmt"

// Validate checks that a transform is well formed. Misconfigured transforms
// are a catalog programming error and are rejected when the catalog is
// registered, never at decode time.
func (t Transform) Validate() error {
	switch t.Kind {
	case KindDivide:
		if t.Factor == 0 {
			return fmt.Errorf("divide: divisor must not be zero")
		}
	case KindBitBoolean:
		if t.Bit > 62 {
			return fmt.Errorf("bitBoolean: bit %d out of range", t.Bit)
		}
	case KindMap:
		if len(t.Table) == 0 {
			return fmt.Errorf("map: table must not be empty")
		}
		seen := make(map[string]struct{}, len(t.Table))
		for _, e := range t.Table {
			if _, dup := seen[e.Key]; dup {
				return fmt.Errorf("map: duplicate table key %q", e.Key)
			}
			seen[e.Key] = struct{}{}
		}
	case KindRound:
		if t.HasDecimals && (t.Decimals < 0 || t.Decimals > 10) {
			return fmt.Errorf("round: decimals %d out of range", t.Decimals)
		}
	case KindChain:
		if len(t.Steps) == 0 {
			return fmt.Errorf("chain: must have at least one step")
		}
		for i, step := range t.Steps {
			if step.Kind == KindChain {
				return fmt.Errorf("chain: step %d: nested chains are not allowed", i)
			}
			if step.IsMultiKey() {
				return fmt.Errorf("chain: step %d: multi-key transform %s not allowed inside chain", i, step.Kind)
			}
			if err := step.Validate(); err != nil {
				return fmt.Errorf("chain: step %d: %w", i, err)
			}
		}
	case KindTimePeriodField:
		switch t.Field {
		case PeriodStartTime, PeriodEndTime, PeriodWeekday, PeriodPower, PeriodEnabled:
		default:
			return fmt.Errorf("timePeriodField: unknown field %q", t.Field)
		}
	case KindMpptPVField:
		switch t.Field {
		case PVVoltage, PVCurrent, PVPower:
		default:
			return fmt.Errorf("mpptPvField: unknown field %q", t.Field)
		}
	case KindMin, KindMax, KindDiff, KindAverage:
		if t.Scale < 0 {
			return fmt.Errorf("%s: scale must not be negative", t.Kind)
		}
	}
	return nil
}
