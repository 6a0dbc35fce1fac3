package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		transform Transform
		wantErr   string
	}{
		{"number ok", Number(), ""},
		{"divide ok", Divide(10), ""},
		{"divide by zero", Divide(0), "divisor must not be zero"},
		{"bit out of range", BitBoolean(63), "out of range"},
		{"empty map", Transform{Kind: KindMap}, "table must not be empty"},
		{"duplicate map key", MapTable(
			MapEntry{Key: "0", Value: "a"},
			MapEntry{Key: "0", Value: "b"},
		), "duplicate table key"},
		{"round decimals out of range", RoundTo(11), "decimals 11 out of range"},
		{"empty chain", Transform{Kind: KindChain}, "at least one step"},
		{"nested chain", Chain(Chain(Number())), "nested chains"},
		{"multi-key inside chain", Chain(Sum()), "not allowed inside chain"},
		{"invalid chain step", Chain(Divide(0)), "divisor must not be zero"},
		{"bad period field", TimePeriodField("bogus"), "unknown field"},
		{"bad pv field", MpptPVField("bogus"), "unknown field"},
		{"negative scale", Min(-1), "scale must not be negative"},
		{"period field ok", TimePeriodField(PeriodWeekday), ""},
		{"aggregate ok", Average(1000, true), ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.transform.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
