package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpretNumeric(t *testing.T) {
	tests := []struct {
		name      string
		transform Transform
		raw       string
		expected  any
	}{
		{"number", Number(), "42", 42.0},
		{"number decimal", Number(), "3.5", 3.5},
		{"number garbage", Number(), "abc", 0.0},
		{"number empty", Number(), "", 0.0},
		{"divide", Divide(10), "314", 31.4},
		{"divide garbage", Divide(10), "x", 0.0},
		{"multiply", Multiply(10), "2.5", 25.0},
		{"negate positive", Negate(), "80", -80.0},
		{"negate negative", Negate(), "-80", 80.0},
		{"negate zero stays positive zero", Negate(), "0", 0.0},
		{"parseInt plain", ParseInt(), "100", 100},
		{"parseInt truncates toward zero", ParseInt(), "3.9", 3},
		{"parseInt negative truncates toward zero", ParseInt(), "-3.9", -3},
		{"parseInt garbage", ParseInt(), "x", 0},
		{"round half up", Round(), "2.5", 3.0},
		{"round half up at even", Round(), "30.5", 31.0},
		{"round half up below one", Round(), "0.5", 1.0},
		{"round down", Round(), "2.4", 2.0},
		{"round negative half toward positive", Round(), "-2.5", -2.0},
		{"roundTo decimals", RoundTo(2), "3.14159", 3.14},
		{"roundTo half up at tie", RoundTo(1), "0.25", 0.3},
		{"identity", Identity(), "hello world", "hello world"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Interpret(tc.transform, tc.raw)
			require.True(t, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestInterpretBooleans(t *testing.T) {
	tests := []struct {
		name      string
		transform Transform
		raw       string
		expected  bool
	}{
		{"boolean one", Boolean(), "1", true},
		{"boolean zero", Boolean(), "0", false},
		{"boolean odd", Boolean(), "3", true},
		{"boolean garbage", Boolean(), "x", false},
		{"bit boolean set", BitBoolean(2), "4", true},
		{"bit boolean unset", BitBoolean(2), "3", false},
		{"equals match", EqualsBoolean("1"), "1", true},
		{"equals mismatch", EqualsBoolean("1"), "2", false},
		{"not equals", NotEqualsBoolean("0"), "5", true},
		{"not equals match", NotEqualsBoolean("0"), "0", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Interpret(tc.transform, tc.raw)
			require.True(t, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestInterpretTemperature(t *testing.T) {
	tests := []struct {
		raw      string
		expected float64
	}{
		{"0", 0},
		{"25", 25},
		{"127", 127},
		{"128", -128},
		{"255", -1},
		{"256", 256}, // out of the uint8 wrap window, passes through
		{"-5", -5},
	}

	for _, tc := range tests {
		got, ok := Interpret(Temperature(), tc.raw)
		require.True(t, ok)
		assert.Equal(t, tc.expected, got, "raw=%s", tc.raw)
	}
}

func TestInterpretTimeString(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"5:7", "05:07"},
		{"22:30", "22:30"},
		{"0:0", "00:00"},
		{"garbage", "00:00"},
		{"1:2:3", "00:00"},
	}

	for _, tc := range tests {
		got, ok := Interpret(TimeString(), tc.raw)
		require.True(t, ok)
		assert.Equal(t, tc.expected, got, "raw=%s", tc.raw)
	}
}

func TestInterpretMap(t *testing.T) {
	m := MapTable(
		MapEntry{Key: "0", Value: "off"},
		MapEntry{Key: "1", Value: "on"},
	)

	got, ok := Interpret(m, "1")
	require.True(t, ok)
	assert.Equal(t, "on", got)

	// Miss without default leaves the field unset.
	_, ok = Interpret(m, "9")
	assert.False(t, ok)

	withDefault := MapTableDefault("unknown",
		MapEntry{Key: "0", Value: "off"},
	)
	got, ok = Interpret(withDefault, "9")
	require.True(t, ok)
	assert.Equal(t, "unknown", got)
}

func TestInterpretChain(t *testing.T) {
	// Firmware version: 214 → 2.14
	c := Chain(Divide(100), RoundTo(2))
	got, ok := Interpret(c, "214")
	require.True(t, ok)
	assert.Equal(t, 2.14, got)

	// Values are re-stringified between steps.
	c = Chain(Divide(10), Round())
	got, ok = Interpret(c, "314")
	require.True(t, ok)
	assert.Equal(t, 31.0, got)

	// A map miss inside a chain aborts the whole chain.
	c = Chain(ParseInt(), MapTable(MapEntry{Key: "1", Value: "on"}))
	_, ok = Interpret(c, "7")
	assert.False(t, ok)
}

func TestInterpretTimePeriodField(t *testing.T) {
	raw := "9|0|17|30|62|250|1"

	tests := []struct {
		field    string
		expected any
	}{
		{PeriodStartTime, "9:00"},
		{PeriodEndTime, "17:30"},
		{PeriodWeekday, "12345"}, // 62 = bits 1..5, Monday..Friday
		{PeriodPower, 250},
		{PeriodEnabled, true},
	}

	for _, tc := range tests {
		got, ok := Interpret(TimePeriodField(tc.field), raw)
		require.True(t, ok)
		assert.Equal(t, tc.expected, got, "field=%s", tc.field)
	}
}

func TestInterpretTimePeriodFieldShortInput(t *testing.T) {
	raw := "9|0|17"

	tests := []struct {
		field    string
		expected any
	}{
		{PeriodStartTime, "00:00"},
		{PeriodEndTime, "00:00"},
		{PeriodWeekday, "0123456"},
		{PeriodPower, 0},
		{PeriodEnabled, false},
	}

	for _, tc := range tests {
		got, ok := Interpret(TimePeriodField(tc.field), raw)
		require.True(t, ok)
		assert.Equal(t, tc.expected, got, "field=%s", tc.field)
	}
}

func TestInterpretMpptPVField(t *testing.T) {
	raw := "325|15|1820"

	tests := []struct {
		field    string
		expected float64
	}{
		{PVVoltage, 32.5},
		{PVCurrent, 1.5},
		{PVPower, 182.0},
	}

	for _, tc := range tests {
		got, ok := Interpret(MpptPVField(tc.field), raw)
		require.True(t, ok)
		assert.Equal(t, tc.expected, got, "field=%s", tc.field)
	}

	got, ok := Interpret(MpptPVField(PVPower), "325|15")
	require.True(t, ok)
	assert.Equal(t, 0.0, got)
}

func TestInterpretMultiSum(t *testing.T) {
	got := InterpretMulti(Sum(), map[string]string{"w1": "120", "w2": "80"})
	assert.Equal(t, 200.0, got)

	// Unparsable contributes zero, it does not poison the sum.
	got = InterpretMulti(Sum(), map[string]string{"w1": "120", "w2": "x"})
	assert.Equal(t, 120.0, got)
}

func TestInterpretMultiAggregates(t *testing.T) {
	cells := map[string]string{
		"c1": "3312", "c2": "3305", "c3": "3328", "c4": "3301",
	}

	assert.Equal(t, 3.301, InterpretMulti(Min(1000), cells))
	assert.Equal(t, 3.328, InterpretMulti(Max(1000), cells))
	assert.Equal(t, 27.0, InterpretMulti(Diff(0), cells))

	// Average rounds the mean before scaling when requested.
	avg := InterpretMulti(Average(1000, true), cells)
	assert.Equal(t, 3.312, avg) // mean 3311.5 → 3312 → /1000
}

func TestInterpretMultiSkipsUnparsable(t *testing.T) {
	values := map[string]string{"a": "10", "b": "garbage", "c": "30"}

	assert.Equal(t, 10.0, InterpretMulti(Min(0), values))
	assert.Equal(t, 30.0, InterpretMulti(Max(0), values))

	// All unparsable degrades to zero.
	bad := map[string]string{"a": "x", "b": "y"}
	assert.Equal(t, 0.0, InterpretMulti(Max(0), bad))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		value    any
		expected string
	}{
		{31.4, "31.4"},
		{31.0, "31"},
		{42, "42"},
		{true, "true"},
		{false, "false"},
		{"text", "text"},
		{nil, ""},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, FormatValue(tc.value))
	}
}
