package jinja

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helgesson/go-battgw/internal/transform"
)

func TestCompileExpressions(t *testing.T) {
	tests := []struct {
		name      string
		transform transform.Transform
		expected  string
	}{
		{"number", transform.Number(), "x | float(0)"},
		{"divide", transform.Divide(10), "(x | float(0)) / 10"},
		{"multiply", transform.Multiply(2.5), "(x | float(0)) * 2.5"},
		{"boolean", transform.Boolean(), "'true' if (x | int(0) | bitwise_and(1)) > 0 else 'false'"},
		{"bit boolean", transform.BitBoolean(2), "'true' if (x | int(0) | bitwise_and(4)) > 0 else 'false'"},
		{"equals", transform.EqualsBoolean("1"), "'true' if x == '1' else 'false'"},
		{"not equals", transform.NotEqualsBoolean("0"), "'true' if x != '0' else 'false'"},
		{"negate", transform.Negate(), "-(x | float(0))"},
		{"parse int", transform.ParseInt(), "x | int(0)"},
		{"identity", transform.Identity(), "x"},
		{"round", transform.Round(), "((x | float(0)) + 0.5) | round(0, 'floor') | int"},
		{"round to decimals", transform.RoundTo(2), "(((x | float(0)) * 100 + 0.5) | round(0, 'floor')) / 100"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			frag, err := Compile(tc.transform, "x")
			require.NoError(t, err)
			assert.False(t, frag.IsBlock())
			assert.Equal(t, tc.expected, frag.Expr())
			assert.Equal(t, "{{ "+tc.expected+" }}", frag.Render())
		})
	}
}

func TestCompileTemperature(t *testing.T) {
	frag, err := Compile(transform.Temperature(), "x")
	require.NoError(t, err)
	assert.True(t, frag.IsBlock())
	assert.Equal(t, "{% set v0 = x | float(0) %}", frag.Prologue())
	assert.Equal(t, "v0 - 256 if v0 > 127 and v0 <= 255 else v0", frag.Expr())
}

func TestCompileTimeString(t *testing.T) {
	frag, err := Compile(transform.TimeString(), "x")
	require.NoError(t, err)
	assert.True(t, frag.IsBlock())
	assert.Equal(t, "{% set parts0 = x.split(':') %}", frag.Prologue())
	assert.Equal(t,
		"'%02d:%02d' | format(parts0[0] | int(0), parts0[1] | int(0)) if parts0 | length == 2 else '00:00'",
		frag.Expr())
}

func TestCompileMap(t *testing.T) {
	m := transform.MapTableDefault("unknown",
		transform.MapEntry{Key: "0", Value: "manual"},
		transform.MapEntry{Key: "1", Value: "auto"},
	)
	frag, err := Compile(m, "x")
	require.NoError(t, err)
	assert.True(t, frag.IsBlock())
	assert.Equal(t,
		"{% set mapped0 = 'unknown' %}"+
			"{% if x == '0' %}{% set mapped0 = 'manual' %}"+
			"{% elif x == '1' %}{% set mapped0 = 'auto' %}"+
			"{% endif %}",
		frag.Prologue())
	assert.Equal(t, "mapped0", frag.Expr())
}

func TestCompileMapWithoutDefault(t *testing.T) {
	m := transform.MapTable(transform.MapEntry{Key: "1", Value: "on"})
	frag, err := Compile(m, "x")
	require.NoError(t, err)
	assert.Contains(t, frag.Prologue(), "{% set mapped0 = '' %}")
}

func TestCompileChainOfExpressions(t *testing.T) {
	// Expression steps splice inline, no temporaries needed.
	c := transform.Chain(transform.Divide(100), transform.RoundTo(2))
	frag, err := Compile(c, "x")
	require.NoError(t, err)
	assert.False(t, frag.IsBlock())
	assert.Equal(t, "(((((x | float(0)) / 100) | float(0)) * 100 + 0.5) | round(0, 'floor')) / 100", frag.Expr())
}

func TestCompileChainWithBlockStep(t *testing.T) {
	// A block step in the middle is captured into a temporary.
	c := transform.Chain(transform.Temperature(), transform.Round())
	frag, err := Compile(c, "x")
	require.NoError(t, err)
	assert.True(t, frag.IsBlock())
	assert.Contains(t, frag.Prologue(), "{% set v0 = x | float(0) %}")
	assert.Contains(t, frag.Prologue(), "{% set tmp1 %}{{ v0 - 256 if v0 > 127 and v0 <= 255 else v0 }}{% endset %}")
	assert.Equal(t, "((tmp1 | float(0)) + 0.5) | round(0, 'floor') | int", frag.Expr())
}

func TestCompileTimePeriodFields(t *testing.T) {
	frag, err := Compile(transform.TimePeriodField(transform.PeriodStartTime), "x")
	require.NoError(t, err)
	assert.Equal(t, "{% set parts0 = x.split('|') %}", frag.Prologue())
	assert.Equal(t,
		"'%d:%02d' | format(parts0[0] | int(0), parts0[1] | int(0)) if parts0 | length >= 7 else '00:00'",
		frag.Expr())

	frag, err = Compile(transform.TimePeriodField(transform.PeriodPower), "x")
	require.NoError(t, err)
	assert.Equal(t, "parts0[5] | int(0) if parts0 | length >= 7 else 0", frag.Expr())

	frag, err = Compile(transform.TimePeriodField(transform.PeriodEnabled), "x")
	require.NoError(t, err)
	assert.Equal(t, "'true' if parts0 | length >= 7 and parts0[6] == '1' else 'false'", frag.Expr())

	frag, err = Compile(transform.TimePeriodField(transform.PeriodWeekday), "x")
	require.NoError(t, err)
	assert.Contains(t, frag.Prologue(), "bitwise_and(2**i)")
	assert.Contains(t, frag.Prologue(), "{% set days1.s = '0123456' %}")
	assert.Equal(t, "days1.s", frag.Expr())
}

func TestCompileMpptPVField(t *testing.T) {
	frag, err := Compile(transform.MpptPVField(transform.PVCurrent), "x")
	require.NoError(t, err)
	assert.Equal(t, "{% set parts0 = x.split('|') %}", frag.Prologue())
	assert.Equal(t, "(parts0[1] | int(0)) / 10 if parts0 | length >= 3 else 0", frag.Expr())
}

func TestCompileBitMaskToWeekday(t *testing.T) {
	frag, err := Compile(transform.BitMaskToWeekday(), "x")
	require.NoError(t, err)
	assert.True(t, frag.IsBlock())
	assert.Contains(t, frag.Prologue(), "{% set days0 = namespace(s='') %}")
	assert.Contains(t, frag.Prologue(), "x | int(0) | bitwise_and(2**i)")
	assert.Equal(t, "days0.s", frag.Expr())
}

func TestCompileRejectsMultiKey(t *testing.T) {
	_, err := Compile(transform.Sum(), "x")
	assert.ErrorContains(t, err, "multi-key")
}

func TestCompileQuotesLiterals(t *testing.T) {
	frag, err := Compile(transform.EqualsBoolean("it's"), "x")
	require.NoError(t, err)
	assert.Contains(t, frag.Expr(), `'it\'s'`)
}
