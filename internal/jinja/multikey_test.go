package jinja

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helgesson/go-battgw/internal/transform"
)

func TestCompileMultiKeySum(t *testing.T) {
	frag, err := CompileMultiKey(transform.Sum(), []string{"w1", "w2"}, "vals.d")
	require.NoError(t, err)
	assert.False(t, frag.IsBlock())
	assert.Equal(t, "[vals.d.get('w1') | float(0), vals.d.get('w2') | float(0)] | sum", frag.Expr())
}

func TestCompileMultiKeyAggregates(t *testing.T) {
	keys := []string{"c1", "c2"}

	frag, err := CompileMultiKey(transform.Min(1000), keys, "vals.d")
	require.NoError(t, err)
	assert.True(t, frag.IsBlock())
	assert.Equal(t,
		"{% set vs0 = [vals.d.get('c1'), vals.d.get('c2')] | reject('none') | map('float') | list %}",
		frag.Prologue())
	assert.Equal(t, "(vs0 | min) / 1000 if vs0 | length > 0 else 0", frag.Expr())

	frag, err = CompileMultiKey(transform.Diff(0), keys, "vals.d")
	require.NoError(t, err)
	assert.Equal(t, "(vs0 | max) - (vs0 | min) if vs0 | length > 0 else 0", frag.Expr())

	frag, err = CompileMultiKey(transform.Average(1000, true), keys, "vals.d")
	require.NoError(t, err)
	assert.Equal(t, "((((vs0 | sum) / (vs0 | length)) + 0.5) | round(0, 'floor') | int) / 1000 if vs0 | length > 0 else 0", frag.Expr())
}

func TestCompileMultiKeyRejectsSingleValue(t *testing.T) {
	_, err := CompileMultiKey(transform.Number(), []string{"a"}, "vals.d")
	assert.ErrorContains(t, err, "single-value")

	_, err = CompileMultiKey(transform.Sum(), nil, "vals.d")
	assert.ErrorContains(t, err, "at least one source key")
}
