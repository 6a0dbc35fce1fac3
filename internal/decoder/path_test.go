package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathSegmentShapes(t *testing.T) {
	p := Path("mppt", 0, "power")

	assert.Len(t, p, 3)
	assert.False(t, p[0].IsIndex())
	assert.True(t, p[1].IsIndex())
	assert.False(t, p[2].IsIndex())
}

func TestPathNumericStringsBecomeIndexes(t *testing.T) {
	p := Path("cells", "3", "voltage")
	assert.True(t, p[1].IsIndex())

	// Negative numbers are not valid indexes.
	p = Path("a", -1)
	assert.False(t, p[1].IsIndex())
	assert.Equal(t, "-1", p[1].String())

	p = Path("a", "-1")
	assert.False(t, p[1].IsIndex())
}

func TestPathString(t *testing.T) {
	assert.Equal(t, "timePeriods.0.startTime", Path("timePeriods", 0, "startTime").String())
	assert.Equal(t, "batteryPercentage", Path("batteryPercentage").String())
}
