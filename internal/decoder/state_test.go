package decoder

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTopLevel(t *testing.T) {
	st := NewDeviceState()
	st.Set(Path("batteryPercentage"), 85.0)

	got, ok := st.Get(Path("batteryPercentage"))
	require.True(t, ok)
	assert.Equal(t, 85.0, got)
}

func TestSetCreatesListForIndexSegment(t *testing.T) {
	st := NewDeviceState()
	st.Set(Path("mppt", 1, "power"), 182.0)

	list, ok := st["mppt"].([]any)
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Nil(t, list[0])

	entry, ok := list[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 182.0, entry["power"])
}

func TestSetCreatesMapForNameSegment(t *testing.T) {
	st := NewDeviceState()
	st.Set(Path("timer", "start"), "09:00")

	m, ok := st["timer"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "09:00", m["start"])
}

func TestSetSparseUpdateKeepsSiblings(t *testing.T) {
	st := NewDeviceState()
	st.Set(Path("timePeriods", 0, "startTime"), "09:00")
	st.Set(Path("timePeriods", 0, "power"), 250)
	st.Set(Path("timePeriods", 1, "startTime"), "18:00")

	// Overwrite one leaf; everything else must survive.
	st.Set(Path("timePeriods", 0, "power"), 400)

	got, ok := st.Get(Path("timePeriods", 0, "startTime"))
	require.True(t, ok)
	assert.Equal(t, "09:00", got)

	got, ok = st.Get(Path("timePeriods", 0, "power"))
	require.True(t, ok)
	assert.Equal(t, 400, got)

	got, ok = st.Get(Path("timePeriods", 1, "startTime"))
	require.True(t, ok)
	assert.Equal(t, "18:00", got)
}

func TestSetIndexFirstSegmentStoredUnderName(t *testing.T) {
	st := NewDeviceState()
	st.Set(Path(0, "x"), 1)

	// Root is always a map; the index becomes the key "0".
	m, ok := st["0"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, m["x"])
}

func TestSetOverwritesMismatchedContainer(t *testing.T) {
	st := NewDeviceState()
	st.Set(Path("a"), "scalar")
	st.Set(Path("a", "b"), 2)

	got, ok := st.Get(Path("a", "b"))
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestGetMisses(t *testing.T) {
	st := NewDeviceState()
	st.Set(Path("cells", 0, "voltage"), 3.3)

	_, ok := st.Get(Path("missing"))
	assert.False(t, ok)
	_, ok = st.Get(Path("cells", 5, "voltage"))
	assert.False(t, ok)
	_, ok = st.Get(Path("cells", 0, "missing"))
	assert.False(t, ok)
}

func TestCloneIsDeep(t *testing.T) {
	st := NewDeviceState()
	st.Set(Path("mppt", 0, "power"), 100.0)

	clone := st.Clone()
	st.Set(Path("mppt", 0, "power"), 999.0)

	got, ok := clone.Get(Path("mppt", 0, "power"))
	require.True(t, ok)
	assert.Equal(t, 100.0, got)
}

func TestStateSerializesToJSON(t *testing.T) {
	st := NewDeviceState()
	st.Set(Path("batteryPercentage"), 85.0)
	st.Set(Path("cells", 0, "voltage"), 3.312)
	st.Set(Path("cells", 1, "voltage"), 3.305)

	data, err := json.Marshal(st)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"batteryPercentage":85,"cells":[{"voltage":3.312},{"voltage":3.305}]}`,
		string(data))
}
