package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeekdayFromBitMask(t *testing.T) {
	tests := []struct {
		mask     int
		expected string
	}{
		{0, ""},
		{1, "0"},        // Sunday
		{2, "1"},        // Monday
		{62, "12345"},   // weekdays
		{65, "06"},      // weekend
		{127, "0123456"}, // every day
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, WeekdayFromBitMask(tc.mask), "mask=%d", tc.mask)
	}
}

func TestWeekdaySetToBitMask(t *testing.T) {
	tests := []struct {
		days     string
		expected int
	}{
		{"", 0},
		{"0", 1},
		{"12345", 62},
		{"06", 65},
		{"0123456", 127},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, WeekdaySetToBitMask(tc.days), "days=%s", tc.days)
	}
}

func TestWeekdayRoundTrip(t *testing.T) {
	for mask := 0; mask <= 127; mask++ {
		assert.Equal(t, mask, WeekdaySetToBitMask(WeekdayFromBitMask(mask)), "mask=%d", mask)
	}
}
