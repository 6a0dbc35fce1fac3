package transform

import "strings"

// WeekdayFromBitMask renders a weekday bitmask as an ascending digit-set
// string. Bit i (0 = Sunday) set means digit i is present; an empty mask
// yields the empty string.
func WeekdayFromBitMask(mask int) string {
	var sb strings.Builder
	for i := 0; i < 7; i++ {
		if mask&(1<<i) != 0 {
			sb.WriteByte(byte('0' + i))
		}
	}
	return sb.String()
}

// WeekdaySetToBitMask is the inverse of WeekdayFromBitMask. Digits outside
// 0..6 and duplicates are ignored.
func WeekdaySetToBitMask(days string) int {
	mask := 0
	for _, r := range days {
		if r >= '0' && r <= '6' {
			mask |= 1 << (r - '0')
		}
	}
	return mask
}
