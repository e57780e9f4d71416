package migration

import (
	"fmt"
	"time"
)

// RowTimeLayout is the timestamp layout used in output rows.
const RowTimeLayout = "2006-01-02 15:04:05"

// DefaultZoneOffset is the output zone used when none is configured (UTC+9, KST).
const DefaultZoneOffset = 9 * time.Hour

// FixedZone returns a fixed-offset location; +9h is named KST, anything else UTC±H[:MM].
func FixedZone(offset time.Duration) *time.Location {
	if offset == DefaultZoneOffset {
		return time.FixedZone("KST", int(offset/time.Second))
	}
	sign := '+'
	abs := offset
	if offset < 0 {
		sign = '-'
		abs = -offset
	}
	h, m := int(abs/time.Hour), int((abs%time.Hour)/time.Minute)
	name := fmt.Sprintf("UTC%c%d", sign, h)
	if m != 0 {
		name = fmt.Sprintf("UTC%c%d:%02d", sign, h, m)
	}
	return time.FixedZone(name, int(offset/time.Second))
}

// formatRowTime renders t in loc. Zero times render empty.
func formatRowTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(RowTimeLayout)
}
