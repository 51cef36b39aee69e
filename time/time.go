// Package time formats durations for console output.
package time

import (
	"strings"
	"time"
)

// ShortDur is d.String() without trailing zero units: "1m" instead of
// "1m0s", "2h" instead of "2h0m0s".
func ShortDur(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = s[:len(s)-2]
	}
	if strings.HasSuffix(s, "h0m") {
		s = s[:len(s)-2]
	}
	return s
}

// Round trims d to a precision that suits its magnitude: milliseconds
// below a minute, seconds above.
func Round(d time.Duration) time.Duration {
	if d < time.Minute && d > -time.Minute {
		return d.Round(time.Millisecond)
	}
	return d.Round(time.Second)
}

// Since is ShortDur(Round(time.Since(start))).
func Since(start time.Time) string {
	return ShortDur(Round(time.Since(start)))
}
