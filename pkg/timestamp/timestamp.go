// Package timestamp provides the wire timestamp format shared by Value's
// processing-hop timestamps and the heartbeat codec: UTC, formatted as
// yyyy-MM-dd'T'HH:mm:ss.S, with a zero time.Time meaning "absent" so optional
// fields round-trip as a zero time.Time rather than a sentinel int.
package timestamp

import (
	"strconv"
	"strings"
	"time"
)

// WireLayout is the ISO-8601-ish layout used on the wire. Go's reference
// time layout only supports fixed fractional-second widths, so Format and
// Parse below special-case the single-digit fraction §6 requires.
const WireLayout = "2006-01-02T15:04:05"

// Now returns the current UTC instant truncated to millisecond precision.
// The wire format keeps only tenths of a second.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Format renders t in the wire layout. The zero time formats to "".
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	u := t.UTC()
	tenths := u.Nanosecond() / 100000000
	return u.Format(WireLayout) + "." + strconv.Itoa(tenths)
}

// Parse reads the wire layout produced by Format. An empty string parses to
// the zero time with no error, matching "absent".
func Parse(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	main, frac, hasFrac := strings.Cut(s, ".")
	t, err := time.Parse(WireLayout, main)
	if err != nil {
		return time.Time{}, err
	}
	if hasFrac {
		tenths, err := strconv.Atoi(frac)
		if err != nil {
			return time.Time{}, err
		}
		t = t.Add(time.Duration(tenths) * 100 * time.Millisecond)
	}
	return t.UTC(), nil
}

// Age reports how long ago t occurred, relative to now. A zero t (absent)
// is reported as an arbitrarily large age so validity rules downgrade it.
func Age(t, now time.Time) time.Duration {
	if t.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return now.Sub(t)
}
