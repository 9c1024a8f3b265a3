package event

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatTime renders t as seconds since the Unix epoch with exactly three
// decimals, truncated to the millisecond.
func FormatTime(t time.Time) string {
	ms := t.UnixMilli()
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	return fmt.Sprintf("%s%d.%03d", sign, ms/1000, ms%1000)
}

// FromEpochSeconds converts fractional epoch seconds to a time.
func FromEpochSeconds(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(math.Round(frac*1e3))*int64(time.Millisecond))
}

// FromEpochMillis converts epoch milliseconds to a time.
func FromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// ParseTime accepts epoch seconds (integer or fractional) or one of the
// RFC 3339 style layouts. Layouts without a zone are read as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("event: empty time")
	}
	if sec, err := strconv.ParseFloat(s, 64); err == nil {
		return FromEpochSeconds(sec), nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("event: unrecognized time %q", s)
}
