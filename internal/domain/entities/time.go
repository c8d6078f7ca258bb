package entities

import (
	"fmt"
	"time"
)

// TimeLayout is the ISO-8601 form used in dumps and on the sync wire.
const TimeLayout = "2006-01-02T15:04:05.000000"

var parseLayouts = []string{
	TimeLayout,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// FormatTime renders t in TimeLayout. The zero time renders as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a timestamp written by FormatTime or any RFC 3339 writer.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// TimeField reads a timestamp from a raw field value. Missing or unparsable
// values return the zero time.
func TimeField(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val.UTC()
	case string:
		t, err := ParseTime(val)
		if err != nil {
			return time.Time{}
		}
		return t
	}
	return time.Time{}
}

// Latest returns the later of a and b.
func Latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
