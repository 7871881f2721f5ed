package normalize

import (
	"strings"
	"time"
)

// timestampLayouts are tried in order. Layouts without a zone parse as UTC.
// Fractional seconds are accepted after the seconds field by time.Parse even
// when a layout omits them. Offsets may be written "+05:30", "+0530" or "+05".
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04Z07",
	"2006-01-02 15:04Z07:00", // AeroDataBox: "2024-01-01 10:00+05:30", "2024-01-01 04:30Z".
	"2006-01-02 15:04Z0700",
	"2006-01-02 15:04Z07",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"20060102T150405Z0700",
	"20060102T150405",
	"2006-01-02",
}

// ParseTimestamp coerces an ISO-8601 date-time string to a time.Time.
// A nil input yields a nil result. Offsets are kept as parsed.
func ParseTimestamp(v any) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, &MalformedTimestampError{Value: v}
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, &MalformedTimestampError{Value: v}
}

// timeValue turns an optional timestamp into a column value, keeping NULL
// untyped so every driver writes it as NULL.
func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
