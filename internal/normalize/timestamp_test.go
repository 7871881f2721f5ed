package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestampNil(t *testing.T) {
	ts, err := ParseTimestamp(nil)
	require.NoError(t, err)
	assert.Nil(t, ts)
}

func TestParseTimestampRoundTrip(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01T10:00:00+05:30", time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("", 19800))},
		{"2024-05-01T10:00:00.123456-04:00", time.Date(2024, 5, 1, 10, 0, 0, 123_456_000, time.FixedZone("", -14400))},
		{"2024-12-31T23:59:59.999999999+14:00", time.Date(2024, 12, 31, 23, 59, 59, 999_999_999, time.FixedZone("", 50400))},
		{"2024-05-01T10:00:00+0530", time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("", 19800))},
		{"2024-05-01T10:00:00+05", time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("", 18000))},
		{"2024-05-01T10:00:00.123+0000", time.Date(2024, 5, 1, 10, 0, 0, 123_000_000, time.UTC)},
		{"20240501T100000Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			require.NotNil(t, got)

			back, err := time.Parse(time.RFC3339Nano, got.Format(time.RFC3339Nano))
			require.NoError(t, err)
			assert.True(t, back.Equal(tt.want), "round trip %s -> %s", tt.in, back)
			_, offset := got.Zone()
			_, wantOffset := tt.want.Zone()
			assert.Equal(t, wantOffset, offset)
		})
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	ist := time.FixedZone("", 5*3600+30*60)
	gst := time.FixedZone("", 4*3600)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-01T10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01T10:00:00.250000", time.Date(2024, 5, 1, 10, 0, 0, 250_000_000, time.UTC)},
		{"2024-05-01 10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01 10:00+05:30", time.Date(2024, 5, 1, 10, 0, 0, 0, ist)},
		{"2024-05-01 04:30Z", time.Date(2024, 5, 1, 4, 30, 0, 0, time.UTC)},
		{"2024-05-01T10:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"  2024-05-01T10:00:00Z ", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01T10:00:00+0530", time.Date(2024, 5, 1, 10, 0, 0, 0, ist)},
		{"2024-05-01T10:00:00+04", time.Date(2024, 5, 1, 10, 0, 0, 0, gst)},
		{"2024-05-01T10:00:00.123+0000", time.Date(2024, 5, 1, 10, 0, 0, 123_000_000, time.UTC)},
		{"2024-05-01 10:00:00+0530", time.Date(2024, 5, 1, 10, 0, 0, 0, ist)},
		{"2024-05-01 10:00:00+05:30", time.Date(2024, 5, 1, 10, 0, 0, 0, ist)},
		{"2024-05-01 10:00:00-04", time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("", -4*3600))},
		{"2024-05-01T10:00+0530", time.Date(2024, 5, 1, 10, 0, 0, 0, ist)},
		{"2024-05-01T10:00+04", time.Date(2024, 5, 1, 10, 0, 0, 0, gst)},
		{"2024-05-01 10:00+0530", time.Date(2024, 5, 1, 10, 0, 0, 0, ist)},
		{"2024-05-01 10:00+04", time.Date(2024, 5, 1, 10, 0, 0, 0, gst)},
		{"20240501T100000Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"20240501T100000+0530", time.Date(2024, 5, 1, 10, 0, 0, 0, ist)},
		{"20240501T100000", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseTimestampMalformed(t *testing.T) {
	for _, in := range []any{"", "not a date", "2024-13-01T00:00:00", "01/05/2024", 1714557600, true} {
		_, err := ParseTimestamp(in)
		assert.ErrorIs(t, err, ErrMalformedTimestamp, "input %v", in)
	}
}
