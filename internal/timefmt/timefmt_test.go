package timefmt

import (
	"fmt"
	"testing"
	"time"

	"tellme/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTo24Hour(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"12:00 AM", "00:00:00"},
		{"12:00 PM", "12:00:00"},
		{"1:30 PM", "13:30:00"},
		{"11:45 AM", "11:45:00"},
		{"9:05 am", "09:05:00"},
		{"09:00 AM", "09:00:00"},
		{"  6:15 PM ", "18:15:00"},
		{"7:00PM", "19:00:00"},
		{"12:59 AM", "00:59:00"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := To24Hour(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTo24Hour_Malformed(t *testing.T) {
	for _, label := range []string{"", "noon", "13:00 PM", "0:30 AM", "9:60 AM", "9 AM", "9:00", "9:00 XM", "10:00:00 AM"} {
		t.Run(label, func(t *testing.T) {
			_, err := To24Hour(label)
			assert.ErrorIs(t, err, core.ErrMalformedTimeLabel)

			_, err = To24HourLayout(label)
			assert.ErrorIs(t, err, core.ErrMalformedTimeLabel)
		})
	}
}

func TestTo24Hour_AgreesWithLayoutParse(t *testing.T) {
	for _, meridiem := range []string{"AM", "PM", "am", "pm"} {
		for hour := 1; hour <= 12; hour++ {
			for minute := 0; minute < 60; minute++ {
				for _, label := range []string{
					fmt.Sprintf("%d:%02d %s", hour, minute, meridiem),
					fmt.Sprintf("%02d:%02d %s", hour, minute, meridiem),
				} {
					manual, err := To24Hour(label)
					require.NoError(t, err, label)
					layout, err := To24HourLayout(label)
					require.NoError(t, err, label)
					require.Equal(t, manual, layout, label)
				}
			}
		}
	}
}

func TestTo24Hour_AgreesOnSeparators(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"1:30 PM", "13:30:00"},
		{"1:30PM", "13:30:00"},
		{"1:30\tPM", ""},
		{"1:30  PM", "13:30:00"},
		{"1:30 \tPM", ""},
		{"1:30\u00a0PM", ""},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			manual, manualErr := To24Hour(tt.label)
			layout, layoutErr := To24HourLayout(tt.label)
			assert.Equal(t, manual, layout)
			assert.Equal(t, tt.want, manual)
			if tt.want == "" {
				assert.ErrorIs(t, manualErr, core.ErrMalformedTimeLabel)
				assert.ErrorIs(t, layoutErr, core.ErrMalformedTimeLabel)
			}
		})
	}
}

func TestSplitRangeLabel(t *testing.T) {
	r, err := SplitRangeLabel("9:00 AM - 10:00 AM")
	require.NoError(t, err)
	assert.Equal(t, Range{Start: "9:00 AM", End: "10:00 AM"}, r)

	for _, bad := range []string{"9:00 AM", "9:00 AM-10:00 AM", " - 10:00 AM", "9:00 AM - "} {
		_, err := SplitRangeLabel(bad)
		assert.ErrorIs(t, err, core.ErrMalformedTimeLabel, bad)
	}
}

func TestNormalizeWire(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"09:00:00", "09:00:00"},
		{"9:00", "09:00:00"},
		{"14:30", "14:30:00"},
		{"2:30 PM", "14:30:00"},
		{"23:59:59", "23:59:59"},
	}
	for _, tt := range tests {
		got, err := NormalizeWire(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"24:00", "12:61", "", "later"} {
		_, err := NormalizeWire(bad)
		assert.ErrorIs(t, err, core.ErrMalformedTimeLabel, bad)
	}
}

func TestTo12Hour(t *testing.T) {
	got, err := To12Hour("14:00:00")
	require.NoError(t, err)
	assert.Equal(t, "2:00 PM", got)

	got, err = To12Hour("00:15")
	require.NoError(t, err)
	assert.Equal(t, "12:15 AM", got)

	_, err = To12Hour("nope")
	assert.ErrorIs(t, err, core.ErrMalformedTimeLabel)
}

func TestParseDays(t *testing.T) {
	days, err := ParseDays([]string{"Mon", "wed", " SAT ", "Mon"})
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Saturday}, days)

	_, err = ParseDays([]string{"Mon", "Funday"})
	assert.Error(t, err)

	for _, name := range DayNames {
		_, err := ParseDay(name)
		assert.NoError(t, err, name)
	}
}

func TestWindows(t *testing.T) {
	windows, err := Windows("09:00", "11:00", 30)
	require.NoError(t, err)
	assert.Equal(t, []Range{
		{Start: "09:00:00", End: "09:30:00"},
		{Start: "09:30:00", End: "10:00:00"},
		{Start: "10:00:00", End: "10:30:00"},
		{Start: "10:30:00", End: "11:00:00"},
	}, windows)

	windows, err = Windows("9:00 AM", "10:50", 25)
	require.NoError(t, err)
	assert.Len(t, windows, 4, "the short tail window is dropped")
	assert.Equal(t, "10:40:00", windows[3].End)

	_, err = Windows("18:00", "09:00", 30)
	assert.Error(t, err)
	_, err = Windows("09:00", "18:00", 0)
	assert.Error(t, err)
	_, err = Windows("09:00", "09:20", 30)
	assert.Error(t, err, "interval longer than the opening hours")
	_, err = Windows("nine", "18:00", 30)
	assert.ErrorIs(t, err, core.ErrMalformedTimeLabel)
}
