package manifest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseFlexibleDate_ExcelSerial(t *testing.T) {
	// 25569 is 1970-01-01, 45000 is 2023-03-15.
	got, err := ParseFlexibleDate(float64(25569))
	require.NoError(t, err)
	require.Equal(t, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseFlexibleDate(45000)
	require.NoError(t, err)
	require.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), got)

	// Fractional serials carry the time of day.
	got, err = ParseFlexibleDate(45000.5)
	require.NoError(t, err)
	require.Equal(t, time.Date(2023, 3, 15, 12, 0, 0, 0, time.UTC), got)

	// Some exports stringify the serial.
	got, err = ParseFlexibleDate("45000")
	require.NoError(t, err)
	require.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestParseFlexibleDate_Strings(t *testing.T) {
	want := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-06-03", "03/06/2024", "03.06.2024", "03-06-2024"} {
		got, err := ParseFlexibleDate(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	got, err := ParseFlexibleDate("2024-06-03 14:30:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC), got)
}

func TestParseFlexibleDate_Errors(t *testing.T) {
	for _, in := range []any{nil, "", "   ", "not a date", true} {
		_, err := ParseFlexibleDate(in)
		require.Error(t, err, in)
	}
}

func TestParseFlexibleNumber(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{12.5, 12.5},
		{12, 12},
		{"12.5", 12.5},
		{"12,5", 12.5},       // comma decimal
		{"1.234,56", 1234.56}, // dots as thousands
		{"1,234.56", 1234.56}, // commas as thousands
		{" 7 ", 7},
	}
	for _, tc := range cases {
		got, err := ParseFlexibleNumber(tc.in)
		require.NoError(t, err, tc.in)
		require.InDelta(t, tc.want, got, 1e-9, tc.in)
	}
}

func TestParseFlexibleNumber_Errors(t *testing.T) {
	for _, in := range []any{nil, "", "abc", true} {
		_, err := ParseFlexibleNumber(in)
		require.Error(t, err, in)
	}
}
