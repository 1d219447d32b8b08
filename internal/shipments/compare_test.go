package shipments

import (
	"testing"

	"parceltrack-backend/internal/models"

	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	result := Compare(
		[]string{"A1", "A2", "A3"},
		[]string{"A2", "A3", "A4"},
	)

	require.Equal(t, []string{"A2", "A3"}, result.Matched)
	require.Equal(t, []string{"A1"}, result.OutOfCoverage)
	require.Equal(t, []string{"A4"}, result.Stale)
}

func TestCompare_NormalizesAndDeduplicates(t *testing.T) {
	result := Compare(
		[]string{" a1 ", "A1", "a2"},
		[]string{"A2", "A2", ""},
	)

	require.Equal(t, []string{"A2"}, result.Matched)
	require.Equal(t, []string{"A1"}, result.OutOfCoverage)
	require.Empty(t, result.Stale)
}

func TestCompare_Empty(t *testing.T) {
	result := Compare(nil, nil)
	require.NotNil(t, result.Matched)
	require.Empty(t, result.Matched)
	require.Empty(t, result.OutOfCoverage)
	require.Empty(t, result.Stale)

	result = Compare([]string{"X"}, nil)
	require.Equal(t, []string{"X"}, result.OutOfCoverage)
	require.Empty(t, result.Matched)
}

func TestCompare_Partition(t *testing.T) {
	// Every pre-alert identifier ends up in exactly one of matched or
	// out-of-coverage; every pre-route identifier in matched or stale.
	preAlert := []string{"P1", "P2", "P3", "P4"}
	preRoute := []string{"P3", "P4", "P5"}
	result := Compare(preAlert, preRoute)

	require.Len(t, result.Matched, 2)
	require.Equal(t, len(preAlert), len(result.Matched)+len(result.OutOfCoverage))
	require.Equal(t, len(preRoute), len(result.Matched)+len(result.Stale))
}

func TestCategorize(t *testing.T) {
	require.Equal(t, models.VerifyMatched, Categorize(true, true))
	require.Equal(t, models.VerifyExcess, Categorize(false, false))
	require.Equal(t, models.VerifyOutOfCoverage, Categorize(true, false))
	require.Equal(t, models.VerifyStale, Categorize(false, true))
}
