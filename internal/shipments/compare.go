package shipments

import (
	"sort"

	"parceltrack-backend/internal/models"
)

// ComparisonResult is the three-way reconciliation of the two manifests:
// matched is the intersection, outOfCoverage the identifiers declared but
// never routed, stale the identifiers routed but never declared.
type ComparisonResult struct {
	Matched       []string `json:"matched"`
	OutOfCoverage []string `json:"out_of_coverage"`
	Stale         []string `json:"stale"`
}

// Compare computes the three-way set comparison between the pre-alert and
// pre-route identifier sets. Pure: identifiers are normalized (trim, upper)
// and deduplicated on both sides, results come back sorted so the output is
// stable under input reordering.
func Compare(preAlert, preRoute []string) ComparisonResult {
	a := normalizeSet(preAlert)
	b := normalizeSet(preRoute)

	result := ComparisonResult{
		Matched:       []string{},
		OutOfCoverage: []string{},
		Stale:         []string{},
	}
	for id := range a {
		if _, ok := b[id]; ok {
			result.Matched = append(result.Matched, id)
		} else {
			result.OutOfCoverage = append(result.OutOfCoverage, id)
		}
	}
	for id := range b {
		if _, ok := a[id]; !ok {
			result.Stale = append(result.Stale, id)
		}
	}

	sort.Strings(result.Matched)
	sort.Strings(result.OutOfCoverage)
	sort.Strings(result.Stale)
	return result
}

func normalizeSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if n := models.NormalizeTracking(id); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Categorize classifies one identifier against the two sets, the way a
// verification scan does: present in both, in neither (excess), pre-alert
// only (out of coverage) or pre-route only (stale).
func Categorize(inPreAlert, inPreRoute bool) models.VerificationStatus {
	switch {
	case inPreAlert && inPreRoute:
		return models.VerifyMatched
	case !inPreAlert && !inPreRoute:
		return models.VerifyExcess
	case inPreAlert:
		return models.VerifyOutOfCoverage
	default:
		return models.VerifyStale
	}
}
