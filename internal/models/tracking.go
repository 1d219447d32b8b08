package models

import "strings"

// NormalizeTracking canonicalizes an external parcel identifier: trimmed,
// upper-cased. Every write and comparison goes through this, on both manifest
// sides and at scan time, so set operations and unique indexes agree.
func NormalizeTracking(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
