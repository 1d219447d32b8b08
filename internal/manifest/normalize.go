package manifest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Manifest rows arrive from spreadsheet exports with whatever encodings the
// vendor's tooling produced: dates as excel serial numbers or half a dozen
// string layouts, decimals with comma separators. Everything here is pure —
// no I/O, no state — so the ingestion boundary can be tested in isolation.

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006",
	"02.01.2006",
	"02-01-2006",
}

// ParseFlexibleDate converts a loosely-typed cell value into a UTC time.
// Numbers are excel serials (days since 1899-12-30, which is unix epoch
// minus 25569 days).
func ParseFlexibleDate(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("missing date")
	case time.Time:
		return v.UTC(), nil
	case float64:
		return excelSerialToTime(v), nil
	case int:
		return excelSerialToTime(float64(v)), nil
	case int64:
		return excelSerialToTime(float64(v)), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, fmt.Errorf("missing date")
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		// Some exports stringify the serial.
		if serial, err := strconv.ParseFloat(s, 64); err == nil {
			return excelSerialToTime(serial), nil
		}
		return time.Time{}, fmt.Errorf("unparseable date %q", s)
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T", raw)
	}
}

func excelSerialToTime(serial float64) time.Time {
	seconds := (serial - 25569) * 86400
	return time.Unix(int64(math.Round(seconds)), 0).UTC()
}

// ParseFlexibleNumber converts a loosely-typed cell value into a float64.
// String forms may use comma decimals ("1.234,56") or thousands commas
// ("1,234.56"); whichever separator appears last is the decimal point.
func ParseFlexibleNumber(raw any) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, fmt.Errorf("missing number")
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, fmt.Errorf("missing number")
		}
		s = strings.ReplaceAll(s, " ", "")
		lastComma := strings.LastIndex(s, ",")
		lastDot := strings.LastIndex(s, ".")
		switch {
		case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
			// 1.234,56 — dots are thousands separators
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		case lastComma >= 0 && lastDot >= 0:
			// 1,234.56 — commas are thousands separators
			s = strings.ReplaceAll(s, ",", "")
		case lastComma >= 0:
			// 1234,56
			s = strings.Replace(s, ",", ".", 1)
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("unparseable number %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported number type %T", raw)
	}
}
