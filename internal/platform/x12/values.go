package x12

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date format qualifiers (DTP02).
const (
	FormatD8  = "D8"
	FormatRD8 = "RD8"
)

// ParseDate parses a D8 (CCYYMMDD) value, or the start of an RD8 range.
// Only the first eight characters are read; anything else is treated as D8.
func ParseDate(value, format string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if strings.EqualFold(format, FormatRD8) {
		value, _, _ = strings.Cut(value, "-")
	}
	if len(value) > 8 {
		value = value[:8]
	}
	t, err := time.Parse("20060102", value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseRange parses an RD8 value into start and end dates. A single date
// yields start == end.
func ParseRange(value string) (start, end time.Time, ok bool) {
	first, second, found := strings.Cut(strings.TrimSpace(value), "-")
	start, ok = ParseDate(first, FormatD8)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if !found {
		return start, start, true
	}
	end, ok = ParseDate(second, FormatD8)
	if !ok {
		return start, start, true
	}
	return start, end, true
}

// ParseAmount parses a monetary element. Blank or malformed input reports
// Valid=false.
func ParseAmount(value string) decimal.NullDecimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
