package x12

import "strings"

// legacyComponentSeparators are tried, in order, when a value does not
// contain the declared component separator.
var legacyComponentSeparators = []string{":", ">"}

// SplitComposite splits a composite element. The declared separator wins;
// otherwise ':' then '>' are tried. A value with no separator comes back
// as a single component, and an empty value as no components.
func SplitComposite(value string, sep byte) []string {
	if value == "" {
		return nil
	}
	if declared := string(sep); sep != 0 && strings.Contains(value, declared) {
		return strings.Split(value, declared)
	}
	for _, fallback := range legacyComponentSeparators {
		if strings.Contains(value, fallback) {
			return strings.Split(value, fallback)
		}
	}
	return []string{value}
}

// Component returns the i-th component of parts, or "".
func Component(parts []string, i int) string {
	if i < 0 || i >= len(parts) {
		return ""
	}
	return parts[i]
}
