package matching

import (
	"strings"
	"unicode"
)

// NormalizeClaimKey uppercases value and strips everything that is not an
// ASCII letter or digit.
func NormalizeClaimKey(value string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(value)) {
		if r > unicode.MaxASCII {
			continue
		}
		if ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Candidates returns the lookup keys tried for a claim identifier, in
// order: the trimmed value, its normalized form, the value without
// leading zeros and that value normalized. Duplicates keep their first
// position. A blank value has no candidates.
func Candidates(value string) []string {
	key := strings.TrimSpace(value)
	if key == "" {
		return nil
	}

	out := []string{key}
	add := func(c string) {
		if c == "" {
			return
		}
		for _, existing := range out {
			if existing == c {
				return
			}
		}
		out = append(out, c)
	}

	add(NormalizeClaimKey(key))
	if stripped := strings.TrimLeft(key, "0"); stripped != key {
		add(stripped)
		add(NormalizeClaimKey(stripped))
	}
	return out
}
