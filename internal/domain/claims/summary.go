package claims

import (
	"fmt"
	"sort"

	"github.com/edi/edi/internal/platform/x12"
)

// maxWarnings caps Summary.Warnings.
const maxWarnings = 25

// Summarize builds the parse-quality summary for decoded claims.
func Summarize(claims []Claim, warnings []string, d x12.Delimiters) Summary {
	dateQuals := map[string]struct{}{}
	refQuals := map[string]struct{}{}
	dxQuals := map[string]struct{}{}
	roles := map[string]struct{}{}
	filing := map[string]struct{}{}

	s := Summary{
		SegmentDelimiter:   string(d.Segment),
		ElementDelimiter:   string(d.Element),
		ComponentDelimiter: string(d.Component),
	}
	all := append([]string(nil), warnings...)

	for i := range claims {
		c := &claims[i]
		if c.FilingIndicatorCode != "" && c.FilingIndicatorDesc == "" {
			filing[c.FilingIndicatorCode] = struct{}{}
			all = append(all, fmt.Sprintf("Unknown filing indicator: %s", c.FilingIndicatorCode))
		}
		if !c.HasServiceLines() {
			s.ClaimsWithoutLines++
			all = append(all, fmt.Sprintf("claim %q has no service lines", c.ClaimID))
		}

		for _, dates := range [][]ClaimDate{c.HeaderDates, c.LineDates} {
			for _, dt := range dates {
				if dt.Qualifier != "" && dt.QualifierDesc == "" {
					dateQuals[dt.Qualifier] = struct{}{}
				}
				if dt.Value != "" && dt.Parsed == nil {
					s.InvalidDates++
				}
			}
		}
		for _, ref := range c.References {
			if ref.Qualifier != "" && ref.QualifierDesc == "" {
				refQuals[ref.Qualifier] = struct{}{}
			}
		}
		for _, dx := range c.Diagnoses {
			if dx.CodeQualifier != "" && !dx.QualifierKnown {
				dxQuals[dx.CodeQualifier] = struct{}{}
			}
		}
		for _, p := range c.Providers {
			if _, known := ProviderRole(p.EntityIDCode); !known && p.EntityIDCode != "" {
				roles[p.EntityIDCode] = struct{}{}
			}
		}
	}

	if len(all) > maxWarnings {
		all = all[:maxWarnings]
	}
	s.Warnings = all
	if s.Warnings == nil {
		s.Warnings = []string{}
	}
	s.UnknownDateQualifiers = sortedKeys(dateQuals)
	s.UnknownRefQualifiers = sortedKeys(refQuals)
	s.UnknownDiagnosisQualifiers = sortedKeys(dxQuals)
	s.UnknownProviderRoles = sortedKeys(roles)
	s.UnknownFilingIndicators = sortedKeys(filing)
	return s
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
