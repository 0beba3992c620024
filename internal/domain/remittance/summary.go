package remittance

import (
	"fmt"
	"sort"

	"github.com/edi/edi/internal/platform/x12"
)

const maxWarnings = 25

// Summarize builds the parse-quality summary for an extraction. Code sets
// are sorted so identical input always yields an identical summary.
func Summarize(ext *Extraction, d x12.Delimiters) Summary {
	groups := map[string]struct{}{}
	reasons := map[string]struct{}{}
	statuses := map[string]struct{}{}

	s := Summary{
		InvalidDates:       ext.InvalidDates,
		SegmentDelimiter:   string(d.Segment),
		ElementDelimiter:   string(d.Element),
		ComponentDelimiter: string(d.Component),
	}
	all := append([]string(nil), ext.Warnings...)

	note := func(a Adjustment) {
		if !a.GroupKnown && a.GroupCode != "" {
			groups[a.GroupCode] = struct{}{}
		}
		if !a.ReasonKnown && a.ReasonCode != "" {
			reasons[a.ReasonCode] = struct{}{}
		}
	}

	for i := range ext.Payments {
		p := &ext.Payments[i]
		if _, known := claimStatuses[p.StatusCode]; !known && p.StatusCode != "" {
			if _, seen := statuses[p.StatusCode]; !seen {
				all = append(all, fmt.Sprintf("Unknown claim status code: %s", p.StatusCode))
			}
			statuses[p.StatusCode] = struct{}{}
		}
		if len(p.ServiceLines) == 0 {
			s.PaymentsWithoutLines++
		}
		for _, a := range p.Adjustments {
			note(a)
		}
		for _, l := range p.ServiceLines {
			for _, a := range l.Adjustments {
				note(a)
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
	s.UnknownAdjustmentGroups = sortedKeys(groups)
	s.UnknownReasonCodes = sortedKeys(reasons)
	s.UnknownStatusCodes = sortedKeys(statuses)
	s.UnknownDateQualifiers = sortedKeys(ext.UnknownDateQualifiers)
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
