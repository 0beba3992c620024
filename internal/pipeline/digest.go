package pipeline

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/edi/edi/internal/domain/matching"
	"github.com/edi/edi/internal/domain/remittance"
)

// KindStats aggregates one transaction set across a batch.
type KindStats struct {
	FilesFound    int `json:"files_found"`
	FilesFailed   int `json:"files_failed"`
	FilesSkipped  int `json:"files_skipped"`
	Records       int `json:"records"`
	RecordsNoLine int `json:"records_without_lines"`
	InvalidDates  int `json:"invalid_dates"`
	Warnings      int `json:"warnings"`

	// Unknown code sets keyed by summary field, each sorted.
	UnknownCodes map[string][]string `json:"unknown_codes"`

	TotalCharge   decimal.Decimal  `json:"total_charge_amount"`
	TotalPaid     *decimal.Decimal `json:"total_paid_amount,omitempty"`
	TotalAdjusted *decimal.Decimal `json:"total_adjustment_amount,omitempty"`

	Failures []FileFailure `json:"failures,omitempty"`

	unknown map[string]map[string]struct{}
}

type FileFailure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Crosswalk compares claim identifiers across the two transaction sets.
type Crosswalk struct {
	UniqueClaimIDs     int `json:"unique_837_claim_ids"`
	UniqueCLP01        int `json:"unique_835_clp01_ids"`
	UniqueCLP07        int `json:"unique_835_clp07_ids"`
	DirectCLP01Matches int `json:"direct_clp01_matches"`
}

// Digest is the batch-level report.
type Digest struct {
	GeneratedAt  time.Time                 `json:"generated_at"`
	Claims       KindStats                 `json:"837"`
	Remittances  KindStats                 `json:"835"`
	Crosswalk    Crosswalk                 `json:"crosswalk"`
	Matched      bool                      `json:"matching_enabled"`
	MatchCounts  map[matching.Strategy]int `json:"match_summary"`
	ReasonCounts map[string]int            `json:"match_reasons"`
	SideEffects  map[string]int            `json:"side_effect_failures"`
	Gates        *GateReport               `json:"quality_gates,omitempty"`
}

func newKindStats() KindStats {
	return KindStats{
		UnknownCodes: map[string][]string{},
		TotalCharge:  decimal.Zero,
		unknown:      map[string]map[string]struct{}{},
	}
}

func (k *KindStats) addUnknown(field string, codes []string) {
	set, ok := k.unknown[field]
	if !ok {
		set = make(map[string]struct{})
		k.unknown[field] = set
	}
	for _, c := range codes {
		set[c] = struct{}{}
	}
}

func (k *KindStats) finish() {
	for field, set := range k.unknown {
		codes := make([]string, 0, len(set))
		for c := range set {
			codes = append(codes, c)
		}
		sort.Strings(codes)
		k.UnknownCodes[field] = codes
	}
}

// Summarize builds the digest from per-file outcomes. gates may be nil.
func Summarize(outcomes []*Outcome, gates *Gates) Digest {
	d := Digest{
		GeneratedAt:  time.Now().UTC(),
		Claims:       newKindStats(),
		Remittances:  newKindStats(),
		MatchCounts:  make(map[matching.Strategy]int, len(matching.Strategies)),
		ReasonCounts: map[string]int{},
		SideEffects:  map[string]int{},
	}
	for _, s := range matching.Strategies {
		d.MatchCounts[s] = 0
	}
	paid, adjusted := decimal.Zero, decimal.Zero

	claimIDs := map[string]struct{}{}
	clp01 := map[string]struct{}{}
	clp07 := map[string]struct{}{}

	for _, o := range outcomes {
		for _, se := range o.SideEffects {
			d.SideEffects[se.Stage]++
		}

		stats := &d.Claims
		if o.Kind == KindRemittance || (o.Kind == "" && isRemittanceName(o.FileName)) {
			stats = &d.Remittances
		}
		stats.FilesFound++
		switch o.Status {
		case StatusFailed:
			stats.FilesFailed++
			stats.Failures = append(stats.Failures, FileFailure{File: o.Path, Error: o.Error})
			continue
		case StatusSkipped:
			stats.FilesSkipped++
		}

		if f := o.Claims; f != nil {
			stats.Records += len(f.Claims)
			stats.RecordsNoLine += f.Summary.ClaimsWithoutLines
			stats.InvalidDates += f.Summary.InvalidDates
			stats.Warnings += len(f.Summary.Warnings)
			stats.addUnknown("unknown_dtp_qualifiers", f.Summary.UnknownDateQualifiers)
			stats.addUnknown("unknown_ref_qualifiers", f.Summary.UnknownRefQualifiers)
			stats.addUnknown("unknown_diagnosis_qualifiers", f.Summary.UnknownDiagnosisQualifiers)
			stats.addUnknown("unknown_provider_roles", f.Summary.UnknownProviderRoles)
			stats.addUnknown("unknown_filing_indicators", f.Summary.UnknownFilingIndicators)
			for _, c := range f.Claims {
				if c.TotalCharge.Valid {
					stats.TotalCharge = stats.TotalCharge.Add(c.TotalCharge.Decimal)
				}
				if id := strings.TrimSpace(c.ClaimID); id != "" {
					claimIDs[id] = struct{}{}
				}
			}
		}

		if f := o.Remittance; f != nil {
			stats.Records += len(f.Payments)
			stats.RecordsNoLine += f.Summary.PaymentsWithoutLines
			stats.InvalidDates += f.Summary.InvalidDates
			stats.Warnings += len(f.Summary.Warnings)
			stats.addUnknown("unknown_adjustment_groups", f.Summary.UnknownAdjustmentGroups)
			stats.addUnknown("unknown_carc_codes", f.Summary.UnknownReasonCodes)
			stats.addUnknown("unknown_clp_status_codes", f.Summary.UnknownStatusCodes)
			stats.addUnknown("unknown_dtp_qualifiers", f.Summary.UnknownDateQualifiers)
			for i := range f.Payments {
				p := &f.Payments[i]
				if p.TotalCharge.Valid {
					stats.TotalCharge = stats.TotalCharge.Add(p.TotalCharge.Decimal)
				}
				if p.PaidAmount.Valid {
					paid = paid.Add(p.PaidAmount.Decimal)
				}
				adjusted = adjusted.Add(p.AdjustmentTotal())
				if v := strings.TrimSpace(p.PatientControlNumber); v != "" {
					clp01[v] = struct{}{}
				}
				if v := strings.TrimSpace(p.PayerClaimControlNumber); v != "" {
					clp07[v] = struct{}{}
				}
				if p.Match != nil {
					d.Matched = true
					d.ReasonCounts[p.Match.ReasonCode]++
				}
			}
			for s, n := range remittance.MatchCounts(f.Payments) {
				d.MatchCounts[s] += n
			}
		}
	}

	d.Remittances.TotalPaid = &paid
	d.Remittances.TotalAdjusted = &adjusted
	d.Claims.finish()
	d.Remittances.finish()

	d.Crosswalk = Crosswalk{
		UniqueClaimIDs: len(claimIDs),
		UniqueCLP01:    len(clp01),
		UniqueCLP07:    len(clp07),
	}
	for id := range clp01 {
		if _, ok := claimIDs[id]; ok {
			d.Crosswalk.DirectCLP01Matches++
		}
	}

	if gates != nil {
		report := gates.Evaluate(d)
		d.Gates = &report
	}
	return d
}

// isRemittanceName files an undecodable input under 835 when its name
// says so.
func isRemittanceName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".835")
}

// pct returns numerator/denominator as a percentage rounded to 2 places,
// or 0 when there is nothing to divide by.
func pct(numerator, denominator int) float64 {
	if denominator <= 0 {
		return 0
	}
	return math.Round(float64(numerator)/float64(denominator)*100*100) / 100
}
