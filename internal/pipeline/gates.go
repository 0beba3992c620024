package pipeline

import "github.com/edi/edi/internal/domain/matching"

const (
	GatePass = "pass"
	GateFail = "fail"
)

// Gates are percentage thresholds a batch must stay at or under.
type Gates struct {
	MaxInvalidDateRate float64
	MaxUnmatchedRate   float64
	MaxParseFailRate   float64
}

func DefaultGates() Gates {
	return Gates{MaxInvalidDateRate: 2.0, MaxUnmatchedRate: 10.0, MaxParseFailRate: 5.0}
}

type GateCheck struct {
	Name      string  `json:"name"`
	ActualPct float64 `json:"actual_pct"`
	Threshold float64 `json:"threshold_pct"`
	Passed    bool    `json:"passed"`
	Count     int     `json:"count"`
}

type GateReport struct {
	Status string      `json:"status"`
	Checks []GateCheck `json:"checks"`
}

func (r GateReport) Passed() bool { return r.Status == GatePass }

// Evaluate checks the parse failure rate over all files and the invalid
// date rate over all records. The unmatched rate over matched payments is
// only checked when the batch ran matching.
func (g Gates) Evaluate(d Digest) GateReport {
	files := d.Claims.FilesFound + d.Remittances.FilesFound
	failed := d.Claims.FilesFailed + d.Remittances.FilesFailed
	records := d.Claims.Records + d.Remittances.Records
	invalid := d.Claims.InvalidDates + d.Remittances.InvalidDates

	checks := []GateCheck{
		check("parse_file_fail_rate", failed, files, g.MaxParseFailRate),
		check("invalid_date_rate", invalid, records, g.MaxInvalidDateRate),
	}
	if d.Matched {
		total := 0
		for _, n := range d.MatchCounts {
			total += n
		}
		unmatched := d.MatchCounts[matching.StrategyUnmatched]
		checks = append(checks, check("unmatched_835_rate", unmatched, total, g.MaxUnmatchedRate))
	}

	report := GateReport{Status: GatePass, Checks: checks}
	for _, c := range checks {
		if !c.Passed {
			report.Status = GateFail
		}
	}
	return report
}

func check(name string, count, total int, threshold float64) GateCheck {
	actual := pct(count, total)
	return GateCheck{Name: name, ActualPct: actual, Threshold: threshold, Passed: actual <= threshold, Count: count}
}
