package claims

import (
	"reflect"
	"testing"
)

// =========== Summary Tests ===========

func TestSummary_QualityFindings(t *testing.T) {
	s := mustParse(t, sample837).Summary

	checks := []struct {
		name string
		got  []string
		want []string
	}{
		{"date qualifiers", s.UnknownDateQualifiers, []string{"999"}},
		{"ref qualifiers", s.UnknownRefQualifiers, []string{"ZQ"}},
		{"diagnosis qualifiers", s.UnknownDiagnosisQualifiers, []string{"ZZZ"}},
		{"filing indicators", s.UnknownFilingIndicators, []string{"ZX"}},
		{"provider roles", s.UnknownProviderRoles, []string{}},
		{"warnings", s.Warnings, []string{"Unknown filing indicator: ZX"}},
	}
	for _, c := range checks {
		if !reflect.DeepEqual(c.got, c.want) {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
	if s.InvalidDates != 1 {
		t.Errorf("expected 1 invalid date, got %d", s.InvalidDates)
	}
	if s.ClaimsWithoutLines != 0 {
		t.Errorf("expected 0 claims without lines, got %d", s.ClaimsWithoutLines)
	}
}

func TestSummary_Deterministic(t *testing.T) {
	a := mustParse(t, sample837)
	b := mustParse(t, sample837)
	if !reflect.DeepEqual(a.Summary, b.Summary) {
		t.Errorf("expected identical summaries:\n%+v\n%+v", a.Summary, b.Summary)
	}
	if a.FileHash != b.FileHash {
		t.Error("expected identical file hashes")
	}
}

func TestSummary_WarningsCapped(t *testing.T) {
	var body []string
	for i := 0; i < 40; i++ {
		body = append(body, "HL*1**22*0~CLM*C*1***11:B:1~SBR*P********Q9~")
	}
	s := mustParse(t, sampleDocument(body...)).Summary
	if len(s.Warnings) != maxWarnings {
		t.Errorf("expected %d warnings, got %d", maxWarnings, len(s.Warnings))
	}
	if s.ClaimsWithoutLines != 40 {
		t.Errorf("expected 40 claims without lines, got %d", s.ClaimsWithoutLines)
	}
}
