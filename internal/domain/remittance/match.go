package remittance

import (
	"context"
	"fmt"

	"github.com/edi/edi/internal/domain/matching"
)

// MatchAll runs each payment through m and stores the result on it.
func MatchAll(ctx context.Context, m *matching.Matcher, payments []Payment) error {
	for i := range payments {
		p := &payments[i]
		res, err := m.Match(ctx, p.PatientControlNumber, p.PayerClaimControlNumber)
		if err != nil {
			return fmt.Errorf("match payment %s: %w", p.PatientControlNumber, err)
		}
		p.Match = &res
	}
	return nil
}

// MatchCounts tallies payments per strategy. Every strategy is present.
func MatchCounts(payments []Payment) map[matching.Strategy]int {
	counts := make(map[matching.Strategy]int, len(matching.Strategies))
	for _, s := range matching.Strategies {
		counts[s] = 0
	}
	for _, p := range payments {
		if p.Match != nil {
			counts[p.Match.Strategy]++
		}
	}
	return counts
}
