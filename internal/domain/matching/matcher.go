package matching

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Strategy names the rule that produced a match.
type Strategy string

const (
	StrategyClaimID         Strategy = "clp01"
	StrategyOriginalClaimID Strategy = "clp07_original_claim_id"
	StrategyReference       Strategy = "clp07_ref"
	StrategyUnmatched       Strategy = "unmatched"
)

// Strategies lists every strategy in evaluation order, unmatched last.
var Strategies = []Strategy{
	StrategyClaimID,
	StrategyOriginalClaimID,
	StrategyReference,
	StrategyUnmatched,
}

// Reason codes.
const (
	ReasonMatchedClaimID         = "MATCHED_CLAIM_ID"
	ReasonMatchedOriginalClaimID = "MATCHED_ORIGINAL_CLAIM_ID"
	ReasonMatchedRefAny          = "MATCHED_REF_ANY"

	// ReasonUnusableCLP01 means a patient-control value was present but
	// produced no lookup keys.
	ReasonUnusableCLP01 = "UNUSABLE_CLP01"
	// ReasonUnusableCLP07 is the same for the payer claim-control value.
	ReasonUnusableCLP07 = "UNUSABLE_CLP07"
	// ReasonNoMatchBoth means both values were usable and nothing matched.
	ReasonNoMatchBoth  = "NO_MATCH_CLP01_CLP07"
	ReasonNoMatchCLP01 = "NO_MATCH_CLP01"
	ReasonNoMatchCLP07 = "NO_MATCH_CLP07"
	ReasonNoKeys       = "NO_KEYS"
)

// ReasonMatchedRef is the reason code for a reference match on qualifier.
func ReasonMatchedRef(qualifier string) string {
	return "MATCHED_REF_" + qualifier
}

// Result is the outcome of matching one payment. An unmatched result has
// an invalid ClaimHeaderID and a reason code saying why.
type Result struct {
	ClaimHeaderID uuid.NullUUID `json:"claim_header_id"`
	Strategy      Strategy      `json:"match_strategy"`
	ReasonCode    string        `json:"match_reason_code"`
}

// Matched reports whether a claim header was found.
func (r Result) Matched() bool { return r.ClaimHeaderID.Valid }

// ClaimStore gives read access to stored claims. Each lookup returns the
// first matching claim header id in a stable order, or found=false.
type ClaimStore interface {
	FindByClaimID(ctx context.Context, claimID string) (id uuid.UUID, found bool, err error)
	FindByOriginalClaimID(ctx context.Context, claimID string) (id uuid.UUID, found bool, err error)
	// FindByReference matches reference entries on value and, unless
	// qualifier is blank, on qualifier.
	FindByReference(ctx context.Context, qualifier, value string) (id uuid.UUID, found bool, err error)
}

// Matcher links remittance payments to stored claims. It holds no state
// between calls and is safe for concurrent use when the store is.
type Matcher struct {
	store ClaimStore
	cfg   *Config
}

// NewMatcher creates a Matcher. A nil cfg means DefaultConfig.
func NewMatcher(store ClaimStore, cfg *Config) *Matcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Matcher{store: store, cfg: cfg}
}

// Match resolves a payment by its patient control number (CLP01) and payer
// claim control number (CLP07). Strategies run in a fixed order and the
// first hit wins:
//
//  1. CLP01 candidates against claim ids
//  2. CLP07 candidates against original claim ids
//  3. CLP07 candidates against references, qualifier by priority
//  4. CLP07 candidates against reference values of any qualifier
//
// Absence is not an error; only store failures are returned.
func (m *Matcher) Match(ctx context.Context, patientControl, claimControl string) (Result, error) {
	pcnKeys := Candidates(patientControl)
	for _, key := range pcnKeys {
		id, ok, err := m.store.FindByClaimID(ctx, key)
		if err != nil {
			return Result{}, fmt.Errorf("matching: claim id lookup: %w", err)
		}
		if ok {
			return matched(id, StrategyClaimID, ReasonMatchedClaimID), nil
		}
	}

	controlKeys := Candidates(claimControl)
	for _, key := range controlKeys {
		id, ok, err := m.store.FindByOriginalClaimID(ctx, key)
		if err != nil {
			return Result{}, fmt.Errorf("matching: original claim id lookup: %w", err)
		}
		if ok {
			return matched(id, StrategyOriginalClaimID, ReasonMatchedOriginalClaimID), nil
		}
	}

	for _, key := range controlKeys {
		for _, q := range m.cfg.ReferenceQualifierPriority {
			id, ok, err := m.store.FindByReference(ctx, q, key)
			if err != nil {
				return Result{}, fmt.Errorf("matching: reference lookup: %w", err)
			}
			if ok {
				return matched(id, StrategyReference, ReasonMatchedRef(q)), nil
			}
		}
	}

	for _, key := range controlKeys {
		id, ok, err := m.store.FindByReference(ctx, "", key)
		if err != nil {
			return Result{}, fmt.Errorf("matching: reference lookup: %w", err)
		}
		if ok {
			return matched(id, StrategyReference, ReasonMatchedRefAny), nil
		}
	}

	return Result{
		Strategy:   StrategyUnmatched,
		ReasonCode: unmatchedReason(patientControl, claimControl, pcnKeys, controlKeys),
	}, nil
}

func matched(id uuid.UUID, s Strategy, reason string) Result {
	return Result{
		ClaimHeaderID: uuid.NullUUID{UUID: id, Valid: true},
		Strategy:      s,
		ReasonCode:    reason,
	}
}

func unmatchedReason(pcn, control string, pcnKeys, controlKeys []string) string {
	hasPCN := pcn != ""
	hasControl := control != ""
	switch {
	case hasPCN && len(pcnKeys) == 0:
		return ReasonUnusableCLP01
	case hasControl && len(controlKeys) == 0:
		return ReasonUnusableCLP07
	case hasPCN && hasControl:
		return ReasonNoMatchBoth
	case hasPCN:
		return ReasonNoMatchCLP01
	case hasControl:
		return ReasonNoMatchCLP07
	default:
		return ReasonNoKeys
	}
}

// String renders a result for logs.
func (r Result) String() string {
	if !r.Matched() {
		return fmt.Sprintf("%s/%s", r.Strategy, r.ReasonCode)
	}
	return fmt.Sprintf("%s/%s %s", r.Strategy, r.ReasonCode, r.ClaimHeaderID.UUID)
}
