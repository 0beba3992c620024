package claims

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a stored claim does not exist.
var ErrNotFound = errors.New("claims: claim not found")

// Claim statuses written back by remittance loading.
const (
	StatusSubmitted = "submitted"
	StatusPaid      = "paid"
	StatusPartial   = "partial"
	StatusDenied    = "denied"
)

// Record is a stored claim with its adjudication state.
type Record struct {
	Claim
	Status                string              `db:"claim_status" json:"claim_status"`
	PaidAmount            decimal.NullDecimal `db:"paid_amount" json:"paid_amount"`
	PatientResponsibility decimal.NullDecimal `db:"patient_responsibility" json:"patient_responsibility"`
	CreatedAt             time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time           `db:"updated_at" json:"updated_at"`
}

// Repository persists decoded claims. Save is idempotent on
// (claim_id, file_name) and replaces all child rows.
type Repository interface {
	Save(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	ApplyPayment(ctx context.Context, id uuid.UUID, status string, paid, patientResp decimal.NullDecimal) error
}

// StatusFromPayment derives the claim status written back when a
// remittance matches: denied for status code 4, paid when anything was
// paid, partial otherwise.
func StatusFromPayment(statusCode string, paid decimal.NullDecimal) string {
	switch {
	case statusCode == "4":
		return StatusDenied
	case paid.Valid && paid.Decimal.IsPositive():
		return StatusPaid
	default:
		return StatusPartial
	}
}
