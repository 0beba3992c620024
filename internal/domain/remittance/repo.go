package remittance

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a stored payment does not exist.
var ErrNotFound = errors.New("remittance: payment not found")

// Repository persists decoded payments. Save is idempotent on
// Payment.NaturalKey and replaces service lines and adjustments.
type Repository interface {
	Save(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	ListByClaim(ctx context.Context, claimHeaderID uuid.UUID) ([]Payment, error)
}
