package matching

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type storePG struct{ pool *pgxpool.Pool }

// NewStorePG returns a ClaimStore reading claim_headers and
// claim_references. Ties resolve to the oldest header.
func NewStorePG(pool *pgxpool.Pool) ClaimStore { return &storePG{pool: pool} }

func (s *storePG) FindByClaimID(ctx context.Context, claimID string) (uuid.UUID, bool, error) {
	return s.first(ctx, `
		SELECT id FROM claim_headers
		WHERE claim_id = $1
		ORDER BY created_at, id LIMIT 1`, claimID)
}

func (s *storePG) FindByOriginalClaimID(ctx context.Context, claimID string) (uuid.UUID, bool, error) {
	return s.first(ctx, `
		SELECT id FROM claim_headers
		WHERE original_claim_id = $1
		ORDER BY created_at, id LIMIT 1`, claimID)
}

func (s *storePG) FindByReference(ctx context.Context, qualifier, value string) (uuid.UUID, bool, error) {
	if qualifier == "" {
		return s.first(ctx, `
			SELECT r.claim_header_id FROM claim_references r
			JOIN claim_headers h ON h.id = r.claim_header_id
			WHERE r.reference_value = $1
			ORDER BY h.created_at, h.id, r.position LIMIT 1`, value)
	}
	return s.first(ctx, `
		SELECT r.claim_header_id FROM claim_references r
		JOIN claim_headers h ON h.id = r.claim_header_id
		WHERE r.reference_qualifier = $1 AND r.reference_value = $2
		ORDER BY h.created_at, h.id, r.position LIMIT 1`, qualifier, value)
}

func (s *storePG) first(ctx context.Context, sql string, args ...interface{}) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, sql, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}
