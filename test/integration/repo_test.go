package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edi/edi/internal/domain/claims"
	"github.com/edi/edi/internal/domain/filelog"
	"github.com/edi/edi/internal/domain/matching"
	"github.com/edi/edi/internal/domain/remittance"
	"github.com/edi/edi/internal/platform/db"
)

func decodeClaims(t *testing.T) *claims.File {
	t.Helper()
	f, err := claims.ParseFile("claims.837", []byte(claims837))
	require.NoError(t, err)
	require.Len(t, f.Claims, 2)
	return f
}

func TestClaimsRepoPG_SaveAndApplyPayment(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	repo := claims.NewRepoPG(pool)
	f := decodeClaims(t)

	c := &f.Claims[0]
	require.NoError(t, repo.Save(ctx, c))
	firstID := c.ID
	require.NotEqual(t, uuid.Nil, firstID)

	t.Run("SaveIsIdempotent", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, c))
		assert.Equal(t, firstID, c.ID)

		var n int
		require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM claim_lines WHERE claim_header_id = $1`, c.ID).Scan(&n))
		assert.Equal(t, 1, n)
	})

	t.Run("GetByID", func(t *testing.T) {
		rec, err := repo.GetByID(ctx, firstID)
		require.NoError(t, err)
		assert.Equal(t, "CLAIM001", rec.ClaimID)
		assert.Equal(t, claims.StatusSubmitted, rec.Status)
		assert.True(t, rec.TotalCharge.Decimal.Equal(decimal.NewFromInt(150)))
		require.Len(t, rec.Lines, 1)
		require.Len(t, rec.References, 1)
		assert.Equal(t, "TRACE-001", rec.References[0].Value)
	})

	t.Run("ApplyPayment", func(t *testing.T) {
		paid := decimal.NewNullDecimal(decimal.NewFromInt(100))
		resp := decimal.NewNullDecimal(decimal.NewFromInt(25))
		require.NoError(t, repo.ApplyPayment(ctx, firstID, claims.StatusPaid, paid, resp))

		rec, err := repo.GetByID(ctx, firstID)
		require.NoError(t, err)
		assert.Equal(t, claims.StatusPaid, rec.Status)
		assert.True(t, rec.PaidAmount.Decimal.Equal(paid.Decimal))
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, claims.ErrNotFound)
	})
}

func TestClaimsRepoPG_SaveRollsBackInsideTx(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	repo := claims.NewRepoPG(pool)
	f := decodeClaims(t)

	err := db.InTx(ctx, pool, func(ctx context.Context) error {
		if err := repo.Save(ctx, &f.Claims[0]); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = repo.GetByID(ctx, f.Claims[0].ID)
	assert.ErrorIs(t, err, claims.ErrNotFound)
}

func TestMatchingStorePG(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	repo := claims.NewRepoPG(pool)
	f := decodeClaims(t)
	for i := range f.Claims {
		require.NoError(t, repo.Save(ctx, &f.Claims[i]))
	}
	first, second := f.Claims[0].ID, f.Claims[1].ID

	store := matching.NewStorePG(pool)

	id, ok, err := store.FindByClaimID(ctx, "CLAIM001")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, id)

	id, ok, err = store.FindByReference(ctx, "D9", "TRACE-001")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, id)

	_, ok, err = store.FindByReference(ctx, "", "TRACE-001")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = store.FindByClaimID(ctx, "UNKNOWN")
	require.NoError(t, err)
	assert.False(t, ok)

	m := matching.NewMatcher(store, matching.DefaultConfig())

	res, err := m.Match(ctx, "claim-002", "")
	require.NoError(t, err)
	assert.Equal(t, matching.StrategyClaimID, res.Strategy)
	assert.Equal(t, second, res.ClaimHeaderID.UUID)

	res, err = m.Match(ctx, "NOPE", "TRACE-001")
	require.NoError(t, err)
	assert.Equal(t, matching.StrategyReference, res.Strategy)
	assert.Equal(t, first, res.ClaimHeaderID.UUID)

	res, err = m.Match(ctx, "NOPE", "")
	require.NoError(t, err)
	assert.False(t, res.Matched())
	assert.Equal(t, matching.StrategyUnmatched, res.Strategy)
}

func TestRemittanceRepoPG(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	claimRepo := claims.NewRepoPG(pool)
	f := decodeClaims(t)
	require.NoError(t, claimRepo.Save(ctx, &f.Claims[0]))

	era, err := remittance.ParseFile("era.835", []byte(era835))
	require.NoError(t, err)
	require.Len(t, era.Payments, 3)

	p := &era.Payments[0]
	p.Match = &matching.Result{
		ClaimHeaderID: uuid.NullUUID{UUID: f.Claims[0].ID, Valid: true},
		Strategy:      matching.StrategyClaimID,
		ReasonCode:    matching.ReasonMatchedClaimID,
	}

	repo := remittance.NewRepoPG(pool)
	require.NoError(t, repo.Save(ctx, p))
	require.NotEqual(t, uuid.Nil, p.ID)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "CLAIM001", got.PatientControlNumber)
	assert.Equal(t, "CHK12345", got.CheckNumber)
	assert.True(t, got.PaidAmount.Decimal.Equal(decimal.NewFromInt(100)))
	require.Len(t, got.ServiceLines, 1)
	assert.Len(t, got.Adjustments, 2)
	require.NotNil(t, got.Match)
	assert.Equal(t, matching.StrategyClaimID, got.Match.Strategy)

	list, err := repo.ListByClaim(ctx, f.Claims[0].ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, remittance.ErrNotFound)
}

func TestFileLogRepoPG(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	repo := filelog.NewRepoPG(pool)

	entry, err := filelog.NewEntry("claims.837", "837P", "abc123", 2, map[string]int{"claims": 2})
	require.NoError(t, err)

	inserted, err := repo.Record(ctx, entry)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup, err := filelog.NewEntry("copy.837", "837P", "abc123", 2, nil)
	require.NoError(t, err)
	inserted, err = repo.Record(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	seen, err := repo.Exists(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, seen)

	got, err := repo.GetByHash(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "claims.837", got.FileName)
	assert.Equal(t, 2, got.RecordCount)

	entries, total, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, entries, 1)

	_, err = repo.GetByHash(ctx, "missing")
	assert.ErrorIs(t, err, filelog.ErrNotFound)
}
