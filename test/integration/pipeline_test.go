package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edi/edi/internal/domain/claims"
	"github.com/edi/edi/internal/domain/filelog"
	"github.com/edi/edi/internal/domain/matching"
	"github.com/edi/edi/internal/domain/remittance"
	"github.com/edi/edi/internal/pipeline"
)

func TestPipeline_LoadMatchAndReload(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "claims.837"), []byte(claims837), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "era.835"), []byte(era835), 0o644))

	newPipeline := func() *pipeline.Pipeline {
		return pipeline.New(zerolog.Nop(), pipeline.Options{
			Workers: 2,
			Loader:  pipeline.NewPGLoader(pool),
			Matcher: matching.NewMatcher(matching.NewStorePG(pool), matching.DefaultConfig()),
		})
	}

	report, err := newPipeline().Run(ctx, dir)
	require.NoError(t, err)
	require.Len(t, report.Files, 2)
	for _, o := range report.Files {
		assert.Equal(t, pipeline.StatusOK, o.Status, o.FileName)
		assert.Empty(t, o.SideEffects, o.FileName)
	}
	assert.Equal(t, 2, report.Digest.MatchCounts[matching.StrategyClaimID])
	assert.Equal(t, 1, report.Digest.MatchCounts[matching.StrategyUnmatched])

	store := matching.NewStorePG(pool)
	claimRepo := claims.NewRepoPG(pool)

	first, ok, err := store.FindByClaimID(ctx, "CLAIM001")
	require.NoError(t, err)
	require.True(t, ok)
	rec, err := claimRepo.GetByID(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, claims.StatusPaid, rec.Status)
	assert.True(t, rec.PaidAmount.Decimal.Equal(decimal.NewFromInt(100)))
	assert.True(t, rec.PatientResponsibility.Decimal.Equal(decimal.NewFromInt(25)))

	second, ok, err := store.FindByClaimID(ctx, "CLAIM002")
	require.NoError(t, err)
	require.True(t, ok)
	rec, err = claimRepo.GetByID(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, claims.StatusDenied, rec.Status)

	payments, err := remittance.NewRepoPG(pool).ListByClaim(ctx, first)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	require.NotNil(t, payments[0].Match)
	assert.Equal(t, matching.ReasonMatchedClaimID, payments[0].Match.ReasonCode)

	var unmatched int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM claim_payments WHERE claim_header_id IS NULL`).Scan(&unmatched))
	assert.Equal(t, 1, unmatched)

	entries, total, err := filelog.NewRepoPG(pool).List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, entries, 2)

	t.Run("ReloadSkipsLoggedFiles", func(t *testing.T) {
		again, err := newPipeline().Run(ctx, dir)
		require.NoError(t, err)
		for _, o := range again.Files {
			assert.Equal(t, pipeline.StatusSkipped, o.Status, o.FileName)
			assert.Equal(t, pipeline.SkipAlreadyLoaded, o.SkipReason)
		}

		var n int
		require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM claim_payments`).Scan(&n))
		assert.Equal(t, 3, n)
	})
}
