package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edi/edi/internal/domain/claims"
	"github.com/edi/edi/internal/domain/filelog"
	"github.com/edi/edi/internal/domain/matching"
	"github.com/edi/edi/internal/domain/remittance"
	"github.com/edi/edi/internal/platform/archive"
	"github.com/edi/edi/internal/platform/events"
	"github.com/edi/edi/internal/platform/metrics"
	"github.com/edi/edi/internal/platform/x12"
)

const isaHeader = "ISA*00*          *00*          *ZZ*SUBMITTER      *ZZ*RECEIVER       *260220*1200*^*00501*000000101*0*P*:~"

const claims837 = isaHeader +
	"GS*HC*SUBMITTER*RECEIVER*20260220*1200*101*X*005010X222A1~" +
	"ST*837*0001*005010X222A1~" +
	"BHT*0019*00*BATCH1*20260220*1200*CH~" +
	"HL*1**20*1~" +
	"NM1*85*2*ACME CLINIC*****XX*1999999999~" +
	"HL*2*1*22*0~" +
	"SBR*P*18*******CI~" +
	"NM1*IL*1*SMITH*JANE****MI*W123~" +
	"CLM*CLAIM001*150.00***11:B:1**A*Y*Y~" +
	"LX*1~" +
	"SV1*HC:99213*150.00*UN*1***1~" +
	"HL*3*1*22*0~" +
	"SBR*P*18*******CI~" +
	"CLM*CLAIM002*80.00***11:B:1**A*Y*Y~" +
	"LX*1~" +
	"SV1*HC:97110*80.00*UN*2***1~" +
	"SE*16*0001~GE*1*101~IEA*1*000000101~"

const era835 = isaHeader +
	"GS*HP*PAYER*PROVIDER*20260302*0900*202*X*005010X221A1~" +
	"ST*835*0001~" +
	"BPR*I*180.00*C*ACH*CCP*01*999999999*DA*123456*1512345678**01*888888888*DA*654321*20260301~" +
	"TRN*1*CHK12345*1512345678~" +
	"N1*PR*BLUE PAYER*XV*PAYER01~" +
	"CLP*CLAIM001*1*150.00*100.00*25.00*CI*PCN-777~" +
	"CAS*CO*45*50.00*PR*2*25.00~" +
	"CLP*claim-002*1*80.00*80.00*0*CI*PCN-888~" +
	"CLP*NOPE*4*10.00*0*0*CI~" +
	"CAS*CO*45*10.00~" +
	"SE*10*0001~GE*1*202~IEA*1*000000202~"

func writeBatch(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"claims.837": claims837,
		"era.835":    era835,
		"junk.txt":   "not an interchange",
		"README.md":  "ignored",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func inMemoryOptions() (Options, *matching.MemoryStore) {
	store := matching.NewMemoryStore()
	return Options{
		Workers:   2,
		Matcher:   matching.NewMatcher(store, nil),
		Collector: store,
	}, store
}

func TestDiscover(t *testing.T) {
	dir := writeBatch(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.837"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "UPPER.EDI"), []byte("x"), 0o644))

	files, err := Discover(dir, filepath.Join(dir, "era.835"))
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{"UPPER.EDI", "claims.837", "era.835", "junk.txt"}, names)
}

func TestDiscover_MissingPath(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestDetectKind(t *testing.T) {
	doc, err := x12.Parse([]byte(claims837))
	require.NoError(t, err)
	kind, err := DetectKind(doc)
	require.NoError(t, err)
	assert.Equal(t, KindClaims, kind)

	doc, err = x12.Parse([]byte(isaHeader + "ST*270*0001~SE*1*0001~"))
	require.NoError(t, err)
	_, err = DetectKind(doc)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRun_InMemoryMatching(t *testing.T) {
	dir := writeBatch(t)
	opts, store := inMemoryOptions()
	arch := archive.NewMemoryStore()
	pub := &recordingPublisher{}
	m := metrics.New(false)
	gates := DefaultGates()
	opts.Archive, opts.Publisher, opts.Metrics, opts.Gates = arch, pub, m, &gates

	report, err := New(zerolog.Nop(), opts).Run(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, report.Files, 3)

	byName := map[string]*Outcome{}
	for _, o := range report.Files {
		byName[o.FileName] = o
	}
	assert.Equal(t, StatusOK, byName["claims.837"].Status)
	assert.Equal(t, KindClaims, byName["claims.837"].Kind)
	assert.Equal(t, 2, byName["claims.837"].Records)
	assert.Equal(t, StatusOK, byName["era.835"].Status)
	assert.Equal(t, StatusFailed, byName["junk.txt"].Status)
	assert.NotEmpty(t, byName["junk.txt"].Error)

	assert.Equal(t, 2, store.Len())
	payments := byName["era.835"].Remittance.Payments
	require.Len(t, payments, 3)
	claim1 := byName["claims.837"].Claims.Claims[0]
	require.NotNil(t, payments[0].Match)
	assert.Equal(t, claim1.ID, payments[0].Match.ClaimHeaderID.UUID)
	assert.Equal(t, matching.StrategyClaimID, payments[1].Match.Strategy)
	assert.Equal(t, matching.StrategyUnmatched, payments[2].Match.Strategy)

	d := report.Digest
	assert.Equal(t, 2, d.Claims.FilesFound)
	assert.Equal(t, 1, d.Claims.FilesFailed)
	assert.Equal(t, 2, d.Claims.Records)
	assert.Equal(t, 3, d.Remittances.Records)
	assert.True(t, d.Claims.TotalCharge.Equal(decimal.RequireFromString("230")))
	assert.True(t, d.Remittances.TotalCharge.Equal(decimal.RequireFromString("240")))
	assert.True(t, d.Remittances.TotalPaid.Equal(decimal.RequireFromString("180")))
	assert.True(t, d.Remittances.TotalAdjusted.Equal(decimal.RequireFromString("85")))
	assert.Equal(t, 2, d.MatchCounts[matching.StrategyClaimID])
	assert.Equal(t, 1, d.MatchCounts[matching.StrategyUnmatched])
	assert.Equal(t, 0, d.MatchCounts[matching.StrategyReference])
	assert.Equal(t, 2, d.ReasonCounts[matching.ReasonMatchedClaimID])
	assert.Equal(t, Crosswalk{UniqueClaimIDs: 2, UniqueCLP01: 3, UniqueCLP07: 2, DirectCLP01Matches: 1}, d.Crosswalk)

	require.NotNil(t, d.Gates)
	assert.Equal(t, GateFail, d.Gates.Status)
	assert.Len(t, d.Gates.Checks, 3)
	assert.False(t, d.Gates.Checks[0].Passed)
	assert.Equal(t, 33.33, d.Gates.Checks[0].ActualPct)

	assert.Equal(t, 2, arch.Len())
	assert.Len(t, pub.events, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesProcessed.WithLabelValues("837P", metrics.StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesProcessed.WithLabelValues("unknown", metrics.StatusFailed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MatchOutcomes.WithLabelValues("clp01")))
}

func TestRun_SideEffectFailureKeepsFile(t *testing.T) {
	opts, _ := inMemoryOptions()
	opts.Publisher = &recordingPublisher{err: errors.New("broker down")}

	names := []string{"claims.837", "era.835"}
	report, err := New(zerolog.Nop(), opts).RunInput(context.Background(), names, map[string][]byte{
		"claims.837": []byte(claims837),
		"era.835":    []byte(era835),
	})
	require.NoError(t, err)

	for _, o := range report.Files {
		assert.Equal(t, StatusOK, o.Status, o.FileName)
		require.Len(t, o.SideEffects, 1, o.FileName)
		assert.Equal(t, StagePublish, o.SideEffects[0].Stage)
		assert.Contains(t, o.SideEffects[0].Error, "broker down")
	}
	assert.Equal(t, 2, report.Digest.SideEffects[StagePublish])
}

func TestRun_CancelledContext(t *testing.T) {
	opts, _ := inMemoryOptions()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(zerolog.Nop(), opts).RunInput(ctx, []string{"claims.837"}, map[string][]byte{
		"claims.837": []byte(claims837),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

// -- in-memory repositories for the loader --

type memClaims struct {
	mu    sync.Mutex
	items map[uuid.UUID]*claims.Record
}

func (m *memClaims) Save(_ context.Context, c *claims.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.items[c.ID] = &claims.Record{Claim: *c, Status: claims.StatusSubmitted}
	return nil
}

func (m *memClaims) GetByID(_ context.Context, id uuid.UUID) (*claims.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[id]
	if !ok {
		return nil, claims.ErrNotFound
	}
	return rec, nil
}

func (m *memClaims) ApplyPayment(_ context.Context, id uuid.UUID, status string, paid, patientResp decimal.NullDecimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[id]
	if !ok {
		return claims.ErrNotFound
	}
	rec.Status, rec.PaidAmount, rec.PatientResponsibility = status, paid, patientResp
	return nil
}

type memRemittances struct {
	mu    sync.Mutex
	items []remittance.Payment
}

func (m *memRemittances) Save(_ context.Context, p *remittance.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	m.items = append(m.items, *p)
	return nil
}

func (m *memRemittances) GetByID(_ context.Context, id uuid.UUID) (*remittance.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			return &m.items[i], nil
		}
	}
	return nil, remittance.ErrNotFound
}

func (m *memRemittances) ListByClaim(_ context.Context, claimID uuid.UUID) ([]remittance.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []remittance.Payment
	for _, p := range m.items {
		if p.Match != nil && p.Match.ClaimHeaderID.UUID == claimID {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestRun_LoaderAppliesPaymentsAndSkipsReloads(t *testing.T) {
	opts, _ := inMemoryOptions()
	claimRepo := &memClaims{items: map[uuid.UUID]*claims.Record{}}
	remitRepo := &memRemittances{}
	fileLog := filelog.NewMemoryRepo()
	opts.Loader = &Loader{Claims: claimRepo, Remittances: remitRepo, Files: fileLog}
	p := New(zerolog.Nop(), opts)

	names := []string{"claims.837", "era.835"}
	inputs := map[string][]byte{"claims.837": []byte(claims837), "era.835": []byte(era835)}

	report, err := p.RunInput(context.Background(), names, inputs)
	require.NoError(t, err)
	for _, o := range report.Files {
		assert.Empty(t, o.SideEffects, o.FileName)
	}

	assert.Len(t, claimRepo.items, 2)
	assert.Len(t, remitRepo.items, 3)
	_, total, _ := fileLog.List(context.Background(), 10, 0)
	assert.Equal(t, 2, total)

	claim1 := report.Files[0].Claims.Claims[0]
	rec, err := claimRepo.GetByID(context.Background(), claim1.ID)
	require.NoError(t, err)
	assert.Equal(t, claims.StatusPaid, rec.Status)
	assert.True(t, rec.PaidAmount.Decimal.Equal(decimal.RequireFromString("100")))

	paid, err := remitRepo.ListByClaim(context.Background(), claim1.ID)
	require.NoError(t, err)
	assert.Len(t, paid, 1)

	again, err := p.RunInput(context.Background(), names, inputs)
	require.NoError(t, err)
	for _, o := range again.Files {
		assert.Equal(t, StatusSkipped, o.Status, o.FileName)
		assert.Equal(t, SkipAlreadyLoaded, o.SkipReason)
	}
	assert.Len(t, remitRepo.items, 3)
	assert.Equal(t, 2, again.Digest.Claims.FilesSkipped+again.Digest.Remittances.FilesSkipped)
	assert.False(t, again.Digest.Matched)
}

func TestGates_Evaluate(t *testing.T) {
	d := Digest{
		Claims:      KindStats{FilesFound: 10, Records: 90, InvalidDates: 1},
		Remittances: KindStats{FilesFound: 10, FilesFailed: 1, Records: 10, InvalidDates: 1},
		Matched:     true,
		MatchCounts: map[matching.Strategy]int{
			matching.StrategyClaimID:   9,
			matching.StrategyUnmatched: 1,
		},
	}

	report := DefaultGates().Evaluate(d)
	require.Len(t, report.Checks, 3)
	assert.Equal(t, GatePass, report.Status)
	assert.True(t, report.Passed())
	assert.Equal(t, 5.0, report.Checks[0].ActualPct)
	assert.Equal(t, 2.0, report.Checks[1].ActualPct)
	assert.Equal(t, 10.0, report.Checks[2].ActualPct)

	strict := Gates{MaxInvalidDateRate: 1, MaxUnmatchedRate: 10, MaxParseFailRate: 5}
	report = strict.Evaluate(d)
	assert.Equal(t, GateFail, report.Status)
	assert.False(t, report.Checks[1].Passed)

	d.Matched = false
	assert.Len(t, DefaultGates().Evaluate(d).Checks, 2)
}

func TestSummarize_UnknownCodesUnion(t *testing.T) {
	outcomes := []*Outcome{
		{Kind: KindRemittance, Status: StatusOK, Remittance: &remittance.File{
			Summary: remittance.Summary{UnknownReasonCodes: []string{"Z9", "A1"}},
		}},
		{Kind: KindRemittance, Status: StatusOK, Remittance: &remittance.File{
			Summary: remittance.Summary{UnknownReasonCodes: []string{"A1", "B2"}, InvalidDates: 2},
		}},
		{FileName: "broken.835", Status: StatusFailed, Error: "x12: empty document"},
	}

	d := Summarize(outcomes, nil)
	assert.Equal(t, []string{"A1", "B2", "Z9"}, d.Remittances.UnknownCodes["unknown_carc_codes"])
	assert.Equal(t, 2, d.Remittances.InvalidDates)
	assert.Equal(t, 3, d.Remittances.FilesFound)
	assert.Equal(t, 1, d.Remittances.FilesFailed)
	assert.Nil(t, d.Gates)
	assert.True(t, strings.HasPrefix(d.Remittances.Failures[0].Error, "x12:"))
}

func TestPct(t *testing.T) {
	assert.Equal(t, 0.0, pct(1, 0))
	assert.Equal(t, 33.33, pct(1, 3))
	assert.Equal(t, 66.67, pct(2, 3))
}
