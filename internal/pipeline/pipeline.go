// Package pipeline runs batches of interchange files through decoding,
// matching and the optional side effects: archive, load, publish and
// metrics.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edi/edi/internal/domain/claims"
	"github.com/edi/edi/internal/domain/matching"
	"github.com/edi/edi/internal/domain/remittance"
	"github.com/edi/edi/internal/platform/archive"
	"github.com/edi/edi/internal/platform/events"
	"github.com/edi/edi/internal/platform/metrics"
	"github.com/edi/edi/internal/platform/x12"
)

// Options configure a Pipeline. Every collaborator is optional.
type Options struct {
	Workers int

	// Matcher resolves each 835 payment to a claim. When Collector is set
	// every decoded claim is added to it before any 835 is matched, which
	// is how a batch matches against itself without a database.
	Matcher   *matching.Matcher
	Collector *matching.MemoryStore

	Loader    *Loader
	Archive   archive.Store
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Gates     *Gates
}

type Pipeline struct {
	logger zerolog.Logger
	opts   Options
}

// Report is what a batch run returns: one outcome per file, in discovery
// order, and the digest over all of them.
type Report struct {
	Files  []*Outcome `json:"files"`
	Digest Digest     `json:"digest"`
}

func New(logger zerolog.Logger, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{logger: logger, opts: opts}
}

// Run discovers files under paths and processes them. Per-file failures
// are reported on the outcomes; Run itself fails only on discovery errors
// or cancellation.
func (p *Pipeline) Run(ctx context.Context, paths ...string) (*Report, error) {
	files, err := Discover(paths...)
	if err != nil {
		return nil, err
	}
	p.logger.Info().Int("files", len(files)).Int("workers", p.opts.Workers).Msg("batch started")

	outcomes := make([]*Outcome, len(files))
	for i, path := range files {
		outcomes[i] = &Outcome{Path: path, FileName: filepath.Base(path)}
	}
	return p.process(ctx, outcomes)
}

// RunInput processes in-memory documents, keyed by file name, the same way
// Run processes files.
func (p *Pipeline) RunInput(ctx context.Context, names []string, inputs map[string][]byte) (*Report, error) {
	outcomes := make([]*Outcome, len(names))
	for i, name := range names {
		outcomes[i] = &Outcome{Path: name, FileName: name, raw: inputs[name]}
	}
	return p.process(ctx, outcomes)
}

func (p *Pipeline) process(ctx context.Context, outcomes []*Outcome) (*Report, error) {
	start := time.Now()

	if err := p.each(ctx, outcomes, "", p.decode); err != nil {
		return nil, err
	}
	// Claims first so 835 matching sees every claim of the batch.
	if err := p.each(ctx, outcomes, KindClaims, p.handleClaims); err != nil {
		return nil, err
	}
	p.collect(outcomes)
	if err := p.each(ctx, outcomes, KindRemittance, p.handleRemittance); err != nil {
		return nil, err
	}

	for _, o := range outcomes {
		p.finish(o)
	}

	digest := Summarize(outcomes, p.opts.Gates)
	evt := p.logger.Info().
		Int("files", len(outcomes)).
		Int("claims", digest.Claims.Records).
		Int("payments", digest.Remittances.Records).
		Int("failed", digest.Claims.FilesFailed+digest.Remittances.FilesFailed).
		Dur("duration", time.Since(start))
	if digest.Gates != nil {
		evt = evt.Str("quality_gates", digest.Gates.Status)
	}
	evt.Msg("batch finished")

	return &Report{Files: outcomes, Digest: digest}, nil
}

// each runs fn over the outcomes of the given kind ("" means all that
// have not failed) on the worker pool.
func (p *Pipeline) each(ctx context.Context, outcomes []*Outcome, kind Kind, fn func(context.Context, *Outcome)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for _, o := range outcomes {
		if o.Failed() || (kind != "" && o.Kind != kind) {
			continue
		}
		o := o
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(ctx, o)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) decode(_ context.Context, o *Outcome) {
	start := time.Now()
	defer func() { o.Duration += time.Since(start) }()

	if o.raw == nil {
		raw, err := os.ReadFile(o.Path)
		if err != nil {
			o.fail(fmt.Errorf("read: %w", err))
			return
		}
		o.raw = raw
	}
	o.Size = int64(len(o.raw))
	o.Hash = archive.Hash(o.raw)

	doc, err := x12.Parse(o.raw)
	if err != nil {
		o.fail(err)
		return
	}
	kind, err := DetectKind(doc)
	if err != nil {
		o.fail(err)
		return
	}
	o.Kind = kind

	switch kind {
	case KindClaims:
		o.Claims = claims.Decode(o.FileName, o.Hash, doc)
		o.Records = o.Claims.ClaimCount
	case KindRemittance:
		o.Remittance = remittance.Decode(o.FileName, o.Hash, doc)
		o.Records = o.Remittance.PaymentCount
	}
	o.Status = StatusOK
}

// alreadyLoaded marks o skipped when its hash is in the file log.
func (p *Pipeline) alreadyLoaded(ctx context.Context, o *Outcome) bool {
	if p.opts.Loader == nil {
		return false
	}
	seen, err := p.opts.Loader.Seen(ctx, o.Hash)
	if err != nil {
		o.sideEffect(StageLoad, err)
		return false
	}
	if seen {
		o.Status = StatusSkipped
		o.SkipReason = SkipAlreadyLoaded
	}
	return seen
}

func (p *Pipeline) handleClaims(ctx context.Context, o *Outcome) {
	start := time.Now()
	defer func() { o.Duration += time.Since(start) }()

	if p.alreadyLoaded(ctx, o) {
		return
	}
	f := o.Claims
	p.archive(ctx, o)
	if p.opts.Loader != nil {
		if err := p.opts.Loader.LoadClaims(ctx, f); err != nil {
			o.sideEffect(StageLoad, err)
		}
	}
	p.publish(ctx, o, events.TypeClaimsDecoded, filePayload{
		Envelope: f.Envelope,
		Summary:  f.Summary,
	})
}

// collect feeds decoded claims to the in-memory store in discovery order,
// so the first file to carry a claim id wins.
func (p *Pipeline) collect(outcomes []*Outcome) {
	if p.opts.Collector == nil {
		return
	}
	for _, o := range outcomes {
		if o.Claims == nil || o.Failed() {
			continue
		}
		for i := range o.Claims.Claims {
			p.opts.Collector.Add(&o.Claims.Claims[i])
		}
	}
}

func (p *Pipeline) handleRemittance(ctx context.Context, o *Outcome) {
	start := time.Now()
	defer func() { o.Duration += time.Since(start) }()

	if p.alreadyLoaded(ctx, o) {
		return
	}
	f := o.Remittance
	p.archive(ctx, o)

	var counts map[matching.Strategy]int
	if p.opts.Matcher != nil {
		if err := remittance.MatchAll(ctx, p.opts.Matcher, f.Payments); err != nil {
			o.sideEffect(StageMatch, err)
		} else {
			counts = remittance.MatchCounts(f.Payments)
			p.opts.Metrics.ObserveMatches(strategyCounts(counts))
		}
	}

	if p.opts.Loader != nil {
		if err := p.opts.Loader.LoadRemittance(ctx, f); err != nil {
			o.sideEffect(StageLoad, err)
		}
	}
	p.publish(ctx, o, events.TypeRemittanceDecoded, filePayload{
		Envelope:    f.Envelope,
		Summary:     f.Summary,
		MatchCounts: counts,
	})
}

func (p *Pipeline) archive(ctx context.Context, o *Outcome) {
	if p.opts.Archive == nil {
		return
	}
	obj := archive.Object{FileName: o.FileName, FileType: string(o.Kind)}
	if _, err := p.opts.Archive.Put(ctx, obj, bytes.NewReader(o.raw)); err != nil {
		o.sideEffect(StageArchive, err)
	}
}

type filePayload struct {
	Envelope    x12.Envelope              `json:"metadata"`
	Summary     any                       `json:"parse_summary"`
	MatchCounts map[matching.Strategy]int `json:"match_summary,omitempty"`
}

func (p *Pipeline) publish(ctx context.Context, o *Outcome, eventType string, payload filePayload) {
	if p.opts.Publisher == nil {
		return
	}
	ev, err := events.NewEvent(eventType, o.FileName, o.Hash, o.Records, payload)
	if err == nil {
		err = p.opts.Publisher.Publish(ctx, ev)
	}
	if err != nil {
		o.sideEffect(StagePublish, err)
	}
}

// finish logs the file, records metrics and drops the raw bytes.
func (p *Pipeline) finish(o *Outcome) {
	o.raw = nil
	for _, se := range o.SideEffects {
		p.opts.Metrics.ObserveSideEffectFailure(se.Stage)
	}
	p.opts.Metrics.ObserveFile(o.kindLabel(), o.Status, o.Records, o.Size, o.Duration)

	var evt *zerolog.Event
	switch {
	case o.Failed():
		evt = p.logger.Error().Err(o.Err)
	case len(o.SideEffects) > 0:
		evt = p.logger.Warn().Interface("side_effect_errors", o.SideEffects)
	default:
		evt = p.logger.Info()
	}
	evt.Str("file", o.FileName).
		Str("kind", o.kindLabel()).
		Str("status", o.Status).
		Int("records", o.Records).
		Dur("duration", o.Duration).
		Msg("file processed")
}

func strategyCounts(counts map[matching.Strategy]int) map[string]int {
	out := make(map[string]int, len(counts))
	for s, n := range counts {
		out[string(s)] = n
	}
	return out
}
