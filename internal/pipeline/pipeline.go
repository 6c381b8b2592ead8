// Package pipeline sequences the harvest: frontier discovery, per-entity
// fetch, field extraction, registry enrichment, merge and pacing, one entity
// at a time until the quota or the frontier is exhausted.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/healthdex/provider-harvest/internal/frontier"
	"github.com/healthdex/provider-harvest/internal/merge"
	"github.com/healthdex/provider-harvest/internal/metrics"
	"github.com/healthdex/provider-harvest/internal/pacing"
	"github.com/healthdex/provider-harvest/internal/provider"
	"github.com/healthdex/provider-harvest/internal/registry"
	"github.com/healthdex/provider-harvest/internal/render"
)

// State is the orchestrator's lifecycle phase.
type State string

// Lifecycle states, in order.
const (
	StateIdle        State = "idle"
	StateDiscovering State = "discovering"
	StateExtracting  State = "extracting"
	StateDone        State = "done"
)

// Discoverer yields entity candidates in discovery order.
type Discoverer interface {
	Discover(ctx context.Context) ([]frontier.Candidate, error)
}

// Extractor maps profile markup to a partial record.
type Extractor interface {
	Extract(markup []byte) (provider.Fragment, error)
}

// Enricher looks up the registry; it degrades internally and never errors.
type Enricher interface {
	Enrich(ctx context.Context, npi string) registry.Result
}

// Sink persists the final result set.
type Sink interface {
	Write(ctx context.Context, records []provider.Record) error
}

// Config controls per-entity fetching.
type Config struct {
	RunID string
	// ProfileWaitSelector marks the profile page as rendered.
	ProfileWaitSelector string
	ProfileWaitTimeout  time.Duration
}

// Orchestrator owns the frontier and the accumulating result list. Processing
// is strictly sequential: one entity completes before the next begins, and
// cancellation is honored at entity boundaries only.
type Orchestrator struct {
	cfg       Config
	discover  Discoverer
	renderer  render.Renderer
	extractor Extractor
	enricher  Enricher
	pacer     pacing.Policy
	sink      Sink
	clock     provider.Clock
	logger    *zap.Logger
	state     State
}

// New constructs an Orchestrator.
func New(
	cfg Config,
	discover Discoverer,
	renderer render.Renderer,
	extractor Extractor,
	enricher Enricher,
	pacer pacing.Policy,
	sink Sink,
	clock provider.Clock,
	logger *zap.Logger,
) *Orchestrator {
	if pacer == nil {
		pacer = pacing.None{}
	}
	return &Orchestrator{
		cfg:       cfg,
		discover:  discover,
		renderer:  renderer,
		extractor: extractor,
		enricher:  enricher,
		pacer:     pacer,
		sink:      sink,
		clock:     clock,
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the current lifecycle phase.
func (o *Orchestrator) State() State {
	return o.state
}

// Run executes the full harvest and returns the records in discovery order.
// Per-entity failures skip that entity; only discovery failure or a sink
// write failure surface as errors.
func (o *Orchestrator) Run(ctx context.Context) ([]provider.Record, error) {
	o.setState(StateDiscovering)
	candidates, err := o.discover.Discover(ctx)
	if err != nil {
		o.setState(StateDone)
		return nil, fmt.Errorf("discover entities: %w", err)
	}
	o.logger.Info("discovery complete", zap.Int("candidates", len(candidates)))

	o.setState(StateExtracting)
	records := make([]provider.Record, 0, len(candidates))
	for _, cand := range candidates {
		if ctx.Err() != nil {
			o.logger.Info("run canceled at entity boundary", zap.Int("collected", len(records)))
			break
		}

		paceStart := o.clock.Now()
		if err := o.pacer.Wait(ctx); err != nil {
			o.logger.Info("pacing interrupted, stopping run", zap.Error(err))
			break
		}
		metrics.ObservePacingDelay(o.clock.Now().Sub(paceStart))

		rec, err := o.processEntity(ctx, cand)
		if err != nil {
			o.logger.Error("entity skipped", zap.String("url", cand.URL), zap.Error(err))
			metrics.ObserveEntity("skipped")
			continue
		}
		rec.RunID = o.cfg.RunID
		records = append(records, rec)
		metrics.ObserveEntity("extracted")
		o.logger.Info("entity extracted",
			zap.String("url", cand.URL),
			zap.String("name", rec.FullName),
			zap.Int("collected", len(records)),
		)

		if err := o.pacer.MaybeWait(ctx); err != nil {
			break
		}
	}

	o.setState(StateDone)
	if o.sink != nil {
		// The run may have stopped on cancellation; the records collected up
		// to that point are still written out.
		if err := o.sink.Write(context.WithoutCancel(ctx), records); err != nil {
			return records, fmt.Errorf("persist results: %w", err)
		}
	}
	return records, nil
}

// processEntity fetches and assembles one record. The recover guard converts
// an unexpected panic during one entity into a skip, keeping "one bad page"
// from aborting the batch.
func (o *Orchestrator) processEntity(ctx context.Context, cand frontier.Candidate) (rec provider.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("entity processing panic: %v", r)
		}
	}()

	page, err := o.renderer.Fetch(ctx, cand.URL, render.FetchOptions{
		WaitSelector: o.cfg.ProfileWaitSelector,
		WaitTimeout:  o.cfg.ProfileWaitTimeout,
	})
	if err != nil {
		return rec, fmt.Errorf("fetch profile: %w", err)
	}
	metrics.ObservePage("profile", strconv.Itoa(page.StatusCode))

	frag, err := o.extractor.Extract(page.Body)
	if err != nil {
		return rec, fmt.Errorf("extract fields: %w", err)
	}

	result := registry.UnknownResult()
	if o.enricher != nil {
		npi := frag.NPI
		if npi == "" {
			npi = cand.Summary.NPI
		}
		result = o.enricher.Enrich(ctx, npi)
	}

	return merge.Records(cand.Summary, frag, result, o.clock.Now()), nil
}

func (o *Orchestrator) setState(s State) {
	o.state = s
	o.logger.Info("pipeline state", zap.String("state", string(s)))
}
